package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
)

// ExecResult is the outcome of a code execution call.
type ExecResult struct {
	Value  any    `json:"value"`
	Stdout string `json:"stdout"`
}

// ExecuteCode runs source code in the host session and returns its value and
// captured output.
func (c *Client) ExecuteCode(ctx context.Context, code string) (ExecResult, error) {
	raw, err := c.Call(ctx, "execute_code", map[string]any{"code": code})
	if err != nil {
		return ExecResult{}, err
	}
	var out ExecResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return ExecResult{}, err
	}
	return out, nil
}

// ModelInfo describes the host document.
type ModelInfo struct {
	Document string `json:"document"`
	Objects  []struct {
		Name  string `json:"name"`
		Label string `json:"label"`
		Type  string `json:"type"`
		Faces int    `json:"faces"`
		Edges int    `json:"edges"`
	} `json:"objects"`
}

// GetModelInfo returns objects in the current document.
func (c *Client) GetModelInfo(ctx context.Context) (ModelInfo, error) {
	raw, err := c.Call(ctx, "get_model_info", nil)
	if err != nil {
		return ModelInfo{}, err
	}
	var out ModelInfo
	if err := json.Unmarshal(raw, &out); err != nil {
		return ModelInfo{}, err
	}
	return out, nil
}

// GetSelection returns the host's current selection set as raw JSON.
func (c *Client) GetSelection(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "get_selection", nil)
}

// GetScreenshot captures the host viewport and returns decoded PNG bytes.
func (c *Client) GetScreenshot(ctx context.Context, width, height int) ([]byte, error) {
	params := map[string]any{}
	if width > 0 {
		params["width"] = width
	}
	if height > 0 {
		params["height"] = height
	}
	raw, err := c.Call(ctx, "get_screenshot", params)
	if err != nil {
		return nil, err
	}
	var out struct {
		ImageBase64 string `json:"image_base64"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(out.ImageBase64)
}
