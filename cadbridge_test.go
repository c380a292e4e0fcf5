package cadbridge

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResponseNullFieldsPresent(t *testing.T) {
	// Both result and error keys must always be present on the wire so
	// clients can distinguish "no value" from a truncated frame.
	resp := Response{ID: 7}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"result":null`) {
		t.Errorf("expected result:null, got %s", data)
	}
	if !strings.Contains(string(data), `"error":null`) {
		t.Errorf("expected error:null, got %s", data)
	}
}

func TestRequestJSONRoundTrip(t *testing.T) {
	req := Request{ID: 42, Method: "execute_code", Params: json.RawMessage(`{"code":"print(1)"}`)}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"method":"execute_code"`) {
		t.Errorf("expected method key in JSON, got %s", data)
	}

	var decoded Request
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.ID != 42 || decoded.Method != "execute_code" {
		t.Errorf("round trip lost fields: %+v", decoded)
	}
}

func TestErrorImplementsError(t *testing.T) {
	var err error = Errorf(KindUnknownMethod, "unknown method %q", "frobnicate")
	want := `UnknownMethod: unknown method "frobnicate"`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestResponseFor(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		wantErr bool
	}{
		{
			name:   "ok with value",
			result: Result{CommandID: 1, Value: json.RawMessage(`{"x":1}`)},
		},
		{
			name:    "error",
			result:  Result{CommandID: 2, Err: Errorf(KindExecutionError, "boom")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ResponseFor(9, tt.result)
			if resp.ID != 9 {
				t.Errorf("expected id 9, got %d", resp.ID)
			}
			if tt.wantErr && resp.Error == nil {
				t.Error("expected error in response")
			}
			if !tt.wantErr && resp.Error != nil {
				t.Errorf("unexpected error: %v", resp.Error)
			}
		})
	}
}

func TestResultOK(t *testing.T) {
	if !(Result{}).OK() {
		t.Error("empty result should be OK")
	}
	if (Result{Err: Errorf(KindTimeout, "t")}).OK() {
		t.Error("result with error should not be OK")
	}
}
