package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call <method> [params-json]",
	Short: "Send a raw structured command",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params json.RawMessage
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("params must be valid JSON")
			}
			params = json.RawMessage(args[1])
		}

		c, ctx, cancel, err := connect()
		if err != nil {
			return err
		}
		defer cancel()
		defer c.Close()

		raw, err := c.Call(ctx, args[0], params)
		if err != nil {
			return err
		}
		var pretty any
		if err := json.Unmarshal(raw, &pretty); err != nil {
			fmt.Println(string(raw))
			return nil
		}
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var screenshotOut string

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture the host viewport to a PNG file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel, err := connect()
		if err != nil {
			return err
		}
		defer cancel()
		defer c.Close()

		img, err := c.GetScreenshot(ctx, 0, 0)
		if err != nil {
			return err
		}
		if err := os.WriteFile(screenshotOut, img, 0o644); err != nil {
			return err
		}
		pterm.Success.Printfln("wrote %s (%d bytes)", screenshotOut, len(img))
		return nil
	},
}

func init() {
	screenshotCmd.Flags().StringVarP(&screenshotOut, "out", "o", "screenshot.png", "output file")
	rootCmd.AddCommand(callCmd, screenshotCmd)
}
