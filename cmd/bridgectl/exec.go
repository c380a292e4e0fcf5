package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var execFile string

var execCmd = &cobra.Command{
	Use:   "exec [code]",
	Short: "Execute code in the host session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var code string
		switch {
		case execFile == "-":
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			code = string(data)
		case execFile != "":
			data, err := os.ReadFile(execFile)
			if err != nil {
				return err
			}
			code = string(data)
		case len(args) == 1:
			code = args[0]
		default:
			return fmt.Errorf("give code as an argument or via --file")
		}

		c, ctx, cancel, err := connect()
		if err != nil {
			return err
		}
		defer cancel()
		defer c.Close()

		res, err := c.ExecuteCode(ctx, code)
		if err != nil {
			return err
		}
		if res.Stdout != "" {
			fmt.Print(res.Stdout)
		}
		if res.Value != nil {
			pterm.Println(pterm.Gray("=> "), res.Value)
		}
		return nil
	},
}

func init() {
	execCmd.Flags().StringVarP(&execFile, "file", "f", "", "read code from file ('-' for stdin)")
	rootCmd.AddCommand(execCmd)
}
