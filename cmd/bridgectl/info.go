package main

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show objects in the current document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel, err := connect()
		if err != nil {
			return err
		}
		defer cancel()
		defer c.Close()

		info, err := c.GetModelInfo(ctx)
		if err != nil {
			return err
		}

		pterm.DefaultSection.Println("Document: " + info.Document)
		if len(info.Objects) == 0 {
			pterm.Println("no objects")
			return nil
		}
		rows := pterm.TableData{{"Name", "Type", "Faces", "Edges"}}
		for _, o := range info.Objects {
			rows = append(rows, []string{o.Name, o.Type, fmt.Sprint(o.Faces), fmt.Sprint(o.Edges)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var selectionCmd = &cobra.Command{
	Use:   "selection",
	Short: "Show the host's current selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel, err := connect()
		if err != nil {
			return err
		}
		defer cancel()
		defer c.Close()

		raw, err := c.GetSelection(ctx)
		if err != nil {
			return err
		}
		var pretty any
		if err := json.Unmarshal(raw, &pretty); err != nil {
			return err
		}
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print bridgectl version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("bridgectl", Version)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd, selectionCmd, versionCmd)
}
