// Command bridgectl is an operator CLI for the bridge: it sends commands to a
// running bridged (or host addon) and prints the results.
package main

import (
	"context"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/modelship/cadbridge"
	"github.com/modelship/cadbridge/client"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	flagAddr    string
	flagTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "bridgectl",
	Short:         "Send commands to a running CAD bridge",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "", "bridge address (default: config or $CADBRIDGE_ADDR)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "per-call timeout (default: config)")
}

// connect builds a client from config plus flags.
func connect() (*client.Client, context.Context, context.CancelFunc, error) {
	cfg, err := cadbridge.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	addr := cfg.ResolveAddr()
	if flagAddr != "" {
		addr = flagAddr
	}
	if flagTimeout > 0 {
		cfg.Client.DefaultTimeoutMS = int(flagTimeout / time.Millisecond)
	}

	c := client.New(addr, cfg.Client)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DefaultCallTimeout())
	return c, ctx, cancel, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
