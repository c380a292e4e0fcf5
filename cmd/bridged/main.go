// Command bridged runs the bridge daemon: the TCP transport server, the
// main-thread dispatcher, and the command executor against an embedded scene
// document. In a host-addon deployment the host's idle callback drains the
// queue; here a tick loop stands in for it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/modelship/cadbridge"
	"github.com/modelship/cadbridge/dispatch"
	"github.com/modelship/cadbridge/executor"
	"github.com/modelship/cadbridge/scene"
	"github.com/modelship/cadbridge/serve"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "config file path (default: standard location)")
	addr := flag.String("addr", "", "listen address, overriding config and $CADBRIDGE_ADDR")
	tick := flag.Duration("tick", 10*time.Millisecond, "event loop tick interval")
	verbose := flag.Bool("verbose", false, "log every request and response")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("bridged", Version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var (
		cfg *cadbridge.Config
		err error
	)
	if *configPath != "" {
		cfg, err = cadbridge.LoadConfigFrom(*configPath)
	} else {
		cfg, err = cadbridge.LoadConfig()
	}
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	for _, warning := range cadbridge.ValidateConfig(cfg) {
		slog.Warn("config", "warning", warning)
	}

	listenAddr := cfg.ResolveAddr()
	if *addr != "" {
		listenAddr = *addr
	}

	session := scene.NewSession(*cfg.Session.AutoCreateDocument, cfg.Session.DocumentName)
	ex := executor.New(session, executor.Options{
		ScreenshotTTL: time.Duration(cfg.Cache.ScreenshotTTLSeconds) * time.Second,
	})
	defer ex.Close()

	queue := dispatch.New()

	srv, err := serve.New(listenAddr, queue, serve.Options{
		EvictStale:    *cfg.Server.EvictStale,
		MaxFrameBytes: cfg.Server.MaxFrameMB << 20,
		KnownMethod:   ex.Has,
	})
	if err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	g.Go(func() error {
		dispatch.Loop(ctx, queue, ex.Execute, *tick)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		srv.Close()
		return nil
	})

	slog.Info("ready", "addr", srv.Addr())
	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
