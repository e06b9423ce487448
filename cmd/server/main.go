package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/snapsync/snapsync/internal/config"
	"github.com/snapsync/snapsync/internal/core/interp"
	"github.com/snapsync/snapsync/internal/core/observability/log"
	"github.com/snapsync/snapsync/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON or YAML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error loading config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := log.New(cfg.Level())

	engine := interp.NewSharded(cfg.InterpConfig(), logger, cfg.Interp.Shards)
	srv, err := server.New(server.Config{
		ListenAddr:     cfg.ListenAddr(),
		ReadTimeout:    cfg.ReadTimeout(),
		WriteTimeout:   cfg.WriteTimeout(),
		MaxMessageSize: cfg.Server.MaxMessageSize,
	}, engine, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error building server:", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", log.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
