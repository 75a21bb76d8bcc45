package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/gonotify/internal/config"
	"github.com/Tyrowin/gonotify/internal/server"
	"github.com/Tyrowin/gonotify/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	port := flag.String("port", "", "listen address, overrides config (e.g. :8080)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath, port string) error {
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting gonotify",
		"config", configPath,
		"port", cfg.Port,
		"allowed_origins", cfg.AllowedOrigins,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(tctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	hub := server.NewHub(cfg, logger)
	mux := server.SetupRoutes(hub, cfg, logger)
	httpServer := server.CreateServer(cfg.Port, mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.StartServer(httpServer, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.ShutdownServer(shutdownCtx, httpServer, hub, logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("gonotify stopped")
	return nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
