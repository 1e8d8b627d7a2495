package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slimcircle/gamification/gamify"
	"github.com/slimcircle/gamification/gamify/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	skipSchema := flag.Bool("skip-schema", false, "skip schema initialization on startup")
	flag.Parse()

	cfg, err := gamify.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	customHandler := logger.NewHandler(cfg.Log.Level)
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting SlimCircle gamification engine",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	engine := gamify.New(*cfg, version, commit)

	setupStart := time.Now()
	if err := engine.Setup(ctx, !*skipSchema); err != nil {
		slog.Error("Engine setup failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(setupStart)))
		os.Exit(-1)
	}
	defer engine.Close()

	slog.Info("Engine ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(setupStart)))

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	engine.Scheduler.Start(runCtx)

	slog.Info("Gamification engine is now running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-s

	slog.Info("Shutting down gamification engine...")
}
