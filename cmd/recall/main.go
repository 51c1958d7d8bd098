package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"

	"github.com/conorfennell/recall/internal/app"
	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/storage"
)

func main() {
	flags := pflag.NewFlagSet("recall", pflag.ContinueOnError)
	configPath := flags.String("config", "", "Path to a YAML config file")
	flags.String("db", "recall.db", "Path to the SQLite database file")
	flags.String("addr", ":8080", "HTTP listen address")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("token", "", "Bearer token required by the API")
	addSource := flags.String("add-source", "", "Register a local directory or git URL as a card source")
	syncOnce := flags.Bool("sync", false, "Sync all sources once and exit")
	serve := flags.Bool("serve", true, "Run the HTTP server")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, flags, *addSource, *syncOnce, *serve); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, flags *pflag.FlagSet, addSource string, syncOnce, serve bool) error {
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		return err
	}

	logger := app.NewLogger(cfg.App, os.Stderr)
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", slog.String("path", cfg.Storage.Path))

	a := app.New(cfg, db, logger)

	if addSource != "" {
		id, err := a.Syncer().AddSource(ctx, addSource)
		if err != nil {
			return fmt.Errorf("add source: %w", err)
		}
		fmt.Printf("Added source %d: %s\n", id, addSource)
		return nil
	}

	if syncOnce {
		results, err := a.Syncer().RunAll(ctx)
		for _, r := range results {
			fmt.Printf("source %d: %d parsed, %d added, %d removed\n", r.SourceID, r.Parsed, r.Added, r.Removed)
		}
		return err
	}

	if !serve {
		return nil
	}
	return a.Run(ctx)
}
