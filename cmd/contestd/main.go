package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/tokenpools/config"
	"github.com/alejandrodnm/tokenpools/internal/adapters/coingecko"
	"github.com/alejandrodnm/tokenpools/internal/adapters/notify"
	"github.com/alejandrodnm/tokenpools/internal/adapters/storage"
	"github.com/alejandrodnm/tokenpools/internal/application/contest"
	"github.com/alejandrodnm/tokenpools/internal/application/ledger"
	"github.com/alejandrodnm/tokenpools/internal/application/teams"
)

// app agrupa las dependencias cableadas que usan los distintos modos.
type app struct {
	cfg      *config.Config
	store    *storage.SQLiteStorage
	oracle   *coingecko.Client
	ctrl     *contest.Controller
	teams    *teams.Service
	notifier *notify.Console
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	leaderboard := flag.String("leaderboard", "", "print the leaderboard of a contest and exit")
	list := flag.String("list", "", "list contests with the given status (all|upcoming|ongoing|finished) and exit")
	sweepOnce := flag.Bool("sweep-once", false, "run one expiry sweep and exit")
	detail := flag.Bool("detail", false, "print per-asset breakdown in leaderboards")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("tokenpools starting",
		"config", *configPath,
		"dsn", cfg.Storage.DSN,
		"sweep_interval", cfg.SweepInterval(),
	)

	a, err := wire(cfg, *detail)
	if err != nil {
		slog.Error("failed to initialise", "err", err)
		os.Exit(1)
	}
	defer a.store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *leaderboard != "":
		err = runLeaderboard(ctx, a, *leaderboard)
	case *list != "":
		err = runList(ctx, a, *list)
	case *sweepOnce:
		err = runSweepOnce(ctx, a)
	default:
		err = runServe(ctx, a)
	}
	if err != nil {
		slog.Error("tokenpools exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("tokenpools stopped cleanly")
}

func wire(cfg *config.Config, detail bool) (*app, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}

	oracle := coingecko.NewClient(coingecko.Config{
		BaseURL:     cfg.Oracle.BaseURL,
		APIKey:      cfg.Oracle.APIKey,
		RatePerSec:  cfg.Oracle.RatePerSec,
		MaxAttempts: cfg.Oracle.MaxRetries,
		Timeout:     10 * time.Second,
	})
	notifier := notify.NewConsole(detail)
	prices := ledger.New(store, oracle)

	ctrl, err := contest.New(contest.Config{
		MaxTeamsPerUser:  cfg.Contest.MaxTeamsPerUser,
		ResultsCacheSize: cfg.Contest.ResultsCacheSize,
		ScoringWorkers:   cfg.Contest.ScoringWorkers,
		QuoteTTL:         cfg.QuoteTTL(),
		QuoteTimeout:     cfg.QuoteTimeout(),
	}, store, store, store, prices, oracle, notifier)
	if err != nil {
		store.Close()
		return nil, err
	}

	teamSvc := teams.New(teams.Config{
		ListingSize: cfg.Oracle.TopAssets,
		ListingTTL:  cfg.ListingTTL(),
	}, store, oracle)

	return &app{
		cfg:      cfg,
		store:    store,
		oracle:   oracle,
		ctrl:     ctrl,
		teams:    teamSvc,
		notifier: notifier,
	}, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
