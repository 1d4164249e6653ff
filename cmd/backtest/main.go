package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/voltrader/config"
	"github.com/alejandrodnm/voltrader/internal/adapters/eod"
	"github.com/alejandrodnm/voltrader/internal/adapters/notify"
	"github.com/alejandrodnm/voltrader/internal/adapters/storage"
	"github.com/alejandrodnm/voltrader/internal/backtest"
	"github.com/alejandrodnm/voltrader/internal/domain"
	"github.com/alejandrodnm/voltrader/internal/risk"
	"github.com/alejandrodnm/voltrader/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	signalsPath := flag.String("signals", "", "signals CSV (overrides config)")
	marketPath := flag.String("market-data", "", "EOD options chain CSV (overrides config)")
	table := flag.Bool("table", false, "print full trade table (default: summary only)")
	sweep := flag.Bool("sweep", false, "run a risk parameter sweep instead of a single backtest")
	historyDays := flag.Int("history", 0, "print the last N days of persisted runs and exit")
	dryRun := flag.Bool("dry-run", false, "skip persisting the run to storage")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	maxTrades := flag.Int("max-trades", 0, "signal sample cap (overrides config)")
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
	if *signalsPath != "" {
		cfg.Data.SignalsPath = *signalsPath
	}
	if *marketPath != "" {
		cfg.Data.MarketDataPath = *marketPath
	}
	if *maxTrades > 0 {
		cfg.Backtest.MaxTrades = *maxTrades
	}
	setupLogger(cfg.Log)

	if *historyDays > 0 {
		printHistory(cfg.Storage.DSN, *historyDays)
		return
	}

	slog.Info("voltrader starting",
		"config", *configPath,
		"signals", cfg.Data.SignalsPath,
		"market_data", cfg.Data.MarketDataPath,
		"sweep", *sweep,
		"dry_run", *dryRun,
	)

	quotes, err := eod.LoadQuotes(cfg.Data.MarketDataPath)
	if err != nil {
		slog.Error("failed to load market data", "err", err)
		os.Exit(1)
	}
	signals, err := eod.LoadSignals(cfg.Data.SignalsPath)
	if err != nil {
		slog.Error("failed to load signals", "err", err)
		os.Exit(1)
	}
	slog.Info("data loaded", "quotes", quotes.Len(), "signals", len(signals))

	notifier := notify.NewConsole(*table)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *sweep {
		runSweep(ctx, cfg, signals, quotes, notifier)
		return
	}

	run, err := runBacktest(ctx, cfg, signals, quotes)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	if err := notifier.Report(ctx, run); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if !*dryRun {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()

		id, err := store.SaveRun(ctx, run)
		if err != nil {
			slog.Error("failed to persist run", "err", err)
			os.Exit(1)
		}
		slog.Info("run persisted", "id", id)
	}

	slog.Info("voltrader finished",
		"trades", run.Metrics.TotalTrades,
		"final_equity", run.FinalEquity,
	)
}

// runBacktest construye los trades con el sizing configurado y ejecuta
// el runner una vez.
func runBacktest(ctx context.Context, cfg *config.Config, signals []domain.Signal, quotes *domain.QuoteTable) (*domain.BacktestRun, error) {
	var sizer *risk.PositionSizer
	if !cfg.Backtest.StaticSizing {
		var err error
		sizer, err = risk.NewPositionSizer(
			cfg.Backtest.InitialCapital,
			cfg.Backtest.RiskPerTrade,
			cfg.Backtest.MaxPositionPct,
			cfg.Backtest.AbsoluteMaxContracts,
		)
		if err != nil {
			return nil, err
		}
	}

	trades := strategy.New(sizer, cfg.Backtest.MaxTrades).Build(signals, quotes)

	runner, err := backtest.NewRunner(backtest.Config{
		InitialCapital:     cfg.Backtest.InitialCapital,
		MaxDrawdownPct:     cfg.Backtest.MaxDrawdownPct,
		MaxLossPerTradePct: cfg.Backtest.MaxLossPerTradePct,
		ExitToleranceDays:  cfg.Backtest.ExitToleranceDays,
		Workers:            cfg.Backtest.Workers,
	}, quotes, nil)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, trades)
}

// printHistory lista los runs persistidos de los últimos días.
func printHistory(dsn string, days int) {
	store, err := storage.NewSQLiteStorage(dsn)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", dsn)
		os.Exit(1)
	}
	defer store.Close()

	now := time.Now().UTC()
	summaries, err := store.History(context.Background(), now.AddDate(0, 0, -days), now)
	if err != nil {
		slog.Error("failed to query run history", "err", err)
		os.Exit(1)
	}
	notify.NewConsole(false).PrintHistory(summaries)
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
