package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alejandrodnm/voltrader/config"
	"github.com/alejandrodnm/voltrader/internal/adapters/notify"
	"github.com/alejandrodnm/voltrader/internal/domain"
	"github.com/alejandrodnm/voltrader/internal/risk"
)

// sweepGrid es el grid rápido por defecto; suficiente para ver la forma
// de la superficie riesgo/drawdown sin esperar media hora.
var sweepGrid = risk.SweepGrid{
	RiskPerTrade:   []float64{0.01, 0.02, 0.03},
	MaxDrawdownPct: []float64{0.10, 0.15, 0.20},
}

// runSweep ejecuta el backtest completo por cada combinación del grid,
// reconstruyendo trades con el sizing de cada combinación.
func runSweep(ctx context.Context, cfg *config.Config, signals []domain.Signal, quotes *domain.QuoteTable, notifier *notify.Console) {
	slog.Info("=== SWEEP MODE: grid over risk parameters ===")

	results, err := risk.Sweep(ctx, sweepGrid,
		func(ctx context.Context, riskPerTrade, maxDrawdownPct float64) (domain.Metrics, error) {
			runCfg := *cfg
			runCfg.Backtest.RiskPerTrade = riskPerTrade
			runCfg.Backtest.MaxDrawdownPct = maxDrawdownPct

			run, err := runBacktest(ctx, &runCfg, signals, quotes)
			if err != nil {
				return domain.Metrics{}, err
			}
			return run.Metrics, nil
		})
	if err != nil {
		slog.Error("sweep failed", "err", err)
		os.Exit(1)
	}

	notifier.PrintSweep(results)
	slog.Info("sweep complete", "combinations", len(results))
}
