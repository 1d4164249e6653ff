package risk

// sweep.go — barrido de parámetros de riesgo.
//
// Ejecuta el backtest una vez por cada combinación del grid
// risk_per_trade × max_drawdown_pct y recoge las métricas. El backtest
// en sí llega como callback para que este paquete no dependa del runner.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alejandrodnm/voltrader/internal/domain"
)

// SweepGrid define los valores a probar por parámetro.
type SweepGrid struct {
	RiskPerTrade   []float64
	MaxDrawdownPct []float64
}

// SweepResult es una fila del barrido: la combinación y sus métricas.
type SweepResult struct {
	RiskPerTrade   float64
	MaxDrawdownPct float64
	Metrics        domain.Metrics
}

// BacktestFunc ejecuta un backtest completo con los parámetros dados.
type BacktestFunc func(ctx context.Context, riskPerTrade, maxDrawdownPct float64) (domain.Metrics, error)

// Sweep recorre todas las combinaciones del grid en orden determinista.
// Un error del backtest aborta el barrido: una combinación que no puede
// ejecutarse invalida la comparación entera.
func Sweep(ctx context.Context, grid SweepGrid, run BacktestFunc) ([]SweepResult, error) {
	if len(grid.RiskPerTrade) == 0 || len(grid.MaxDrawdownPct) == 0 {
		return nil, fmt.Errorf("risk.Sweep: empty parameter grid")
	}

	total := len(grid.RiskPerTrade) * len(grid.MaxDrawdownPct)
	slog.Info("starting parameter sweep",
		"combinations", total,
		"risk_per_trade", grid.RiskPerTrade,
		"max_drawdown_pct", grid.MaxDrawdownPct,
	)

	results := make([]SweepResult, 0, total)
	n := 0
	for _, riskPerTrade := range grid.RiskPerTrade {
		for _, maxDD := range grid.MaxDrawdownPct {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("risk.Sweep: %w", err)
			}
			n++
			slog.Info("sweep combination",
				"n", fmt.Sprintf("%d/%d", n, total),
				"risk_per_trade", riskPerTrade,
				"max_drawdown_pct", maxDD,
			)

			metrics, err := run(ctx, riskPerTrade, maxDD)
			if err != nil {
				return nil, fmt.Errorf("risk.Sweep: risk=%.3f dd=%.3f: %w", riskPerTrade, maxDD, err)
			}
			results = append(results, SweepResult{
				RiskPerTrade:   riskPerTrade,
				MaxDrawdownPct: maxDD,
				Metrics:        metrics,
			})
		}
	}
	return results, nil
}

// BestByFinalEquity devuelve las top-n combinaciones por equity final.
func BestByFinalEquity(results []SweepResult, n int) []SweepResult {
	sorted := make([]SweepResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Metrics.FinalEquity > sorted[j].Metrics.FinalEquity
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// BestBySharpe devuelve las top-n combinaciones por ratio Sharpe.
func BestBySharpe(results []SweepResult, n int) []SweepResult {
	sorted := make([]SweepResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Metrics.SharpeRatio > sorted[j].Metrics.SharpeRatio
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
