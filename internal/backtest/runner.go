package backtest

// runner.go — orquesta el backtest completo:
//
//  1. Filtra trades al rango de fechas con market data.
//  2. Resuelve cada trade con el Simulator (en orden original).
//  3. Ordena resultados por fecha de entrada (sort estable).
//  4. Pasada secuencial de equity: cap de pérdida por trade, drawdown
//     limiter y halt latch. El latch lo posee el runner — el limiter
//     solo evalúa; una recuperación posterior no reabre el trading.
//  5. Agrega métricas sobre los trades ejecutados.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/voltrader/internal/domain"
	"github.com/alejandrodnm/voltrader/internal/risk"
)

// Config son los parámetros del runner.
type Config struct {
	InitialCapital     float64
	MaxDrawdownPct     float64
	MaxLossPerTradePct float64 // fracción del capital inicial que capa la pérdida por trade
	ExitToleranceDays  int
	Workers            int // 0 = resolución secuencial
}

// DefaultConfig devuelve la configuración de riesgo por defecto.
func DefaultConfig() Config {
	return Config{
		InitialCapital:     100000,
		MaxDrawdownPct:     0.10,
		MaxLossPerTradePct: 0.10,
		ExitToleranceDays:  DefaultExitToleranceDays,
	}
}

// Runner ejecuta el backtest sobre una tabla de quotes fija.
type Runner struct {
	cfg Config
	sim *Simulator
}

// NewRunner valida la configuración y construye el runner.
// pricing=nil usa la política heurística por defecto.
func NewRunner(cfg Config, quotes *domain.QuoteTable, pricing PricingPolicy) (*Runner, error) {
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("backtest.NewRunner: initial capital %.2f must be positive", cfg.InitialCapital)
	}
	if cfg.MaxDrawdownPct <= 0 || cfg.MaxDrawdownPct >= 1 {
		return nil, fmt.Errorf("backtest.NewRunner: max_drawdown_pct %.4f must be in (0,1)", cfg.MaxDrawdownPct)
	}
	if cfg.MaxLossPerTradePct <= 0 || cfg.MaxLossPerTradePct > 1 {
		return nil, fmt.Errorf("backtest.NewRunner: max_loss_per_trade_pct %.4f must be in (0,1]", cfg.MaxLossPerTradePct)
	}
	return &Runner{
		cfg: cfg,
		sim: NewSimulator(quotes, pricing, cfg.ExitToleranceDays),
	}, nil
}

// Run ejecuta el backtest completo y devuelve resultados + métricas.
func (r *Runner) Run(ctx context.Context, trades []domain.Trade) (*domain.BacktestRun, error) {
	minDate, maxDate, ok := r.sim.quotes.Span()
	if !ok {
		return nil, fmt.Errorf("backtest.Run: empty market data table")
	}
	slog.Info("market data range",
		"from", minDate.Format("2006-01-02"),
		"to", maxDate.Format("2006-01-02"),
		"rows", r.sim.quotes.Len(),
	)

	// 1. Filtrar trades al rango con datos.
	valid := make([]domain.Trade, 0, len(trades))
	outOfRange := 0
	for _, t := range trades {
		entry, exit := domain.Day(t.EntryDate), domain.Day(t.ExitDate)
		if entry.Before(minDate) || exit.After(maxDate) {
			outOfRange++
			continue
		}
		valid = append(valid, t)
	}
	slog.Info("trades within market data range",
		"valid", len(valid),
		"out_of_range", outOfRange,
	)

	// 2. Resolver salidas, en el orden original de entrada.
	results, noData, err := r.resolveAll(ctx, valid)
	if err != nil {
		return nil, err
	}
	slog.Info("trades resolved",
		"executed", len(results),
		"skipped_no_data", noData,
	)

	// 3. Orden por fecha de entrada para la curva de equity.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].EntryDate.Before(results[j].EntryDate)
	})

	// 4. Pasada secuencial de equity con overlay de riesgo.
	limiter, err := risk.NewDrawdownLimiter(r.cfg.InitialCapital, r.cfg.MaxDrawdownPct)
	if err != nil {
		return nil, fmt.Errorf("backtest.Run: %w", err)
	}

	maxLossPerTrade := r.cfg.InitialCapital * r.cfg.MaxLossPerTradePct
	currentEquity := r.cfg.InitialCapital
	halted := false
	haltedCount := 0

	for i := range results {
		if halted {
			results[i].Status = domain.StatusSkippedDrawdownHalt
			haltedCount++
			continue
		}

		pnl := results[i].PnL
		if pnl < -maxLossPerTrade {
			slog.Debug("per-trade loss capped",
				"pnl", fmt.Sprintf("%.2f", pnl),
				"cap", fmt.Sprintf("%.2f", -maxLossPerTrade),
			)
			pnl = -maxLossPerTrade
			results[i].PnL = pnl
		}

		currentEquity += pnl
		results[i].Equity = currentEquity

		if !limiter.UpdateEquity(currentEquity) {
			// El latch es del runner: los trades restantes quedan
			// bloqueados aunque la equity se recuperase después.
			halted = true
			slog.Warn("trading halted by drawdown limit",
				"after_trade", results[i].EntryDate.Format("2006-01-02"),
				"equity", fmt.Sprintf("%.2f", currentEquity),
			)
		}
	}

	// 5. Métricas agregadas.
	metrics := domain.ComputeMetrics(results)
	metrics.SkippedOutOfRange = outOfRange
	metrics.SkippedNoData = noData
	metrics.SkippedHalted = haltedCount
	metrics.FinalEquity = currentEquity

	equityCurve := limiter.EquityCurve()
	metrics.MaxDrawdown = domain.MaxDrawdownOf(equityCurve)
	metrics.SharpeRatio = domain.SharpeRatio(equityCurve)

	var start, end time.Time
	for _, res := range results {
		if res.Status != domain.StatusExecuted {
			continue
		}
		if start.IsZero() || res.EntryDate.Before(start) {
			start = res.EntryDate
		}
		if end.IsZero() || res.ActualExitDate.After(end) {
			end = res.ActualExitDate
		}
	}
	metrics.CAGR = domain.CAGR(r.cfg.InitialCapital, currentEquity, start, end)

	return &domain.BacktestRun{
		RanAt:          time.Now().UTC(),
		InitialCapital: r.cfg.InitialCapital,
		FinalEquity:    currentEquity,
		Start:          start,
		End:            end,
		EquityCurve:    equityCurve,
		Results:        results,
		Metrics:        metrics,
	}, nil
}

// resolveAll simula cada trade y separa ejecutados de skips por datos.
// Los resultados conservan el orden de entrada.
func (r *Runner) resolveAll(ctx context.Context, trades []domain.Trade) ([]domain.TradeResult, int, error) {
	if r.cfg.Workers > 1 {
		return r.resolveConcurrent(ctx, trades)
	}

	results := make([]domain.TradeResult, 0, len(trades))
	noData := 0
	for i, t := range trades {
		if err := ctx.Err(); err != nil {
			return nil, 0, fmt.Errorf("backtest.resolveAll: %w", err)
		}

		res, err := r.sim.Resolve(t)
		if err != nil {
			slog.Debug("trade skipped", "err", err)
			noData++
			continue
		}
		results = append(results, res)

		if (i+1)%100 == 0 {
			slog.Info("resolving trades", "processed", i+1, "total", len(trades))
		}
	}
	return results, noData, nil
}
