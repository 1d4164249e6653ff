package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/voltrader/internal/domain"
)

// runnerQuotes cubre marzo de 2023 para el strike 400: la fila del día
// 10 tiene mercado de calls con midpoint 1.00 y subyacente 405.
func runnerQuotes() *domain.QuoteTable {
	return domain.NewQuoteTable([]domain.OptionQuote{
		quote(day(2023, 3, 1), 400, func(q *domain.OptionQuote) {
			q.UnderlyingLast = 402
		}),
		quote(day(2023, 3, 10), 400, func(q *domain.OptionQuote) {
			q.UnderlyingLast = 405
			q.CallBid, q.CallAsk = 0.9, 1.1
		}),
	})
}

func callTrade(entry time.Time, qty int) domain.Trade {
	return domain.Trade{
		EntryDate:    entry,
		ExitDate:     day(2023, 3, 10),
		Strike:       400,
		Action:       domain.ActionBuy,
		PositionType: domain.PositionCall,
		EntryPrice:   2.0,
		Confidence:   math.NaN(),
		Quantity:     qty,
	}
}

func newTestRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	r, err := NewRunner(cfg, runnerQuotes(), nil)
	require.NoError(t, err)
	return r
}

func TestNewRunner_Validation(t *testing.T) {
	quotes := runnerQuotes()

	for _, tc := range []struct {
		name string
		cfg  Config
	}{
		{"zero capital", Config{InitialCapital: 0, MaxDrawdownPct: 0.1, MaxLossPerTradePct: 0.1}},
		{"drawdown one", Config{InitialCapital: 1000, MaxDrawdownPct: 1, MaxLossPerTradePct: 0.1}},
		{"drawdown zero", Config{InitialCapital: 1000, MaxDrawdownPct: 0, MaxLossPerTradePct: 0.1}},
		{"loss cap zero", Config{InitialCapital: 1000, MaxDrawdownPct: 0.1, MaxLossPerTradePct: 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRunner(tc.cfg, quotes, nil)
			assert.Error(t, err)
		})
	}
}

func TestRun_EmptyMarketData(t *testing.T) {
	r, err := NewRunner(DefaultConfig(), domain.NewQuoteTable(nil), nil)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRun_HaltLatch(t *testing.T) {
	// Cada trade BUY CALL sale al midpoint 1.00 y pierde 1.00 por
	// contrato. Con capital 1000 y límite del 10%:
	//
	//	qty 50 → -50  → equity 950 (dd 5%, sigue)
	//	qty 80 → -80  → equity 870 (dd 13%, halt)
	//	qty 10 → bloqueado por el latch
	r := newTestRunner(t, Config{
		InitialCapital:     1000,
		MaxDrawdownPct:     0.10,
		MaxLossPerTradePct: 1.0,
	})

	run, err := r.Run(context.Background(), []domain.Trade{
		callTrade(day(2023, 3, 1), 50),
		callTrade(day(2023, 3, 2), 80),
		callTrade(day(2023, 3, 3), 10),
	})
	require.NoError(t, err)
	require.Len(t, run.Results, 3)

	assert.Equal(t, domain.StatusExecuted, run.Results[0].Status)
	assert.InDelta(t, 950, run.Results[0].Equity, 1e-9)

	assert.Equal(t, domain.StatusExecuted, run.Results[1].Status)
	assert.InDelta(t, 870, run.Results[1].Equity, 1e-9)

	assert.Equal(t, domain.StatusSkippedDrawdownHalt, run.Results[2].Status)

	assert.Equal(t, 1, run.Metrics.SkippedHalted)
	assert.InDelta(t, 870, run.FinalEquity, 1e-9)
	assert.Equal(t, []float64{1000, 950, 870}, run.EquityCurve)
	assert.InDelta(t, 0.13, run.Metrics.MaxDrawdown, 1e-9)
}

func TestRun_PerTradeLossCap(t *testing.T) {
	// qty 200 perdería 200, pero el cap es 1000 × 0.05 = 50.
	r := newTestRunner(t, Config{
		InitialCapital:     1000,
		MaxDrawdownPct:     0.10,
		MaxLossPerTradePct: 0.05,
	})

	run, err := r.Run(context.Background(), []domain.Trade{
		callTrade(day(2023, 3, 1), 200),
	})
	require.NoError(t, err)
	require.Len(t, run.Results, 1)

	assert.InDelta(t, -50, run.Results[0].PnL, 1e-9)
	assert.InDelta(t, 950, run.FinalEquity, 1e-9)
}

func TestRun_OutOfRangeFilter(t *testing.T) {
	r := newTestRunner(t, Config{
		InitialCapital:     1000,
		MaxDrawdownPct:     0.10,
		MaxLossPerTradePct: 1.0,
	})

	early := callTrade(day(2023, 2, 1), 10) // entra antes del primer quote
	late := callTrade(day(2023, 3, 5), 10)
	late.ExitDate = day(2023, 4, 1) // sale después del último quote

	run, err := r.Run(context.Background(), []domain.Trade{early, late})
	require.NoError(t, err)

	assert.Empty(t, run.Results)
	assert.Equal(t, 2, run.Metrics.SkippedOutOfRange)
	assert.InDelta(t, 1000, run.FinalEquity, 1e-9)
}

func TestRun_NoDataSkip(t *testing.T) {
	r := newTestRunner(t, Config{
		InitialCapital:     1000,
		MaxDrawdownPct:     0.10,
		MaxLossPerTradePct: 1.0,
		ExitToleranceDays:  5,
	})

	missing := callTrade(day(2023, 3, 1), 10)
	missing.Strike = 999 // strike sin filas

	run, err := r.Run(context.Background(), []domain.Trade{missing})
	require.NoError(t, err)

	assert.Empty(t, run.Results)
	assert.Equal(t, 1, run.Metrics.SkippedNoData)
}

func TestRun_ResultsSortedByEntryDate(t *testing.T) {
	r := newTestRunner(t, Config{
		InitialCapital:     100000,
		MaxDrawdownPct:     0.50,
		MaxLossPerTradePct: 1.0,
	})

	run, err := r.Run(context.Background(), []domain.Trade{
		callTrade(day(2023, 3, 5), 1),
		callTrade(day(2023, 3, 1), 1),
		callTrade(day(2023, 3, 3), 1),
	})
	require.NoError(t, err)
	require.Len(t, run.Results, 3)

	for i := 1; i < len(run.Results); i++ {
		assert.False(t, run.Results[i].EntryDate.Before(run.Results[i-1].EntryDate))
	}
	assert.Equal(t, day(2023, 3, 1), run.Start)
}

func TestRun_ConcurrentMatchesSequential(t *testing.T) {
	trades := []domain.Trade{
		callTrade(day(2023, 3, 1), 5),
		callTrade(day(2023, 3, 2), 3),
		callTrade(day(2023, 3, 3), 7),
		callTrade(day(2023, 3, 4), 2),
	}
	for i := range trades {
		trades[i].Confidence = 0.7 // NaN rompería la comparación por DeepEqual
	}

	cfg := Config{
		InitialCapital:     100000,
		MaxDrawdownPct:     0.50,
		MaxLossPerTradePct: 1.0,
	}

	seq := newTestRunner(t, cfg)
	seqRun, err := seq.Run(context.Background(), trades)
	require.NoError(t, err)

	cfg.Workers = 4
	conc := newTestRunner(t, cfg)
	concRun, err := conc.Run(context.Background(), trades)
	require.NoError(t, err)

	require.Len(t, concRun.Results, len(seqRun.Results))
	for i := range seqRun.Results {
		assert.Equal(t, seqRun.Results[i], concRun.Results[i])
	}
	assert.Equal(t, seqRun.EquityCurve, concRun.EquityCurve)
}

func TestRun_CancelledContext(t *testing.T) {
	r := newTestRunner(t, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, []domain.Trade{callTrade(day(2023, 3, 1), 1)})
	assert.ErrorIs(t, err, context.Canceled)
}
