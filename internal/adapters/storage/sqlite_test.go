package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/voltrader/internal/domain"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() *domain.BacktestRun {
	entry := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	exit := time.Date(2023, 4, 21, 0, 0, 0, 0, time.UTC)
	return &domain.BacktestRun{
		RanAt:          time.Now().UTC(),
		InitialCapital: 100000,
		FinalEquity:    104200,
		Start:          entry,
		End:            exit,
		EquityCurve:    []float64{100000, 104200},
		Results: []domain.TradeResult{
			{
				EntryDate:      entry,
				ExitDate:       exit,
				ActualExitDate: exit,
				Strike:         400,
				Action:         domain.ActionSell,
				PositionType:   domain.PositionPut,
				EntryPrice:     4.2,
				ExitPrice:      0,
				Underlying:     410,
				Quantity:       100,
				PnL:            4200,
				PnLPercent:     100,
				Status:         domain.StatusExecuted,
				Equity:         104200,
			},
		},
		Metrics: domain.Metrics{
			TotalTrades:   1,
			WinningTrades: 1,
			WinRate:       1,
			TotalPnL:      4200,
			AvgPnL:        4200,
			MaxProfit:     4200,
			ProfitFactor:  math.Inf(1),
			FinalEquity:   104200,
		},
	}
}

func TestSaveRun_AssignsID(t *testing.T) {
	s := newTestStorage(t)

	id, err := s.SaveRun(context.Background(), sampleRun())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestSaveRun_KeepsExplicitID(t *testing.T) {
	s := newTestStorage(t)

	run := sampleRun()
	run.ID = "run-fixed"
	id, err := s.SaveRun(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", id)
}

func TestSaveRun_PersistsResults(t *testing.T) {
	s := newTestStorage(t)

	id, err := s.SaveRun(context.Background(), sampleRun())
	require.NoError(t, err)

	var count int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM trade_results WHERE run_id = ?`, id).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSaveRun_InfiniteProfitFactorSentinel(t *testing.T) {
	s := newTestStorage(t)

	id, err := s.SaveRun(context.Background(), sampleRun())
	require.NoError(t, err)

	var pf float64
	err = s.db.QueryRow(`SELECT profit_factor FROM runs WHERE id = ?`, id).Scan(&pf)
	require.NoError(t, err)
	assert.Equal(t, -1.0, pf)
}

func TestHistory(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	id, err := s.SaveRun(ctx, sampleRun())
	require.NoError(t, err)

	now := time.Now().UTC()
	summaries, err := s.History(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	sum := summaries[0]
	assert.Equal(t, id, sum.ID)
	assert.Equal(t, 100000.0, sum.InitialCapital)
	assert.Equal(t, 104200.0, sum.FinalEquity)
	assert.Equal(t, 1, sum.TotalTrades)
	assert.Equal(t, 1.0, sum.WinRate)
}

func TestHistory_EmptyRange(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.SaveRun(ctx, sampleRun())
	require.NoError(t, err)

	old := time.Now().UTC().AddDate(-1, 0, 0)
	summaries, err := s.History(ctx, old.Add(-time.Hour), old)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
