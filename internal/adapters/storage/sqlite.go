package storage

// sqlite.go — persistencia de runs de backtest.
//
// Estrategia:
//   - `runs`: una fila por ejecución con el snapshot de métricas.
//   - `trade_results`: una fila por trade del run (incluye skips del
//     drawdown halt; los skips por datos no generan resultado).
//   - Prune automático al arrancar: runs de más de 90 días fuera,
//     con sus resultados en cascada.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/voltrader/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    ran_at          DATETIME NOT NULL,
    initial_capital REAL NOT NULL,
    final_equity    REAL NOT NULL,
    start_date      DATETIME,
    end_date        DATETIME,
    total_trades    INTEGER NOT NULL DEFAULT 0,
    winning_trades  INTEGER NOT NULL DEFAULT 0,
    losing_trades   INTEGER NOT NULL DEFAULT 0,
    win_rate        REAL NOT NULL DEFAULT 0,
    total_pnl       REAL NOT NULL DEFAULT 0,
    avg_pnl         REAL NOT NULL DEFAULT 0,
    max_profit      REAL NOT NULL DEFAULT 0,
    max_loss        REAL NOT NULL DEFAULT 0,
    profit_factor   REAL NOT NULL DEFAULT 0,
    cagr            REAL NOT NULL DEFAULT 0,
    max_drawdown    REAL NOT NULL DEFAULT 0,
    sharpe_ratio    REAL NOT NULL DEFAULT 0,
    skipped_range   INTEGER NOT NULL DEFAULT 0,
    skipped_no_data INTEGER NOT NULL DEFAULT 0,
    skipped_halted  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trade_results (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    entry_date   DATETIME NOT NULL,
    exit_date    DATETIME NOT NULL,
    actual_exit  DATETIME NOT NULL,
    strike       REAL NOT NULL,
    action       TEXT NOT NULL,
    position     TEXT NOT NULL,
    entry_price  REAL NOT NULL,
    exit_price   REAL NOT NULL,
    underlying   REAL NOT NULL,
    quantity     INTEGER NOT NULL,
    pnl          REAL NOT NULL,
    status       TEXT NOT NULL,
    equity       REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_ran_at       ON runs(ran_at DESC);
CREATE INDEX IF NOT EXISTS idx_results_run       ON trade_results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_entry     ON trade_results(entry_date);
`

// retentionRuns: los runs viejos no aportan — la comparación útil es
// entre runs recientes con el mismo dataset.
const retentionRuns = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia runs antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRun persiste el run completo en una transacción.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *domain.BacktestRun) (string, error) {
	id := run.ID
	if id == "" {
		id = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("storage.SaveRun: begin: %w", err)
	}
	defer tx.Rollback()

	m := run.Metrics
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, ran_at, initial_capital, final_equity, start_date, end_date,
			total_trades, winning_trades, losing_trades, win_rate,
			total_pnl, avg_pnl, max_profit, max_loss, profit_factor,
			cagr, max_drawdown, sharpe_ratio,
			skipped_range, skipped_no_data, skipped_halted
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, run.RanAt, run.InitialCapital, run.FinalEquity, run.Start, run.End,
		m.TotalTrades, m.WinningTrades, m.LosingTrades, m.WinRate,
		m.TotalPnL, m.AvgPnL, m.MaxProfit, m.MaxLoss, finiteOr(m.ProfitFactor, -1),
		m.CAGR, m.MaxDrawdown, m.SharpeRatio,
		m.SkippedOutOfRange, m.SkippedNoData, m.SkippedHalted,
	)
	if err != nil {
		return "", fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trade_results (
			run_id, entry_date, exit_date, actual_exit, strike, action,
			position, entry_price, exit_price, underlying, quantity,
			pnl, status, equity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("storage.SaveRun: prepare results: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Results {
		if _, err := stmt.ExecContext(ctx,
			id, r.EntryDate, r.ExitDate, r.ActualExitDate, r.Strike, string(r.Action),
			string(r.PositionType), r.EntryPrice, r.ExitPrice, r.Underlying, r.Quantity,
			r.PnL, string(r.Status), r.Equity,
		); err != nil {
			return "", fmt.Errorf("storage.SaveRun: insert result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return id, nil
}

// History devuelve los resúmenes de runs en el rango [from, to].
func (s *SQLiteStorage) History(ctx context.Context, from, to time.Time) ([]domain.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ran_at, initial_capital, final_equity,
		       total_trades, win_rate, total_pnl, max_drawdown, cagr
		FROM runs
		WHERE ran_at >= ? AND ran_at <= ?
		ORDER BY ran_at DESC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.History: query: %w", err)
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		if err := rows.Scan(&r.ID, &r.RanAt, &r.InitialCapital, &r.FinalEquity,
			&r.TotalTrades, &r.WinRate, &r.TotalPnL, &r.MaxDrawdown, &r.CAGR); err != nil {
			return nil, fmt.Errorf("storage.History: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close cierra la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld borra runs más antiguos que la retención. Best effort.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	s.db.ExecContext(ctx, `DELETE FROM trade_results WHERE run_id IN (SELECT id FROM runs WHERE ran_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE ran_at < ?`, cutoff)
}

// finiteOr sustituye ±Inf/NaN por un sentinel; SQLite no almacena Inf.
func finiteOr(v, sentinel float64) float64 {
	if v != v || v > 1e308 || v < -1e308 {
		return sentinel
	}
	return v
}
