package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/voltrader/internal/domain"
	"github.com/alejandrodnm/voltrader/internal/risk"
)

// maxTableRows limita la tabla de trades; con muestras grandes lo útil
// es el resumen, no mil filas.
const maxTableRows = 50

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Report imprime el resultado del run en el modo configurado.
func (c *Console) Report(_ context.Context, run *domain.BacktestRun) error {
	if len(run.Results) == 0 {
		fmt.Fprintf(c.out, "[%s] no trades executed (out_of_range=%d, no_data=%d)\n",
			time.Now().Format("15:04:05"),
			run.Metrics.SkippedOutOfRange, run.Metrics.SkippedNoData)
		return nil
	}

	if c.table {
		c.printTrades(run)
	}
	c.printSummary(run)
	return nil
}

// printTrades imprime la tabla de trades (hasta maxTableRows).
func (c *Console) printTrades(run *domain.BacktestRun) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Entry", "Exit", "Strike", "Side", "Type", "Qty", "Entry$", "Exit$", "PnL", "Equity", "Status")

	for i, r := range run.Results {
		if i >= maxTableRows {
			fmt.Fprintf(c.out, "  ... %d more trades omitted\n", len(run.Results)-maxTableRows)
			break
		}
		equity := "-"
		if r.Status == domain.StatusExecuted {
			equity = fmt.Sprintf("$%.2f", r.Equity)
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			r.EntryDate.Format("2006-01-02"),
			r.ActualExitDate.Format("2006-01-02"),
			fmt.Sprintf("%.2f", r.Strike),
			string(r.Action),
			string(r.PositionType),
			fmt.Sprintf("%d", r.Quantity),
			fmt.Sprintf("$%.2f", r.EntryPrice),
			fmt.Sprintf("$%.2f", r.ExitPrice),
			fmt.Sprintf("$%.2f", r.PnL),
			equity,
			string(r.Status),
		)
	}

	table.Render()
}

// printSummary imprime las métricas agregadas del run.
func (c *Console) printSummary(run *domain.BacktestRun) {
	m := run.Metrics

	pfLabel := fmt.Sprintf("%.2f", m.ProfitFactor)
	if math.IsInf(m.ProfitFactor, 1) {
		pfLabel = "INF"
	}

	fmt.Fprintf(c.out, "\n=== BACKTEST RESULTS ===\n")
	fmt.Fprintf(c.out, "Period:         %s → %s\n",
		run.Start.Format("2006-01-02"), run.End.Format("2006-01-02"))
	fmt.Fprintf(c.out, "Total Trades:   %d (W:%d L:%d)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Fprintf(c.out, "Win Rate:       %.2f%%\n", m.WinRate*100)
	fmt.Fprintf(c.out, "Total P&L:      $%.2f\n", m.TotalPnL)
	fmt.Fprintf(c.out, "Average P&L:    $%.2f\n", m.AvgPnL)
	fmt.Fprintf(c.out, "Max Profit:     $%.2f\n", m.MaxProfit)
	fmt.Fprintf(c.out, "Max Loss:       $%.2f\n", m.MaxLoss)
	fmt.Fprintf(c.out, "Profit Factor:  %s\n", pfLabel)
	fmt.Fprintf(c.out, "CAGR:           %.2f%%\n", m.CAGR*100)
	fmt.Fprintf(c.out, "Max Drawdown:   %.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(c.out, "Sharpe Ratio:   %.2f\n", m.SharpeRatio)
	fmt.Fprintf(c.out, "Final Equity:   $%.2f (from $%.2f)\n", run.FinalEquity, run.InitialCapital)
	fmt.Fprintf(c.out, "Skipped:        %d out-of-range, %d no-data, %d drawdown-halt\n",
		m.SkippedOutOfRange, m.SkippedNoData, m.SkippedHalted)
}

// PrintHistory imprime los resúmenes de runs persistidos.
func (c *Console) PrintHistory(summaries []domain.RunSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(c.out, "no persisted runs in range")
		return
	}

	fmt.Fprintf(c.out, "\n=== RUN HISTORY ===\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Ran At", "Capital", "Final Equity", "Trades", "WinRate", "Total PnL", "MaxDD", "CAGR")
	for _, s := range summaries {
		table.Append(
			s.ID,
			s.RanAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("$%.2f", s.InitialCapital),
			fmt.Sprintf("$%.2f", s.FinalEquity),
			fmt.Sprintf("%d", s.TotalTrades),
			fmt.Sprintf("%.1f%%", s.WinRate*100),
			fmt.Sprintf("$%.2f", s.TotalPnL),
			fmt.Sprintf("%.2f%%", s.MaxDrawdown*100),
			fmt.Sprintf("%.2f%%", s.CAGR*100),
		)
	}
	table.Render()
}

// PrintSweep imprime las filas del barrido de parámetros, más el top 3
// por equity final y por Sharpe.
func (c *Console) PrintSweep(results []risk.SweepResult) {
	if len(results) == 0 {
		fmt.Fprintln(c.out, "no sweep results")
		return
	}

	fmt.Fprintf(c.out, "\n=== PARAMETER SWEEP RESULTS ===\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("Risk/Trade", "MaxDD", "Trades", "WinRate", "Total PnL", "Sharpe", "MaxDD real", "Final Equity")
	for _, r := range results {
		table.Append(
			fmt.Sprintf("%.2f%%", r.RiskPerTrade*100),
			fmt.Sprintf("%.0f%%", r.MaxDrawdownPct*100),
			fmt.Sprintf("%d", r.Metrics.TotalTrades),
			fmt.Sprintf("%.1f%%", r.Metrics.WinRate*100),
			fmt.Sprintf("$%.2f", r.Metrics.TotalPnL),
			fmt.Sprintf("%.2f", r.Metrics.SharpeRatio),
			fmt.Sprintf("%.2f%%", r.Metrics.MaxDrawdown*100),
			fmt.Sprintf("$%.2f", r.Metrics.FinalEquity),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "\nBest by final equity:")
	for _, r := range risk.BestByFinalEquity(results, 3) {
		fmt.Fprintf(c.out, "  risk=%.2f%% dd=%.0f%% → $%.2f (win %.1f%%)\n",
			r.RiskPerTrade*100, r.MaxDrawdownPct*100, r.Metrics.FinalEquity, r.Metrics.WinRate*100)
	}
	fmt.Fprintln(c.out, "Best by Sharpe:")
	for _, r := range risk.BestBySharpe(results, 3) {
		fmt.Fprintf(c.out, "  risk=%.2f%% dd=%.0f%% → sharpe %.2f ($%.2f)\n",
			r.RiskPerTrade*100, r.MaxDrawdownPct*100, r.Metrics.SharpeRatio, r.Metrics.FinalEquity)
	}
}
