package backtest

// simulator.go — resuelve el precio de salida de cada trade contra el
// market data histórico y calcula su PnL.
//
// Cadena de resolución, en orden:
//  1. Lookup exacto (exit_date, strike).
//  2. Fallback a la fecha anterior más cercana con el mismo strike,
//     con una tolerancia máxima en días de calendario.
//  3. Sin fila utilizable → ErrNoData (skip por trade, nunca fatal).

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/voltrader/internal/domain"
)

// ErrNoData indica que no hay quote utilizable para resolver la salida
// de un trade. El caller cuenta el skip y sigue con el siguiente.
var ErrNoData = errors.New("no usable market data")

// DefaultExitToleranceDays es el gap máximo aceptado entre la fecha de
// salida pedida y el quote anterior más cercano.
const DefaultExitToleranceDays = 5

// Simulator resuelve precios de salida. Stateless por trade: puede
// invocarse concurrentemente sobre la misma tabla de quotes.
type Simulator struct {
	quotes        *domain.QuoteTable
	pricing       PricingPolicy
	toleranceDays int
}

// NewSimulator construye el simulador. pricing=nil usa HeuristicPricing;
// toleranceDays<=0 usa DefaultExitToleranceDays.
func NewSimulator(quotes *domain.QuoteTable, pricing PricingPolicy, toleranceDays int) *Simulator {
	if pricing == nil {
		pricing = HeuristicPricing{}
	}
	if toleranceDays <= 0 {
		toleranceDays = DefaultExitToleranceDays
	}
	return &Simulator{quotes: quotes, pricing: pricing, toleranceDays: toleranceDays}
}

// Resolve simula la salida de un trade y devuelve su resultado con
// status=executed. Devuelve ErrNoData (envuelto) si no hay quote
// utilizable dentro de la tolerancia.
func (s *Simulator) Resolve(trade domain.Trade) (domain.TradeResult, error) {
	exitDate := domain.Day(trade.ExitDate)

	quote, ok := s.quotes.Exact(exitDate, trade.Strike)
	if !ok {
		quote, ok = s.quotes.LatestBefore(exitDate, trade.Strike)
		if !ok {
			return domain.TradeResult{}, fmt.Errorf(
				"backtest.Resolve: exit %s strike %.2f: %w",
				exitDate.Format("2006-01-02"), trade.Strike, ErrNoData)
		}
		gapDays := exitDate.Sub(quote.QuoteDate).Hours() / 24
		if gapDays > float64(s.toleranceDays) {
			return domain.TradeResult{}, fmt.Errorf(
				"backtest.Resolve: exit %s strike %.2f: closest quote %s is %.0f days away: %w",
				exitDate.Format("2006-01-02"), trade.Strike,
				quote.QuoteDate.Format("2006-01-02"), gapDays, ErrNoData)
		}
		slog.Debug("exit quote fallback",
			"wanted", exitDate.Format("2006-01-02"),
			"using", quote.QuoteDate.Format("2006-01-02"),
			"strike", trade.Strike,
		)
	}

	underlying, ok := quote.Underlying()
	if !ok {
		return domain.TradeResult{}, fmt.Errorf(
			"backtest.Resolve: exit %s strike %.2f: no usable underlying price: %w",
			exitDate.Format("2006-01-02"), trade.Strike, ErrNoData)
	}

	exitPrice := s.pricing.ExitPrice(trade, quote, underlying)
	pnl := PnL(trade, exitPrice)

	pnlPct := 0.0
	if trade.EntryPrice != 0 {
		pnlPct = pnl / (trade.EntryPrice * float64(trade.Quantity)) * 100
	}

	return domain.TradeResult{
		EntryDate:      domain.Day(trade.EntryDate),
		ExitDate:       exitDate,
		ActualExitDate: quote.QuoteDate,
		Strike:         trade.Strike,
		Action:         trade.Action,
		PositionType:   trade.PositionType,
		EntryPrice:     trade.EntryPrice,
		ExitPrice:      exitPrice,
		Underlying:     underlying,
		Quantity:       trade.Quantity,
		Confidence:     trade.Confidence,
		PnL:            pnl,
		PnLPercent:     pnlPct,
		Status:         domain.StatusExecuted,
	}, nil
}

// PnL calcula el resultado realizado de cerrar el trade a exitPrice.
//
//	BUY:  (exit - entry) × quantity
//	SELL: (entry - exit) × quantity
func PnL(trade domain.Trade, exitPrice float64) float64 {
	qty := float64(trade.Quantity)
	if trade.Action == domain.ActionSell {
		return (trade.EntryPrice - exitPrice) * qty
	}
	return (exitPrice - trade.EntryPrice) * qty
}
