package strategy

// constructor.go — construye los trades candidatos a partir de las
// señales de mispricing y el chain de opciones.
//
// El join es inner y exacto sobre (quote_date, strike, expire_date):
// una señal sin fila de mercado no genera trade. El precio de entrada
// es el midpoint bid/ask del lado correspondiente (puts o calls).

import (
	"log/slog"
	"math"

	"github.com/alejandrodnm/voltrader/internal/domain"
	"github.com/alejandrodnm/voltrader/internal/risk"
)

// Constructor convierte señales en trades listos para el backtest.
// Con sizer == nil todos los trades salen con quantity 1 (sizing estático).
type Constructor struct {
	sizer     *risk.PositionSizer
	maxTrades int // 0 = sin límite
}

// New crea el constructor. maxTrades corta la muestra de señales para
// no desbordar runs exploratorios.
func New(sizer *risk.PositionSizer, maxTrades int) *Constructor {
	return &Constructor{sizer: sizer, maxTrades: maxTrades}
}

// Build junta cada señal con su fila de mercado y construye el trade:
// entrada en quote_date al midpoint, salida en expire_date.
// Las señales sin fila, sin midpoint o con sizing a cero se descartan
// y se cuentan — nunca abortan el batch.
func (c *Constructor) Build(signals []domain.Signal, quotes *domain.QuoteTable) []domain.Trade {
	if c.maxTrades > 0 && len(signals) > c.maxTrades {
		slog.Info("limiting signal sample", "total", len(signals), "max_trades", c.maxTrades)
		signals = signals[:c.maxTrades]
	}

	trades := make([]domain.Trade, 0, len(signals))
	unmatched, unpriced, zeroQty := 0, 0, 0

	for _, sig := range signals {
		quote, ok := quotes.Match(sig.QuoteDate, sig.Strike, sig.ExpireDate)
		if !ok {
			unmatched++
			continue
		}

		entryPrice, ok := entryMid(sig.PositionType, quote)
		if !ok {
			unpriced++
			continue
		}

		quantity := 1
		if c.sizer != nil {
			quantity = c.sizer.SizePosition(entryPrice, sig.Confidence)
			if quantity == 0 {
				zeroQty++
				continue
			}
		}

		trade := domain.Trade{
			EntryDate:    sig.QuoteDate,
			ExitDate:     sig.ExpireDate,
			Strike:       sig.Strike,
			Action:       sig.Action,
			PositionType: sig.PositionType,
			EntryPrice:   entryPrice,
			Confidence:   sig.Confidence,
			Quantity:     quantity,
		}
		if err := trade.Validate(); err != nil {
			slog.Debug("invalid trade from signal", "err", err)
			zeroQty++
			continue
		}
		trades = append(trades, trade)
	}

	slog.Info("trades constructed",
		"trades", len(trades),
		"signals", len(signals),
		"unmatched", unmatched,
		"unpriced", unpriced,
		"sized_out", zeroQty,
	)
	return trades
}

// entryMid devuelve el midpoint bid/ask del lado del signal.
func entryMid(pt domain.PositionType, q domain.OptionQuote) (float64, bool) {
	var mid float64
	var ok bool
	if pt == domain.PositionCall {
		mid, ok = domain.Mid(q.CallBid, q.CallAsk)
	} else {
		mid, ok = domain.Mid(q.PutBid, q.PutAsk)
	}
	if !ok || math.IsNaN(mid) || mid < 0 {
		return 0, false
	}
	return mid, true
}
