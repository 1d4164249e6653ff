package backtest

// pricing.go — valoración del precio de salida de una opción.
//
// La política por defecto usa el midpoint bid/ask cuando hay quotes
// utilizables y cae a valor intrínseco + un ajuste heurístico de time
// value cuando no los hay. Es una simplificación deliberada, no un
// modelo de pricing real: la interfaz existe para poder enchufar un
// Black-Scholes u otra política sin tocar el simulador.

import (
	"math"

	"github.com/alejandrodnm/voltrader/internal/domain"
)

// PricingPolicy valora el precio de salida de un trade dado el quote
// resuelto y el precio del subyacente.
type PricingPolicy interface {
	ExitPrice(trade domain.Trade, quote domain.OptionQuote, underlying float64) float64
}

// minDaysForQuotedPut: con menos de un mes hasta la salida, los puts se
// valoran por intrínseco aunque haya bid/ask (quotes cortos poco fiables
// en el dataset EOD original).
const minDaysForQuotedPut = 30

// maxTimeValueFactor acota el ajuste de time value al 20% del intrínseco.
const maxTimeValueFactor = 0.20

// HeuristicPricing es la política por defecto: midpoint si hay mercado,
// intrínseco + time value si no.
type HeuristicPricing struct{}

// ExitPrice implementa PricingPolicy.
func (HeuristicPricing) ExitPrice(trade domain.Trade, quote domain.OptionQuote, underlying float64) float64 {
	switch trade.PositionType {
	case domain.PositionPut:
		if trade.DaysHeld() >= minDaysForQuotedPut {
			if mid, ok := domain.Mid(quote.PutBid, quote.PutAsk); ok {
				return mid
			}
		}
		return intrinsicWithTimeValue(trade, math.Max(trade.Strike-underlying, 0))
	default: // CALL
		if mid, ok := domain.Mid(quote.CallBid, quote.CallAsk); ok {
			return mid
		}
		return intrinsicWithTimeValue(trade, math.Max(underlying-trade.Strike, 0))
	}
}

// intrinsicWithTimeValue añade al intrínseco un time value proporcional
// a los días en mercado: intrinsic × min(days/365, 0.20).
func intrinsicWithTimeValue(trade domain.Trade, intrinsic float64) float64 {
	days := trade.DaysHeld()
	if days <= 0 || intrinsic <= 0 {
		return intrinsic
	}
	factor := float64(days) / 365
	if factor > maxTimeValueFactor {
		factor = maxTimeValueFactor
	}
	return intrinsic + intrinsic*factor
}
