package risk

import (
	"fmt"
	"log/slog"
)

// DrawdownLimiter monitoriza una secuencia de valores de equity y señala
// cuándo parar de abrir trades. Cada llamada se evalúa contra el pico
// histórico de forma independiente: el limiter NO recuerda haber disparado.
// Si la equity se recupera por encima del umbral volvería a devolver true,
// así que el caller debe fijar el halt por su cuenta (el runner lo hace).
type DrawdownLimiter struct {
	startingEquity float64
	maxDrawdownPct float64
	equityCurve    []float64
	peak           float64
}

// NewDrawdownLimiter construye el limiter con la equity inicial ya
// registrada en la curva.
func NewDrawdownLimiter(startingEquity, maxDrawdownPct float64) (*DrawdownLimiter, error) {
	if startingEquity <= 0 {
		return nil, fmt.Errorf("risk.NewDrawdownLimiter: starting equity %.2f must be positive", startingEquity)
	}
	if maxDrawdownPct <= 0 || maxDrawdownPct >= 1 {
		return nil, fmt.Errorf("risk.NewDrawdownLimiter: max_drawdown_pct %.4f must be in (0,1)", maxDrawdownPct)
	}
	return &DrawdownLimiter{
		startingEquity: startingEquity,
		maxDrawdownPct: maxDrawdownPct,
		equityCurve:    []float64{startingEquity},
		peak:           startingEquity,
	}, nil
}

// UpdateEquity registra un nuevo valor de equity y devuelve false si el
// drawdown desde el pico supera el máximo permitido.
func (d *DrawdownLimiter) UpdateEquity(newValue float64) bool {
	d.equityCurve = append(d.equityCurve, newValue)
	if newValue > d.peak {
		d.peak = newValue
	}

	drawdown := (d.peak - newValue) / d.peak
	if drawdown > d.maxDrawdownPct {
		slog.Warn("max drawdown exceeded",
			"drawdown", fmt.Sprintf("%.2f%%", drawdown*100),
			"limit", fmt.Sprintf("%.2f%%", d.maxDrawdownPct*100),
			"peak", fmt.Sprintf("%.2f", d.peak),
			"equity", fmt.Sprintf("%.2f", newValue),
		)
		return false
	}
	return true
}

// Peak devuelve el máximo de todos los valores registrados.
func (d *DrawdownLimiter) Peak() float64 { return d.peak }

// Drawdown devuelve la caída fraccional del último valor respecto al pico.
func (d *DrawdownLimiter) Drawdown() float64 {
	last := d.equityCurve[len(d.equityCurve)-1]
	return (d.peak - last) / d.peak
}

// EquityCurve devuelve una copia de la curva registrada (incluye la
// equity inicial).
func (d *DrawdownLimiter) EquityCurve() []float64 {
	out := make([]float64, len(d.equityCurve))
	copy(out, d.equityCurve)
	return out
}
