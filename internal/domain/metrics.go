package domain

import (
	"math"
	"time"
)

// Metrics son las estadísticas agregadas de un backtest.
// Solo los trades con status=executed cuentan para las métricas de PnL;
// los contadores de skips se reportan siempre al lado para que el caller
// pueda juzgar la cobertura de datos.
type Metrics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalPnL      float64
	AvgPnL        float64
	MaxProfit     float64
	MaxLoss       float64
	AvgWin        float64
	AvgLoss       float64
	ProfitFactor  float64 // +Inf si no hay pérdidas
	CAGR          float64
	MaxDrawdown   float64
	SharpeRatio   float64
	FinalEquity   float64

	// Cobertura de datos
	SkippedOutOfRange int // fechas fuera del rango del market data
	SkippedNoData     int // sin quote utilizable dentro de la tolerancia
	SkippedHalted     int // bloqueados por el drawdown halt
}

// ComputeMetrics agrega las métricas sobre los resultados ejecutados.
// Las fórmulas replican la versión risk-managed del engine:
//
//	win_rate      = wins / total
//	profit_factor = gross_profit / |gross_loss|   (+Inf sin pérdidas)
func ComputeMetrics(results []TradeResult) Metrics {
	var m Metrics
	var grossProfit, grossLoss float64

	for _, r := range results {
		if r.Status != StatusExecuted {
			continue
		}
		if m.TotalTrades == 0 {
			m.MaxProfit = r.PnL
			m.MaxLoss = r.PnL
		}
		m.TotalTrades++
		m.TotalPnL += r.PnL
		if r.PnL > 0 {
			m.WinningTrades++
			grossProfit += r.PnL
		} else if r.PnL < 0 {
			m.LosingTrades++
			grossLoss += r.PnL
		}
		if r.PnL > m.MaxProfit {
			m.MaxProfit = r.PnL
		}
		if r.PnL < m.MaxLoss {
			m.MaxLoss = r.PnL
		}
	}

	if m.TotalTrades == 0 {
		return m
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	m.AvgPnL = m.TotalPnL / float64(m.TotalTrades)
	if m.WinningTrades > 0 {
		m.AvgWin = grossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = grossLoss / float64(m.LosingTrades)
	}
	if grossLoss != 0 {
		m.ProfitFactor = grossProfit / math.Abs(grossLoss)
	} else if grossProfit > 0 {
		m.ProfitFactor = math.Inf(1)
	}

	return m
}

// CAGR calcula el compound annual growth rate:
//
//	(final/initial)^(365.25/days) - 1
//
// Devuelve 0 si el periodo es vacío o algún capital no es positivo.
func CAGR(initialCapital, finalCapital float64, start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	if days <= 0 || initialCapital <= 0 || finalCapital <= 0 {
		return 0
	}
	years := days / 365.25
	return math.Pow(finalCapital/initialCapital, 1/years) - 1
}

// MaxDrawdownOf devuelve la caída fraccional máxima desde el pico
// histórico sobre una curva de equity.
func MaxDrawdownOf(equity []float64) float64 {
	var peak, maxDD float64
	for i, v := range equity {
		if i == 0 || v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// SharpeRatio calcula el ratio Sharpe anualizado (√252) sobre los
// retornos simples de la curva de equity. 0 si no hay varianza.
func SharpeRatio(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}
