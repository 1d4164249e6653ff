package domain

import "time"

// BacktestRun es la salida completa de una ejecución del runner:
// resultados ordenados por fecha de entrada, curva de equity y métricas.
type BacktestRun struct {
	ID             string // lo asigna el storage al persistir
	RanAt          time.Time
	InitialCapital float64
	FinalEquity    float64
	Start          time.Time // primera entrada ejecutada
	End            time.Time // última salida real ejecutada
	EquityCurve    []float64 // incluye el capital inicial
	Results        []TradeResult
	Metrics        Metrics
}

// RunSummary es la vista ligera de un run persistido, para el histórico.
type RunSummary struct {
	ID             string
	RanAt          time.Time
	InitialCapital float64
	FinalEquity    float64
	TotalTrades    int
	WinRate        float64
	TotalPnL       float64
	MaxDrawdown    float64
	CAGR           float64
}
