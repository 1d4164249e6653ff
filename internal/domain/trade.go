package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Action es la dirección del trade.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// PositionType es el tipo de contrato de opción.
type PositionType string

const (
	PositionCall PositionType = "CALL"
	PositionPut  PositionType = "PUT"
)

// ParseAction normaliza la acción ("buy", "SELL", ...).
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return ActionBuy, nil
	case "SELL":
		return ActionSell, nil
	}
	return "", fmt.Errorf("domain.ParseAction: unknown action %q", s)
}

// ParsePositionType normaliza el tipo de posición, incluyendo los alias
// legacy de los signals viejos (SHORT_PUT, LONG_CALL, ...). La dirección
// short/long vive en Action; aquí solo importa call vs put.
func ParsePositionType(s string) (PositionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "LONG_CALL", "SHORT_CALL":
		return PositionCall, nil
	case "PUT", "LONG_PUT", "SHORT_PUT":
		return PositionPut, nil
	}
	return "", fmt.Errorf("domain.ParsePositionType: unknown position type %q", s)
}

// Trade es un trade candidato, inmutable una vez construido.
// Confidence es opcional: NaN significa sin score (sizing neutro).
type Trade struct {
	EntryDate    time.Time
	ExitDate     time.Time
	Strike       float64
	Action       Action
	PositionType PositionType
	EntryPrice   float64 // por contrato
	Confidence   float64 // [0,1] o NaN
	Quantity     int     // nº de contratos
}

// Validate comprueba los invariantes del trade.
func (t Trade) Validate() error {
	if t.ExitDate.Before(t.EntryDate) {
		return fmt.Errorf("domain.Trade: exit date %s before entry date %s",
			t.ExitDate.Format("2006-01-02"), t.EntryDate.Format("2006-01-02"))
	}
	if t.Strike <= 0 {
		return fmt.Errorf("domain.Trade: strike %.2f must be positive", t.Strike)
	}
	if t.EntryPrice < 0 {
		return fmt.Errorf("domain.Trade: entry price %.4f must be non-negative", t.EntryPrice)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("domain.Trade: quantity %d must be positive", t.Quantity)
	}
	if t.Action != ActionBuy && t.Action != ActionSell {
		return fmt.Errorf("domain.Trade: invalid action %q", t.Action)
	}
	if t.PositionType != PositionCall && t.PositionType != PositionPut {
		return fmt.Errorf("domain.Trade: invalid position type %q", t.PositionType)
	}
	return nil
}

// HasConfidence indica si el trade lleva score de confianza utilizable.
func (t Trade) HasConfidence() bool {
	return !math.IsNaN(t.Confidence) && t.Confidence >= 0 && t.Confidence <= 1
}

// DaysHeld devuelve los días de calendario entre entrada y salida.
func (t Trade) DaysHeld() int {
	return int(t.ExitDate.Sub(t.EntryDate).Hours() / 24)
}

// TradeStatus es el estado final de un trade tras pasar por el runner.
type TradeStatus string

const (
	StatusExecuted            TradeStatus = "executed"
	StatusSkippedNoData       TradeStatus = "skipped_no_data"
	StatusSkippedDrawdownHalt TradeStatus = "skipped_drawdown_halt"
)

// TradeResult es el resultado de simular un trade.
// Equity se asigna durante la pasada secuencial del runner y es la equity
// acumulada DESPUÉS de aplicar el PnL (capado) de este trade.
type TradeResult struct {
	EntryDate      time.Time
	ExitDate       time.Time
	ActualExitDate time.Time // fecha del quote usado (puede ser anterior a ExitDate)
	Strike         float64
	Action         Action
	PositionType   PositionType
	EntryPrice     float64
	ExitPrice      float64
	Underlying     float64 // precio del subyacente en la salida
	Quantity       int
	Confidence     float64
	PnL            float64
	PnLPercent     float64
	Status         TradeStatus
	Equity         float64
}

// Win indica si el trade cerró en positivo.
func (r TradeResult) Win() bool {
	return r.PnL > 0
}
