package domain

import "time"

// Signal es una señal de mispricing producida por el modelo de superficie
// de volatilidad (colaborador externo). Se junta con el chain por
// (quote_date, strike, expire_date) para construir el trade.
type Signal struct {
	QuoteDate    time.Time
	ExpireDate   time.Time
	Strike       float64
	Action       Action
	PositionType PositionType
	Confidence   float64 // [0,1] o NaN
}
