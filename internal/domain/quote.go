package domain

import (
	"math"
	"sort"
	"time"
)

// OptionQuote es una fila del chain de opciones end-of-day.
// Los campos de precio ausentes en el CSV se representan como NaN,
// igual que hacía el pipeline de datos original.
type OptionQuote struct {
	QuoteDate       time.Time
	ExpireDate      time.Time
	Strike          float64
	UnderlyingPrice float64 // campo UNDERLYING_PRICE (puede ser NaN)
	UnderlyingLast  float64 // campo UNDERLYING_LAST, fallback del anterior
	CallBid         float64
	CallAsk         float64
	PutBid          float64
	PutAsk          float64
}

// Underlying devuelve el precio del subyacente, prefiriendo UNDERLYING_PRICE
// y cayendo a UNDERLYING_LAST si el primero no es utilizable.
func (q OptionQuote) Underlying() (float64, bool) {
	if !math.IsNaN(q.UnderlyingPrice) && q.UnderlyingPrice > 0 {
		return q.UnderlyingPrice, true
	}
	if !math.IsNaN(q.UnderlyingLast) && q.UnderlyingLast > 0 {
		return q.UnderlyingLast, true
	}
	return 0, false
}

// Mid devuelve el punto medio bid/ask si ambos lados son numéricos.
func Mid(bid, ask float64) (float64, bool) {
	if math.IsNaN(bid) || math.IsNaN(ask) {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// QuoteTable es la tabla de market data en memoria, de solo lectura.
// Indexa por strike con las filas ordenadas por fecha para resolver
// lookups exactos y por fecha-anterior-más-cercana.
type QuoteTable struct {
	byStrike map[float64][]OptionQuote // ordenadas por QuoteDate asc
	minDate  time.Time
	maxDate  time.Time
	size     int
}

// NewQuoteTable construye la tabla a partir de las filas del chain.
func NewQuoteTable(quotes []OptionQuote) *QuoteTable {
	t := &QuoteTable{byStrike: make(map[float64][]OptionQuote)}
	for _, q := range quotes {
		t.byStrike[q.Strike] = append(t.byStrike[q.Strike], q)
		if t.size == 0 || q.QuoteDate.Before(t.minDate) {
			t.minDate = q.QuoteDate
		}
		if t.size == 0 || q.QuoteDate.After(t.maxDate) {
			t.maxDate = q.QuoteDate
		}
		t.size++
	}
	for strike := range t.byStrike {
		rows := t.byStrike[strike]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].QuoteDate.Before(rows[j].QuoteDate)
		})
	}
	return t
}

// Len devuelve el número de filas cargadas.
func (t *QuoteTable) Len() int { return t.size }

// Span devuelve el rango de fechas [min, max] con datos disponibles.
// ok=false si la tabla está vacía.
func (t *QuoteTable) Span() (min, max time.Time, ok bool) {
	if t.size == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.minDate, t.maxDate, true
}

// Exact busca la fila con quote_date y strike exactos.
// Si varias filas comparten (fecha, strike) — distintos expiries — devuelve
// la primera en orden de carga.
func (t *QuoteTable) Exact(date time.Time, strike float64) (OptionQuote, bool) {
	for _, q := range t.byStrike[strike] {
		if q.QuoteDate.Equal(date) {
			return q, true
		}
	}
	return OptionQuote{}, false
}

// Match busca la fila con (quote_date, strike, expire_date) exactos.
// Es la clave del join signals × market data.
func (t *QuoteTable) Match(date time.Time, strike float64, expire time.Time) (OptionQuote, bool) {
	for _, q := range t.byStrike[strike] {
		if q.QuoteDate.Equal(date) && q.ExpireDate.Equal(expire) {
			return q, true
		}
	}
	return OptionQuote{}, false
}

// LatestBefore busca la fila con el mismo strike y el máximo quote_date <= date.
func (t *QuoteTable) LatestBefore(date time.Time, strike float64) (OptionQuote, bool) {
	rows := t.byStrike[strike]
	// primera fila con QuoteDate > date; la candidata es la anterior
	i := sort.Search(len(rows), func(i int) bool {
		return rows[i].QuoteDate.After(date)
	})
	if i == 0 {
		return OptionQuote{}, false
	}
	return rows[i-1], true
}

// Day normaliza un instante a medianoche UTC. Todas las fechas de quotes
// y trades se comparan a granularidad de día de calendario.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
