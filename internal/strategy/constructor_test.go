package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/voltrader/internal/domain"
	"github.com/alejandrodnm/voltrader/internal/risk"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// chainFixture: un chain mínimo con una fila de puts con mercado, una
// fila sin bid/ask y un expire alternativo.
func chainFixture() *domain.QuoteTable {
	nan := math.NaN()
	return domain.NewQuoteTable([]domain.OptionQuote{
		{
			QuoteDate:       day(2023, 3, 1),
			ExpireDate:      day(2023, 4, 21),
			Strike:          400,
			UnderlyingPrice: nan,
			UnderlyingLast:  402,
			CallBid:         3.0,
			CallAsk:         3.4,
			PutBid:          4.0,
			PutAsk:          4.4,
		},
		{
			QuoteDate:       day(2023, 3, 1),
			ExpireDate:      day(2023, 4, 21),
			Strike:          410,
			UnderlyingPrice: nan,
			UnderlyingLast:  402,
			CallBid:         nan,
			CallAsk:         nan,
			PutBid:          nan,
			PutAsk:          nan,
		},
	})
}

func putSignal(strike float64) domain.Signal {
	return domain.Signal{
		QuoteDate:    day(2023, 3, 1),
		ExpireDate:   day(2023, 4, 21),
		Strike:       strike,
		Action:       domain.ActionSell,
		PositionType: domain.PositionPut,
		Confidence:   0.8,
	}
}

func TestBuild_JoinAndEntryPrice(t *testing.T) {
	c := New(nil, 0) // sizing estático
	trades := c.Build([]domain.Signal{putSignal(400)}, chainFixture())

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, day(2023, 3, 1), tr.EntryDate)
	assert.Equal(t, day(2023, 4, 21), tr.ExitDate)
	assert.InDelta(t, 4.2, tr.EntryPrice, 1e-9) // midpoint del lado put
	assert.Equal(t, 1, tr.Quantity)
	assert.Equal(t, domain.ActionSell, tr.Action)
}

func TestBuild_CallSideMid(t *testing.T) {
	sig := putSignal(400)
	sig.Action = domain.ActionBuy
	sig.PositionType = domain.PositionCall

	trades := New(nil, 0).Build([]domain.Signal{sig}, chainFixture())
	require.Len(t, trades, 1)
	assert.InDelta(t, 3.2, trades[0].EntryPrice, 1e-9)
}

func TestBuild_UnmatchedSignalSkipped(t *testing.T) {
	// Strike inexistente y expire que no casa: ninguno genera trade.
	wrongExpire := putSignal(400)
	wrongExpire.ExpireDate = day(2023, 5, 19)

	trades := New(nil, 0).Build([]domain.Signal{
		putSignal(395),
		wrongExpire,
	}, chainFixture())

	assert.Empty(t, trades)
}

func TestBuild_UnpricedSignalSkipped(t *testing.T) {
	// La fila del 410 existe pero no tiene bid/ask.
	trades := New(nil, 0).Build([]domain.Signal{putSignal(410)}, chainFixture())
	assert.Empty(t, trades)
}

func TestBuild_SizerQuantity(t *testing.T) {
	sizer, err := risk.NewPositionSizer(100000, 0.01, 0.05, 100)
	require.NoError(t, err)

	trades := New(sizer, 0).Build([]domain.Signal{putSignal(400)}, chainFixture())
	require.Len(t, trades, 1)

	// riesgo 1000/4.2=238, máx 5000/4.2=1190 → 238 × 0.9 = 214 → cap 100
	assert.Equal(t, 100, trades[0].Quantity)
}

func TestBuild_SizedOutSkipped(t *testing.T) {
	// Con capital menor que el coste de un contrato el sizer devuelve 0.
	sizer, err := risk.NewPositionSizer(2, 1.0, 1.0, 100)
	require.NoError(t, err)

	trades := New(sizer, 0).Build([]domain.Signal{putSignal(400)}, chainFixture())
	assert.Empty(t, trades)
}

func TestBuild_MaxTradesCap(t *testing.T) {
	signals := []domain.Signal{putSignal(400), putSignal(400), putSignal(400)}

	trades := New(nil, 2).Build(signals, chainFixture())
	assert.Len(t, trades, 2)
}

func TestBuild_EmptySignals(t *testing.T) {
	assert.Empty(t, New(nil, 0).Build(nil, chainFixture()))
}
