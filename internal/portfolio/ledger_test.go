package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henryp-7/hft-bot/internal/domain"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func fill(sym string, side domain.Side, qty, price, fee string) domain.Fill {
	return domain.Fill{Symbol: sym, Side: side, Qty: d(qty), Price: d(price), Fee: d(fee)}
}

func TestLedger_BuyUpdatesCashAndVWAP(t *testing.T) {
	l, err := NewLedger("USDT", d("10000"))
	require.NoError(t, err)

	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideBuy, "1", "100", "0.1")))
	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideBuy, "1", "110", "0.1")))

	v := l.View()
	pos := v.Position("btcusdt")
	assert.True(t, pos.Qty.Equal(d("2")), "qty = %s", pos.Qty)
	assert.True(t, pos.AvgPrice.Equal(d("105")), "avg = %s", pos.AvgPrice)
	assert.True(t, v.Cash.Equal(d("9789.8")), "cash = %s", v.Cash)
}

func TestLedger_ReduceRealizesPnL(t *testing.T) {
	l, err := NewLedger("USDT", d("10000"))
	require.NoError(t, err)

	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideBuy, "2", "100", "0")))
	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideSell, "1", "120", "0")))

	pos := l.View().Position("btcusdt")
	assert.True(t, pos.Qty.Equal(d("1")))
	assert.True(t, pos.AvgPrice.Equal(d("100")), "avg must not change on reduce, got %s", pos.AvgPrice)
	assert.True(t, pos.RealizedPnL.Equal(d("20")), "realized = %s", pos.RealizedPnL)
}

func TestLedger_CloseResetsAvgPrice(t *testing.T) {
	l, err := NewLedger("USDT", d("10000"))
	require.NoError(t, err)

	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideBuy, "2", "100", "0")))
	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideSell, "2", "90", "0")))

	pos := l.View().Position("btcusdt")
	assert.True(t, pos.Qty.IsZero())
	assert.True(t, pos.AvgPrice.IsZero())
	assert.True(t, pos.RealizedPnL.Equal(d("-20")), "realized = %s", pos.RealizedPnL)
}

func TestLedger_FlipOpensAtFillPrice(t *testing.T) {
	l, err := NewLedger("USDT", d("10000"))
	require.NoError(t, err)

	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideBuy, "1", "100", "0")))
	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideSell, "3", "110", "0")))

	pos := l.View().Position("btcusdt")
	assert.True(t, pos.Qty.Equal(d("-2")), "qty = %s", pos.Qty)
	assert.True(t, pos.AvgPrice.Equal(d("110")), "avg = %s", pos.AvgPrice)
	assert.True(t, pos.RealizedPnL.Equal(d("10")), "realized = %s", pos.RealizedPnL)
}

func TestLedger_ShortCoverRealizesPnL(t *testing.T) {
	l, err := NewLedger("USDT", d("10000"))
	require.NoError(t, err)

	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideSell, "2", "100", "0")))
	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideBuy, "2", "90", "0")))

	pos := l.View().Position("btcusdt")
	assert.True(t, pos.Qty.IsZero())
	assert.True(t, pos.RealizedPnL.Equal(d("20")), "short cover at lower price should profit, got %s", pos.RealizedPnL)
}

func TestLedger_RejectsNegativeCash(t *testing.T) {
	l, err := NewLedger("USDT", d("100"))
	require.NoError(t, err)

	err = l.ApplyFill(fill("btcusdt", domain.SideBuy, "2", "100", "0"))
	require.ErrorIs(t, err, ErrInsufficientCash)

	// All-or-nothing: nothing changed.
	v := l.View()
	assert.True(t, v.Cash.Equal(d("100")))
	assert.True(t, v.Position("btcusdt").Qty.IsZero())
	assert.Empty(t, l.Fills())
}

// Realized PnL from incremental VWAP accounting must match a direct
// recomputation over the full fill history.
func TestLedger_RealizedPnLMatchesHistoryRecomputation(t *testing.T) {
	l, err := NewLedger("USDT", d("100000"))
	require.NoError(t, err)

	fills := []domain.Fill{
		fill("btcusdt", domain.SideBuy, "3", "100", "0"),
		fill("btcusdt", domain.SideBuy, "1", "120", "0"),
		fill("btcusdt", domain.SideSell, "2", "130", "0"),
		fill("btcusdt", domain.SideSell, "4", "90", "0"),
		fill("btcusdt", domain.SideBuy, "2", "80", "0"),
	}
	for _, f := range fills {
		require.NoError(t, l.ApplyFill(f))
	}

	// Replay the recorded history through a fresh ledger.
	replay, err := NewLedger("USDT", d("100000"))
	require.NoError(t, err)
	for _, f := range l.Fills() {
		require.NoError(t, replay.ApplyFill(f))
	}

	assert.True(t, l.RealizedPnL().Equal(replay.RealizedPnL()),
		"incremental %s vs recomputed %s", l.RealizedPnL(), replay.RealizedPnL())
	assert.True(t, l.View().Cash.Equal(replay.View().Cash))
}

func TestView_EquityAndExposure(t *testing.T) {
	l, err := NewLedger("USDT", d("1000"))
	require.NoError(t, err)
	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideBuy, "5", "100", "0")))

	quotes := map[string]domain.Quote{
		"btcusdt": {Symbol: "btcusdt", BidPrice: d("108"), AskPrice: d("112")},
	}
	v := l.View()
	// cash 500 + 5*110 mid
	assert.True(t, v.Equity(quotes).Equal(d("1050")), "equity = %s", v.Equity(quotes))
	assert.True(t, v.Exposure("btcusdt", quotes).Equal(d("550")))
	assert.True(t, v.TotalExposure(quotes).Equal(d("550")))
	// No quote, no exposure contribution.
	assert.True(t, v.Exposure("ethusdt", quotes).IsZero())
}

func TestView_IsACopy(t *testing.T) {
	l, err := NewLedger("USDT", d("1000"))
	require.NoError(t, err)
	require.NoError(t, l.ApplyFill(fill("btcusdt", domain.SideBuy, "1", "100", "0")))

	v := l.View()
	p := v.Positions["btcusdt"]
	p.Qty = d("999")
	v.Positions["btcusdt"] = p

	assert.True(t, l.View().Position("btcusdt").Qty.Equal(d("1")), "mutating a view must not touch the ledger")
}
