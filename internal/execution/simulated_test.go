package execution

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/pkg/quant"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testQuote(sym, bid, ask string) domain.Quote {
	return domain.Quote{
		Symbol:   sym,
		BidPrice: d(bid),
		BidSize:  d("1"),
		AskPrice: d(ask),
		AskSize:  d("1"),
		Ts:       quant.TimeStamp(1700000000000),
	}
}

func TestSimulated_BuyFillsAtAskPlusSlippage(t *testing.T) {
	eng := NewSimulated(d("10"), d("0")) // 10 bps slippage, no fee
	q := testQuote("BTCUSDT", "99", "101")

	fill, err := eng.Submit(context.Background(), domain.OrderRequest{
		Symbol: "BTCUSDT", Side: domain.SideBuy, Qty: d("2"), ClientID: "c1",
	}, q)
	require.NoError(t, err)

	// 101 * (1 + 10/10000) = 101.101
	assert.True(t, fill.Price.Equal(d("101.101")), "price = %s", fill.Price)
	assert.True(t, fill.Qty.Equal(d("2")))
	assert.Equal(t, domain.SideBuy, fill.Side)
	assert.Equal(t, "c1", fill.ClientID)
	assert.NotEmpty(t, fill.OrderID)
	assert.True(t, fill.Fee.IsZero())
}

func TestSimulated_SellFillsAtBidMinusSlippage(t *testing.T) {
	eng := NewSimulated(d("10"), d("0"))
	q := testQuote("BTCUSDT", "99", "101")

	fill, err := eng.Submit(context.Background(), domain.OrderRequest{
		Symbol: "BTCUSDT", Side: domain.SideSell, Qty: d("1"),
	}, q)
	require.NoError(t, err)

	// 99 * (1 - 10/10000) = 98.901
	assert.True(t, fill.Price.Equal(d("98.901")), "price = %s", fill.Price)
}

func TestSimulated_FeeOnNotional(t *testing.T) {
	eng := NewSimulated(d("0"), d("10")) // no slippage, 10 bps fee
	q := testQuote("ETHUSDT", "1999", "2000")

	fill, err := eng.Submit(context.Background(), domain.OrderRequest{
		Symbol: "ETHUSDT", Side: domain.SideBuy, Qty: d("3"),
	}, q)
	require.NoError(t, err)

	// fee = 2000 * 3 * 10 / 10000 = 6
	assert.True(t, fill.Fee.Equal(d("6")), "fee = %s", fill.Fee)
}

func TestSimulated_NoQuoteRejected(t *testing.T) {
	eng := NewSimulated(d("0"), d("0"))

	_, err := eng.Submit(context.Background(), domain.OrderRequest{
		Symbol: "BTCUSDT", Side: domain.SideBuy, Qty: d("1"),
	}, domain.Quote{})
	require.Error(t, err)
	assert.Equal(t, CodeNoQuote, CodeOf(err))
}

func TestSimulated_OneSidedBookRejectsMissingSide(t *testing.T) {
	eng := NewSimulated(d("0"), d("0"))
	// Bid only: a buy has no ask to cross.
	q := domain.Quote{Symbol: "BTCUSDT", BidPrice: d("99"), BidSize: d("1"), Ts: quant.TimeStamp(1)}

	_, err := eng.Submit(context.Background(), domain.OrderRequest{
		Symbol: "BTCUSDT", Side: domain.SideBuy, Qty: d("1"),
	}, q)
	require.Error(t, err)
	assert.Equal(t, CodeNoQuote, CodeOf(err))

	// The sell side still works.
	fill, err := eng.Submit(context.Background(), domain.OrderRequest{
		Symbol: "BTCUSDT", Side: domain.SideSell, Qty: d("1"),
	}, q)
	require.NoError(t, err)
	assert.True(t, fill.Price.Equal(d("99")))
}
