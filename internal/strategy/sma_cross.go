package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/internal/domain"
)

// SMACross implements a simple moving-average crossover over mid prices.
// It is stateful and deterministic. Kept as the second pluggable strategy;
// any Strategy implementation can be swapped in without engine changes.
type SMACross struct {
	symbol      string
	shortPeriod int
	longPeriod  int
	orderQty    decimal.Decimal

	// Ring buffer of the last longPeriod mids.
	prices []decimal.Decimal
	head   int
	count  int
	sum    decimal.Decimal

	prevShort decimal.Decimal
	prevLong  decimal.Decimal
	warmedUp  bool
}

func NewSMACross(symbol string, shortPeriod, longPeriod int, orderQty decimal.Decimal) *SMACross {
	if shortPeriod >= longPeriod {
		panic("strategy: shortPeriod must be less than longPeriod")
	}
	return &SMACross{
		symbol:      symbol,
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		orderQty:    orderQty,
		prices:      make([]decimal.Decimal, longPeriod),
		sum:         decimal.Zero,
	}
}

func (s *SMACross) OnQuote(q domain.Quote, _ Snapshot) []domain.OrderRequest {
	if q.Symbol != s.symbol {
		return nil
	}
	mid := q.Mid()

	if s.count == s.longPeriod {
		s.sum = s.sum.Sub(s.prices[s.head])
	}
	s.prices[s.head] = mid
	s.sum = s.sum.Add(mid)
	s.head = (s.head + 1) % s.longPeriod
	if s.count < s.longPeriod {
		s.count++
	}
	if s.count < s.longPeriod {
		return nil
	}

	longSMA := s.sum.Div(decimal.NewFromInt(int64(s.longPeriod)))
	shortSMA := s.shortSMA()

	var orders []domain.OrderRequest
	if s.warmedUp {
		// Golden cross: short rises above long.
		if s.prevShort.LessThanOrEqual(s.prevLong) && shortSMA.GreaterThan(longSMA) {
			orders = append(orders, domain.OrderRequest{
				Symbol: s.symbol, Side: domain.SideBuy, Qty: s.orderQty, Intent: "sma_cross",
			})
		}
		// Dead cross: short falls below long.
		if s.prevShort.GreaterThanOrEqual(s.prevLong) && shortSMA.LessThan(longSMA) {
			orders = append(orders, domain.OrderRequest{
				Symbol: s.symbol, Side: domain.SideSell, Qty: s.orderQty, Intent: "sma_cross",
			})
		}
	}

	s.prevShort = shortSMA
	s.prevLong = longSMA
	s.warmedUp = true
	return orders
}

func (s *SMACross) shortSMA() decimal.Decimal {
	sum := decimal.Zero
	idx := s.head
	for i := 0; i < s.shortPeriod; i++ {
		idx--
		if idx < 0 {
			idx = s.longPeriod - 1
		}
		sum = sum.Add(s.prices[idx])
	}
	return sum.Div(decimal.NewFromInt(int64(s.shortPeriod)))
}
