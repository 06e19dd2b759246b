package execution

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/pkg/quant"
)

// Simulated fills the full requested quantity immediately at the opposing
// best price, adjusted by configured slippage against the requester, with a
// fee in basis points on notional. No partial fills, no queueing, no latency
// model; this is a deliberate simplification of the fill process.
type Simulated struct {
	slippageBps decimal.Decimal
	feeBps      decimal.Decimal
	now         func() quant.TimeStamp
}

func NewSimulated(slippageBps, feeBps decimal.Decimal) *Simulated {
	return &Simulated{
		slippageBps: slippageBps,
		feeBps:      feeBps,
		now:         quant.Now,
	}
}

func (s *Simulated) Submit(_ context.Context, req domain.OrderRequest, latest domain.Quote) (domain.Fill, error) {
	var px decimal.Decimal
	switch req.Side {
	case domain.SideBuy:
		px = latest.AskPrice
	case domain.SideSell:
		px = latest.BidPrice
	}
	if latest.IsZero() || !px.IsPositive() {
		return domain.Fill{}, &RejectionError{Code: CodeNoQuote, Symbol: req.Symbol}
	}

	// Slippage always moves the price against the requester.
	if req.Side == domain.SideBuy {
		px = quant.AddBps(px, s.slippageBps)
	} else {
		px = quant.SubBps(px, s.slippageBps)
	}

	fee := quant.BpsOf(px.Mul(req.Qty), s.feeBps)

	return domain.Fill{
		ClientID: req.ClientID,
		OrderID:  uuid.NewString(),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Price:    px,
		Qty:      req.Qty,
		Fee:      fee,
		Ts:       s.now(),
	}, nil
}
