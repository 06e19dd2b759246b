package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/pkg/quant"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the two known directions.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderRequest is an intent to trade emitted by a strategy. It lives only
// within one orchestrator iteration and is never persisted unless accepted.
type OrderRequest struct {
	Symbol   string
	Side     Side
	Qty      decimal.Decimal // base asset quantity, always positive
	Intent   string          // e.g. "rebalance", "sma_cross"
	ClientID string
}

// Validate checks the structural invariants of a request.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("order request missing symbol")
	}
	if !r.Side.Valid() {
		return fmt.Errorf("order request %s: unknown side %q", r.Symbol, r.Side)
	}
	if !r.Qty.IsPositive() {
		return fmt.Errorf("order request %s: quantity must be positive, got %s", r.Symbol, r.Qty)
	}
	return nil
}

// Fill is a confirmed execution. Created only by an execution engine and
// immutable once created; ledger mutation is its only consumer.
type Fill struct {
	ClientID string          `json:"client_id"`
	OrderID  string          `json:"order_id"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Qty      decimal.Decimal `json:"qty"` // always positive; Side carries direction
	Fee      decimal.Decimal `json:"fee"` // in quote currency
	Ts       quant.TimeStamp `json:"ts"`
}

// Notional returns price*qty, the monetary size of the fill.
func (f Fill) Notional() decimal.Decimal {
	return f.Price.Mul(f.Qty)
}

// SignedQty returns the quantity with buy positive and sell negative.
func (f Fill) SignedQty() decimal.Decimal {
	if f.Side == SideSell {
		return f.Qty.Neg()
	}
	return f.Qty
}
