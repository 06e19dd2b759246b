package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/pkg/quant"
)

// Quote is a snapshot of the best bid/ask for one instrument at one moment.
// Quotes are transient: the orchestrator consumes one, updates its cache and
// discards it.
type Quote struct {
	Symbol   string          `json:"symbol"`
	BidPrice decimal.Decimal `json:"bid"`
	BidSize  decimal.Decimal `json:"bid_qty"`
	AskPrice decimal.Decimal `json:"ask"`
	AskSize  decimal.Decimal `json:"ask_qty"`
	Ts       quant.TimeStamp `json:"ts"`
}

// Mid returns the midpoint price, falling back to the populated side when
// one side of the book is empty.
func (q Quote) Mid() decimal.Decimal {
	return quant.Mid(q.BidPrice, q.AskPrice)
}

// IsZero reports whether the quote is the zero value.
func (q Quote) IsZero() bool {
	return q.Symbol == ""
}

// Validate checks structural invariants: a priced side must be positive and
// bid must not exceed ask when both sides are present.
func (q Quote) Validate() error {
	if q.Symbol == "" {
		return fmt.Errorf("quote missing symbol")
	}
	if q.BidPrice.IsNegative() || q.AskPrice.IsNegative() {
		return fmt.Errorf("quote %s: negative price (bid=%s ask=%s)", q.Symbol, q.BidPrice, q.AskPrice)
	}
	if q.BidSize.IsNegative() || q.AskSize.IsNegative() {
		return fmt.Errorf("quote %s: negative size", q.Symbol)
	}
	if q.BidPrice.IsPositive() && q.AskPrice.IsPositive() && q.BidPrice.GreaterThan(q.AskPrice) {
		return fmt.Errorf("quote %s: crossed book (bid=%s > ask=%s)", q.Symbol, q.BidPrice, q.AskPrice)
	}
	if q.BidPrice.IsZero() && q.AskPrice.IsZero() {
		return fmt.Errorf("quote %s: both sides empty", q.Symbol)
	}
	return nil
}
