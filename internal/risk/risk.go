// Package risk implements stateless pre-trade checks against configured
// notional limits. Check is a pure function of the order request, the
// portfolio view and the latest quotes; it never mutates state.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/internal/portfolio"
	"github.com/henryp-7/hft-bot/pkg/quant"
)

// Reason is a machine-readable rejection code.
type Reason string

const (
	ReasonPerSymbolCap     Reason = "per_symbol_cap"
	ReasonAggregateCap     Reason = "aggregate_cap"
	ReasonNoQuote          Reason = "no_quote"
	ReasonInsufficientCash Reason = "insufficient_cash"
)

// RejectionError carries the reason an order request was refused.
type RejectionError struct {
	Reason Reason
	Symbol string
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("risk: %s rejected (%s)", e.Symbol, e.Reason)
	}
	return fmt.Sprintf("risk: %s rejected (%s): %s", e.Symbol, e.Reason, e.Detail)
}

// ReasonOf extracts the rejection reason from an error, or "" if the error
// is not a risk rejection.
func ReasonOf(err error) Reason {
	if rej, ok := err.(*RejectionError); ok {
		return rej.Reason
	}
	return ""
}

// Limits holds the configured notional caps. Immutable after construction;
// a non-positive cap means unlimited.
type Limits struct {
	PerSymbol        map[string]decimal.Decimal
	DefaultPerSymbol decimal.Decimal
	Aggregate        decimal.Decimal

	// Execution cost assumptions for the buy-side cash check. Fills land
	// at the ask plus slippage plus fee, so the check prices there too;
	// a buy that passes must be bookable at the eventual fill price.
	SlippageBps decimal.Decimal
	FeeBps      decimal.Decimal
}

// SymbolCap returns the effective per-instrument cap for sym.
func (l Limits) SymbolCap(sym string) decimal.Decimal {
	if cap, ok := l.PerSymbol[sym]; ok {
		return cap
	}
	return l.DefaultPerSymbol
}

// Manager evaluates order requests against the limits.
type Manager struct {
	limits Limits
}

func NewManager(limits Limits) *Manager {
	return &Manager{limits: limits}
}

// Check evaluates req against the configured limits, short-circuiting on
// the first failure. Projections price the instrument at the latest mid.
// Returns nil when the order is acceptable, *RejectionError otherwise.
func (m *Manager) Check(req domain.OrderRequest, view portfolio.View, quotes map[string]domain.Quote) error {
	q, ok := quotes[req.Symbol]
	if !ok || q.IsZero() {
		return &RejectionError{Reason: ReasonNoQuote, Symbol: req.Symbol, Detail: "cannot price order"}
	}
	mid := q.Mid()

	// Projected post-fill position notional for this instrument.
	pos := view.Position(req.Symbol)
	signedQty := req.Qty
	if req.Side == domain.SideSell {
		signedQty = signedQty.Neg()
	}
	projected := pos.Qty.Add(signedQty).Mul(mid).Abs()

	if cap := m.limits.SymbolCap(req.Symbol); cap.IsPositive() && projected.GreaterThan(cap) {
		return &RejectionError{
			Reason: ReasonPerSymbolCap,
			Symbol: req.Symbol,
			Detail: fmt.Sprintf("projected notional %s exceeds cap %s", projected, cap),
		}
	}

	if cap := m.limits.Aggregate; cap.IsPositive() {
		others := view.TotalExposure(quotes).Sub(view.Exposure(req.Symbol, quotes))
		total := others.Add(projected)
		if total.GreaterThan(cap) {
			return &RejectionError{
				Reason: ReasonAggregateCap,
				Symbol: req.Symbol,
				Detail: fmt.Sprintf("projected total notional %s exceeds cap %s", total, cap),
			}
		}
	}

	// Cash guard for buys, priced at the execution price: ask plus
	// slippage, plus the fee on notional. An order that passes here can
	// always be booked; the ledger's non-negative invariant is a backstop,
	// not the first line.
	if req.Side == domain.SideBuy {
		px := q.AskPrice
		if !px.IsPositive() {
			px = mid
		}
		px = quant.AddBps(px, m.limits.SlippageBps)
		notional := req.Qty.Mul(px)
		cost := notional.Add(quant.BpsOf(notional, m.limits.FeeBps))
		if view.Cash.LessThan(cost) {
			return &RejectionError{
				Reason: ReasonInsufficientCash,
				Symbol: req.Symbol,
				Detail: fmt.Sprintf("cost %s exceeds cash %s", cost, view.Cash),
			}
		}
	}

	return nil
}
