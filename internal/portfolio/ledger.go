package portfolio

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/internal/domain"
)

var (
	ErrInsufficientCash = errors.New("fill would drive cash balance negative")
	ErrUnknownSide      = errors.New("unknown fill side")
)

// Ledger is the authoritative cash/position/PnL state. It is mutated only by
// applying confirmed fills, and only from the orchestrator's single control
// flow; no internal locking is needed.
type Ledger struct {
	quoteCcy  string
	cash      decimal.Decimal
	positions map[string]*domain.Position
	fills     []domain.Fill
}

// View is a read-only copy of ledger state handed to strategies and risk
// checks. Derived values (equity, exposure) are computed against a quote map
// rather than stored.
type View struct {
	QuoteCcy  string
	Cash      decimal.Decimal
	Positions map[string]domain.Position
}

// NewLedger creates a ledger holding initialCash of the quote currency and
// zero positions.
func NewLedger(quoteCcy string, initialCash decimal.Decimal) (*Ledger, error) {
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("initial cash must not be negative, got %s", initialCash)
	}
	return &Ledger{
		quoteCcy:  quoteCcy,
		cash:      initialCash,
		positions: make(map[string]*domain.Position),
	}, nil
}

// ApplyFill applies a confirmed fill as a single state transition: cash is
// debited/credited by price*qty plus/minus fee and the position is updated
// with volume-weighted average price accounting. The transition is
// all-or-nothing: on error the ledger is unchanged.
func (l *Ledger) ApplyFill(f domain.Fill) error {
	if !f.Side.Valid() {
		return ErrUnknownSide
	}
	if !f.Qty.IsPositive() {
		return fmt.Errorf("fill %s: quantity must be positive, got %s", f.Symbol, f.Qty)
	}

	signedQty := f.SignedQty()

	// Buy spends notional, sell receives it; fees are always a debit.
	newCash := l.cash.Sub(f.Price.Mul(signedQty)).Sub(f.Fee)
	if newCash.IsNegative() {
		return fmt.Errorf("fill %s %s %s @ %s: %w", f.Symbol, f.Side, f.Qty, f.Price, ErrInsufficientCash)
	}

	pos, ok := l.positions[f.Symbol]
	if !ok {
		pos = &domain.Position{Symbol: f.Symbol}
	}

	oldQty := pos.Qty
	newQty := oldQty.Add(signedQty)

	switch {
	case oldQty.IsZero():
		pos.AvgPrice = f.Price

	case sameSign(oldQty, signedQty):
		// Increasing the existing side: weighted average entry price.
		pos.AvgPrice = weightedAvg(pos.AvgPrice, oldQty.Abs(), f.Price, f.Qty)

	default:
		// Reducing, closing or flipping: realize PnL on the closed quantity.
		closed := decimal.Min(f.Qty, oldQty.Abs())
		pnl := f.Price.Sub(pos.AvgPrice).Mul(closed)
		if oldQty.IsNegative() {
			pnl = pnl.Neg()
		}
		pos.RealizedPnL = pos.RealizedPnL.Add(pnl)

		if newQty.IsZero() {
			pos.AvgPrice = decimal.Zero
		} else if !sameSign(oldQty, newQty) {
			// Crossed through zero: the remainder opens at the fill price.
			pos.AvgPrice = f.Price
		}
	}

	pos.Qty = newQty
	l.positions[f.Symbol] = pos
	l.cash = newCash
	l.fills = append(l.fills, f)
	return nil
}

// View returns a deep-copied read-only snapshot of the ledger state.
func (l *Ledger) View() View {
	positions := make(map[string]domain.Position, len(l.positions))
	for sym, pos := range l.positions {
		positions[sym] = *pos
	}
	return View{QuoteCcy: l.quoteCcy, Cash: l.cash, Positions: positions}
}

// Fills returns a copy of the full fill history in application order.
func (l *Ledger) Fills() []domain.Fill {
	out := make([]domain.Fill, len(l.fills))
	copy(out, l.fills)
	return out
}

// RealizedPnL sums realized PnL across all positions.
func (l *Ledger) RealizedPnL() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range l.positions {
		total = total.Add(pos.RealizedPnL)
	}
	return total
}

// Position returns the position for sym, or an empty one if none exists.
func (v View) Position(sym string) domain.Position {
	if pos, ok := v.Positions[sym]; ok {
		return pos
	}
	return domain.Position{Symbol: sym}
}

// Equity is cash plus the mid-priced value of every position with a quote.
func (v View) Equity(quotes map[string]domain.Quote) decimal.Decimal {
	eq := v.Cash
	for sym, pos := range v.Positions {
		if q, ok := quotes[sym]; ok {
			eq = eq.Add(pos.Notional(q.Mid()))
		}
	}
	return eq
}

// Exposure is the absolute mid-priced notional of one position. Zero when no
// quote is available.
func (v View) Exposure(sym string, quotes map[string]domain.Quote) decimal.Decimal {
	q, ok := quotes[sym]
	if !ok {
		return decimal.Zero
	}
	return v.Position(sym).Notional(q.Mid()).Abs()
}

// TotalExposure sums absolute position notionals across all instruments.
func (v View) TotalExposure(quotes map[string]domain.Quote) decimal.Decimal {
	total := decimal.Zero
	for sym := range v.Positions {
		total = total.Add(v.Exposure(sym, quotes))
	}
	return total
}

func sameSign(a, b decimal.Decimal) bool {
	return (a.IsPositive() && b.IsPositive()) || (a.IsNegative() && b.IsNegative())
}

func weightedAvg(avgPrice, qty, addPrice, addQty decimal.Decimal) decimal.Decimal {
	if qty.IsZero() {
		return addPrice
	}
	return avgPrice.Mul(qty).Add(addPrice.Mul(addQty)).Div(qty.Add(addQty))
}
