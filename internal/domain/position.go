package domain

import "github.com/shopspring/decimal"

// Position is a signed holding in one instrument. Owned exclusively by the
// portfolio ledger; updated only via fill application.
type Position struct {
	Symbol      string          `json:"symbol"`
	Qty         decimal.Decimal `json:"qty"`       // positive long, negative short
	AvgPrice    decimal.Decimal `json:"avg_price"` // volume-weighted entry price
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
}

// IsLong reports whether the position is long.
func (p Position) IsLong() bool { return p.Qty.IsPositive() }

// IsShort reports whether the position is short.
func (p Position) IsShort() bool { return p.Qty.IsNegative() }

// IsFlat reports whether the position is empty.
func (p Position) IsFlat() bool { return p.Qty.IsZero() }

// Notional returns the signed monetary size of the position at px.
func (p Position) Notional(px decimal.Decimal) decimal.Decimal {
	return p.Qty.Mul(px)
}

// UnrealizedPnL returns the mark-to-market gain against the entry price.
func (p Position) UnrealizedPnL(px decimal.Decimal) decimal.Decimal {
	if p.Qty.IsZero() {
		return decimal.Zero
	}
	return px.Sub(p.AvgPrice).Mul(p.Qty)
}
