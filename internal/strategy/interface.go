package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/internal/portfolio"
)

// Snapshot is the read-only world state a strategy decides on: the latest
// quote per instrument and a copy of the portfolio.
type Snapshot struct {
	Quotes    map[string]domain.Quote
	Portfolio portfolio.View
}

// Equity returns total portfolio value: cash plus mid-priced positions.
func (s Snapshot) Equity() decimal.Decimal {
	return s.Portfolio.Equity(s.Quotes)
}

// Strategy defines the decision interface. Implementations are invoked once
// per processed quote from the orchestrator's single control flow and may
// keep internal state without locking.
type Strategy interface {
	// OnQuote returns zero or more order requests in emission order.
	OnQuote(q domain.Quote, snap Snapshot) []domain.OrderRequest
}

// Multi fans one quote out to several strategies and concatenates their
// requests in strategy order.
type Multi []Strategy

func (m Multi) OnQuote(q domain.Quote, snap Snapshot) []domain.OrderRequest {
	var out []domain.OrderRequest
	for _, s := range m {
		out = append(out, s.OnQuote(q, snap)...)
	}
	return out
}
