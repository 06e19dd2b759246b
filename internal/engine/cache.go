package engine

import (
	"github.com/henryp-7/hft-bot/internal/domain"
)

// QuoteCache holds the latest quote per symbol. Last write wins; no
// history is kept. It is touched only by the orchestrator goroutine.
type QuoteCache struct {
	quotes map[string]domain.Quote
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{quotes: make(map[string]domain.Quote)}
}

// Put overwrites the cached quote for its symbol.
func (c *QuoteCache) Put(q domain.Quote) {
	c.quotes[q.Symbol] = q
}

// Get returns the cached quote and whether one exists.
func (c *QuoteCache) Get(symbol string) (domain.Quote, bool) {
	q, ok := c.quotes[symbol]
	return q, ok
}

// Snapshot returns a copy of the cache safe to hand to strategies.
func (c *QuoteCache) Snapshot() map[string]domain.Quote {
	out := make(map[string]domain.Quote, len(c.quotes))
	for k, v := range c.quotes {
		out[k] = v
	}
	return out
}

// Len returns the number of symbols with a cached quote.
func (c *QuoteCache) Len() int {
	return len(c.quotes)
}
