package feed

import (
	"context"
	"sync"

	"github.com/henryp-7/hft-bot/internal/domain"
)

// conflator is the handoff buffer between the websocket reader goroutine
// and the trading loop. It keeps only the newest pending quote per symbol:
// when the loop falls behind, stale intermediate quotes are dropped rather
// than queued. Symbols are drained in arrival order.
type conflator struct {
	mu      sync.Mutex
	pending map[string]domain.Quote
	order   []string
	signal  chan struct{}
}

func newConflator() *conflator {
	return &conflator{
		pending: make(map[string]domain.Quote),
		signal:  make(chan struct{}, 1),
	}
}

// Push stores the quote, replacing any pending quote for the same symbol.
func (c *conflator) Push(q domain.Quote) {
	c.mu.Lock()
	if _, exists := c.pending[q.Symbol]; !exists {
		c.order = append(c.order, q.Symbol)
	}
	c.pending[q.Symbol] = q
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// Pop blocks until a pending quote is available or ctx is canceled.
func (c *conflator) Pop(ctx context.Context) (domain.Quote, error) {
	for {
		c.mu.Lock()
		if len(c.order) > 0 {
			sym := c.order[0]
			c.order = c.order[1:]
			q := c.pending[sym]
			delete(c.pending, sym)
			more := len(c.order) > 0
			c.mu.Unlock()

			if more {
				// Keep the signal hot for the remaining symbols.
				select {
				case c.signal <- struct{}{}:
				default:
				}
			}
			return q, nil
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		case <-c.signal:
		}
	}
}
