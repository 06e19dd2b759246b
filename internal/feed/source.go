// Package feed produces the quote stream the trading loop consumes: a live
// websocket source for real-time book tickers and a deterministic replay
// source over archived tick files. Both yield quotes through the same
// Source interface so the loop is agnostic to where ticks come from.
package feed

import (
	"context"
	"errors"

	"github.com/henryp-7/hft-bot/internal/domain"
)

// ErrExhausted signals that a finite source has delivered its last quote.
// The loop treats it as a clean end of stream, not a failure.
var ErrExhausted = errors.New("feed: source exhausted")

// Source yields quotes one at a time. Next blocks until a quote is
// available, the source ends (ErrExhausted), the context is canceled, or
// the source fails fatally.
type Source interface {
	Next(ctx context.Context) (domain.Quote, error)
	Close() error
}
