package execution

import (
	"context"
	"log/slog"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/internal/infra"
	"github.com/henryp-7/hft-bot/internal/venue"
)

// retryState is the explicit state of one routed submission. Attempt counts
// are data, not hidden loop structure.
type retryState int

const (
	stateSubmitting retryState = iota
	stateBackingOff
	stateExhausted
)

// Routed forwards orders to an external execution venue. Transient failures
// are retried with bounded exponential backoff; venue-reported rejections
// propagate immediately as permanent. A circuit breaker in front of the
// client sheds submissions while the venue is known to be failing.
type Routed struct {
	client      venue.Client
	maxAttempts int
	breaker     *infra.CircuitBreaker
}

func NewRouted(client venue.Client, maxAttempts int, breaker *infra.CircuitBreaker) *Routed {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Routed{client: client, maxAttempts: maxAttempts, breaker: breaker}
}

// Submit drives the bounded-retry state machine. The quote is not used for
// pricing (the venue prices the order); it is part of the Engine contract.
// Cancellation is observed during backoff waits: a canceled context returns
// ctx.Err with no fill, so a partially-confirmed fill is never applied.
func (r *Routed) Submit(ctx context.Context, req domain.OrderRequest, _ domain.Quote) (domain.Fill, error) {
	state := stateSubmitting
	attempt := 0
	var lastErr error

	for {
		switch state {
		case stateSubmitting:
			if r.breaker != nil && !r.breaker.Allow() {
				return domain.Fill{}, &RejectionError{Code: CodeVenueRejected, Symbol: req.Symbol, Err: errCircuitOpen}
			}

			fill, err := r.client.SubmitOrder(ctx, req)
			if err == nil {
				if r.breaker != nil {
					r.breaker.RecordSuccess()
				}
				return fill, nil
			}
			lastErr = err

			if !venue.IsTransient(err) {
				// Business rejection; the venue itself is healthy.
				return domain.Fill{}, &RejectionError{Code: CodeVenueRejected, Symbol: req.Symbol, Err: err}
			}
			if r.breaker != nil {
				r.breaker.RecordFailure()
			}

			attempt++
			if attempt >= r.maxAttempts {
				state = stateExhausted
			} else {
				state = stateBackingOff
			}

		case stateBackingOff:
			slog.Warn("venue submit failed, backing off",
				slog.String("symbol", req.Symbol),
				slog.Int("attempt", attempt),
				slog.Any("error", lastErr))
			if err := infra.SleepBackoff(ctx, attempt-1); err != nil {
				return domain.Fill{}, err
			}
			state = stateSubmitting

		case stateExhausted:
			return domain.Fill{}, &RejectionError{Code: CodeRetryExhausted, Symbol: req.Symbol, Err: lastErr}
		}
	}
}

var errCircuitOpen = venueUnavailableError{}

type venueUnavailableError struct{}

func (venueUnavailableError) Error() string { return "circuit breaker open, venue unavailable" }
