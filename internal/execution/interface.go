package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/henryp-7/hft-bot/internal/domain"
)

// Rejection codes reported by execution engines.
const (
	CodeNoQuote        = "no_quote"
	CodeVenueRejected  = "venue_rejected"
	CodeRetryExhausted = "retry_exhausted"
)

// RejectionError is a permanent execution rejection: the order is dropped,
// the reason recorded, and no retry is attempted.
type RejectionError struct {
	Code   string
	Symbol string
	Err    error
}

func (e *RejectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("execution: %s rejected (%s)", e.Symbol, e.Code)
	}
	return fmt.Sprintf("execution: %s rejected (%s): %v", e.Symbol, e.Code, e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }

// CodeOf extracts the rejection code from an error, or "" if the error is
// not an execution rejection.
func CodeOf(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Code
	}
	return ""
}

// Engine turns an accepted order request into a confirmed fill.
// Implementations must not mutate any shared state; the ledger applies
// returned fills.
type Engine interface {
	Submit(ctx context.Context, req domain.OrderRequest, latest domain.Quote) (domain.Fill, error)
}
