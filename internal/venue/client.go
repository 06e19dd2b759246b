// Package venue holds the external execution-venue collaborator: the
// interface the routed execution engine talks to, and the concrete exchange
// client implementation.
package venue

import (
	"context"
	"errors"
	"fmt"

	"github.com/henryp-7/hft-bot/internal/domain"
)

// Client submits orders to an execution venue and returns the resulting
// fill. Errors are either *TransientError (worth retrying: network faults,
// timeouts, throttling) or permanent venue rejections.
type Client interface {
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.Fill, error)
}

// TransientError wraps a failure that the caller may retry with backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("venue: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	return &TransientError{Err: err}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
