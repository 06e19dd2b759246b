// Package storage persists the run's audit trail: every quote the loop
// consumed and every fill it applied, plus end-of-run portfolio snapshots.
// Two journal backends exist; CSV for portability, SQLite for queryable
// history.
package storage

import (
	"github.com/henryp-7/hft-bot/internal/domain"
)

// Journal records quotes and fills in arrival order. Implementations are
// called only from the orchestrator's single control flow and may buffer;
// Flush forces buffered records to durable storage.
type Journal interface {
	AppendQuote(q domain.Quote) error
	AppendFill(f domain.Fill) error
	Flush() error
	Close() error
}
