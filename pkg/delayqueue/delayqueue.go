// Package delayqueue indexes paused executions by the time their delay
// elapses so the resumer can find due work without scanning the ledger.
package delayqueue

import (
	"context"
	"time"
)

// Queue is a time-ordered index of paused execution ids. It is an index only:
// the execution ledger stays the source of truth, and the resumer re-checks
// the checkpoint before resuming.
type Queue interface {
	// Schedule records that executionID may resume at resumeAt. Scheduling an
	// id twice keeps the latest time.
	Schedule(ctx context.Context, executionID string, resumeAt time.Time) error
	// Due returns up to limit ids whose time is not after now, oldest first.
	// A limit of zero or less means no limit.
	Due(ctx context.Context, now time.Time, limit int) ([]string, error)
	// Remove drops executionID from the index. Removing a missing id is not an error.
	Remove(ctx context.Context, executionID string) error
}
