package delayqueue

import (
	"context"
	"time"

	"github.com/dukex/autoflow/pkg/persistence"
)

// LedgerQueue answers Due straight from the execution ledger, which already
// stores each delay checkpoint's resume time. Schedule and Remove are no-ops.
type LedgerQueue struct {
	executions persistence.ExecutionRepository
}

func NewLedgerQueue(executions persistence.ExecutionRepository) *LedgerQueue {
	return &LedgerQueue{executions: executions}
}

func (q *LedgerQueue) Schedule(context.Context, string, time.Time) error {
	return nil
}

func (q *LedgerQueue) Due(ctx context.Context, now time.Time, limit int) ([]string, error) {
	due, err := q.executions.ListDue(ctx, now)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	ids := make([]string, 0, len(due))
	for _, execution := range due {
		ids = append(ids, execution.ID)
	}

	return ids, nil
}

func (q *LedgerQueue) Remove(context.Context, string) error {
	return nil
}
