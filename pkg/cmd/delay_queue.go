package cmd

import (
	"context"
	"fmt"

	"github.com/dukex/autoflow/pkg/delayqueue"
	"github.com/dukex/autoflow/pkg/persistence"
)

// NewDelayQueue creates the resume index for provider: ledger (scan the
// execution ledger) or redis. The returned close function is never nil.
func NewDelayQueue(ctx context.Context, provider, redisURL string, executions persistence.ExecutionRepository) (delayqueue.Queue, func() error, error) {
	switch provider {
	case "", "ledger":
		return delayqueue.NewLedgerQueue(executions), func() error { return nil }, nil
	case "redis":
		q, err := delayqueue.NewRedisQueueFromURL(ctx, redisURL, "")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect delay queue: %w", err)
		}

		return q, q.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported delay queue provider %q", provider)
	}
}
