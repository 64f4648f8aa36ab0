package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExecutor struct {
	calls atomic.Int32
	err   error
	due   int
	panic bool
}

func (c *countingExecutor) ResumeDue(context.Context) (int, error) {
	c.calls.Add(1)

	if c.panic {
		panic("resume exploded")
	}

	return c.due, c.err
}

func logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewResumer_Schedule(t *testing.T) {
	_, err := scheduler.NewResumer(logger(), &countingExecutor{}, "not a cron")
	require.Error(t, err)

	_, err = scheduler.NewResumer(logger(), &countingExecutor{}, "*/5 * * * *")
	require.NoError(t, err)

	_, err = scheduler.NewResumer(logger(), &countingExecutor{}, "")
	require.NoError(t, err)
}

func TestTick(t *testing.T) {
	executor := &countingExecutor{due: 3}
	r, err := scheduler.NewResumer(logger(), executor, "")
	require.NoError(t, err)

	assert.Equal(t, 3, r.Tick(t.Context()))

	executor.err = errors.New("ledger unavailable")
	executor.due = 0
	assert.Zero(t, r.Tick(t.Context()))
	assert.EqualValues(t, 2, executor.calls.Load())
}

func TestTick_CancelledContext(t *testing.T) {
	executor := &countingExecutor{}
	r, err := scheduler.NewResumer(logger(), executor, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	assert.Zero(t, r.Tick(ctx))
	assert.Zero(t, executor.calls.Load())
}

func TestStartStop(t *testing.T) {
	executor := &countingExecutor{panic: true}
	r, err := scheduler.NewResumer(logger(), executor, "@every 1s")
	require.NoError(t, err)

	require.NoError(t, r.Start(t.Context()))
	require.ErrorIs(t, r.Start(t.Context()), scheduler.ErrAlreadyStarted)

	assert.Eventually(t, func() bool { return executor.calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond,
		"a panicking tick does not stop the schedule")

	require.NoError(t, r.Stop(t.Context()))
	require.NoError(t, r.Stop(t.Context()))
}
