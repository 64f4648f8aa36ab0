// Package scheduler periodically resumes executions whose delay has elapsed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule polls the delay queue every fifteen seconds.
const DefaultSchedule = "@every 15s"

var ErrAlreadyStarted = errors.New("resumer already started")

// DueResumer resumes due executions and reports how many were restarted.
type DueResumer interface {
	ResumeDue(ctx context.Context) (int, error)
}

type Resumer struct {
	executor DueResumer
	schedule string
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewResumer validates schedule, a standard cron expression or an @every
// descriptor. An empty schedule uses DefaultSchedule.
func NewResumer(logger *slog.Logger, executor DueResumer, schedule string) (*Resumer, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	_, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid resume schedule %q: %w", schedule, err)
	}

	return &Resumer{
		executor: executor,
		schedule: schedule,
		logger:   logger.With("module", "delay_resumer", "schedule", schedule),
	}, nil
}

// Start runs Tick on the schedule until Stop. Overlapping ticks are skipped.
func (r *Resumer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return ErrAlreadyStarted
	}

	cronLogger := cronLogger{r.logger}

	c := cron.New(cron.WithLogger(cronLogger), cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	_, err := c.AddFunc(r.schedule, func() { r.Tick(ctx) })
	if err != nil {
		return fmt.Errorf("failed to add resume job: %w", err)
	}

	c.Start()
	r.cron = c

	r.logger.InfoContext(ctx, "Delay resumer started")

	return nil
}

// Tick resumes every due execution once.
func (r *Resumer) Tick(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	resumed, err := r.executor.ResumeDue(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to resume due executions", "error", err)
	}

	if resumed > 0 {
		r.logger.InfoContext(ctx, "Resumed due executions", "count", resumed)
	}

	return resumed
}

// Stop stops scheduling and waits for a running tick or ctx.
func (r *Resumer) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		r.logger.InfoContext(ctx, "Delay resumer stopped")

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
