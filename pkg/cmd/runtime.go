package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/engine"
	"github.com/dukex/autoflow/pkg/eventbus"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/router"
	"github.com/dukex/autoflow/pkg/scheduler"
	"github.com/dukex/autoflow/pkg/services"
	"github.com/go-playground/validator/v10"
)

// RuntimeOptions select the providers a Runtime is built from.
type RuntimeOptions struct {
	ServiceName    string
	DatabaseURL    string
	EventBus       string
	KafkaBrokers   []string
	DelayQueue     string
	RedisURL       string
	ResumeSchedule string
	ConfigPath     string
	Tracing        bool

	// ShortDelayThreshold overrides the config file when set.
	ShortDelayThreshold *time.Duration
}

// Runtime is the wired engine: storage, bus, delay queue, executor and
// event router.
type Runtime struct {
	Persistence persistence.Persistence
	Bus         *eventbus.WatermillEventBus
	Emitter     *eventbus.Emitter
	Dispatcher  *actions.Dispatcher
	Evaluator   *conditions.Evaluator
	Executor    *engine.Executor
	Router      *router.Router
	Resumer     *scheduler.Resumer
	Graph       *services.GraphValidator

	logger  *slog.Logger
	closers []func(context.Context) error
}

// NewRuntime opens every provider named in opts. On error the providers
// already opened are closed.
func NewRuntime(ctx context.Context, logger *slog.Logger, opts RuntimeOptions) (_ *Runtime, err error) {
	file, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{logger: logger}

	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	rt.Persistence, err = NewPersistence(ctx, logger, opts.DatabaseURL)
	if err != nil {
		return nil, err
	}

	rt.closers = append(rt.closers, rt.Persistence.Close)

	rt.Bus, err = NewEventBus(logger, opts.EventBus, opts.KafkaBrokers, opts.ServiceName)
	if err != nil {
		return nil, err
	}

	rt.closers = append(rt.closers, func(context.Context) error { return rt.Bus.Close() })

	delays, closeDelays, err := NewDelayQueue(ctx, opts.DelayQueue, opts.RedisURL, rt.Persistence.ExecutionRepository())
	if err != nil {
		return nil, err
	}

	rt.closers = append(rt.closers, func(context.Context) error { return closeDelays() })

	tracer := otelhelper.NoopTracer()

	if opts.Tracing {
		var shutdown func(context.Context) error

		tracer, shutdown, err = otelhelper.NewTracer(ctx, opts.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		rt.closers = append(rt.closers, shutdown)
	}

	timeout := file.HTTPTimeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	client := &http.Client{Timeout: timeout}

	rt.Dispatcher = actions.NewDefaultDispatcher(logger, rt.Persistence.EntityStore(), actions.DefaultSenders(logger, client), client)
	rt.Evaluator = conditions.NewEvaluator(logger)
	rt.Graph = services.NewGraphValidator(validator.New(validator.WithRequiredStructEnabled()), rt.Dispatcher, rt.Evaluator)

	threshold := file.Engine.ShortDelayThreshold
	if opts.ShortDelayThreshold != nil {
		threshold = *opts.ShortDelayThreshold
	}

	rt.Executor = engine.NewExecutor(engine.Config{
		Persistence:         rt.Persistence,
		Dispatcher:          rt.Dispatcher,
		Logger:              logger,
		Evaluator:           rt.Evaluator,
		DelayQueue:          delays,
		Publisher:           rt.Bus,
		Tracer:              tracer,
		ShortDelayThreshold: threshold,
		MaxNodeVisits:       file.Engine.MaxNodeVisits,
		FailOnActionError:   file.Engine.FailOnActionError,
	})

	rt.Router = router.New(logger, rt.Persistence.WorkflowRepository(), rt.Executor, router.WithTracer(tracer))
	rt.Emitter = eventbus.NewEmitter(rt.Bus)

	schedule := opts.ResumeSchedule
	if schedule == "" {
		schedule = file.ResumeSchedule
	}

	rt.Resumer, err = scheduler.NewResumer(logger, rt.Executor, schedule)
	if err != nil {
		return nil, err
	}

	return rt, nil
}

// Start consumes domain events from the bus and resumes elapsed delays
// until ctx is done.
func (rt *Runtime) Start(ctx context.Context) error {
	err := eventbus.NewConsumer(rt.logger, rt.Bus, rt.Router).Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start event consumer: %w", err)
	}

	err = rt.Resumer.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start delay resumer: %w", err)
	}

	rt.closers = append(rt.closers, rt.Resumer.Stop)

	return nil
}

// Close waits for in-flight routed runs, then closes providers in reverse
// order of opening.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt.Router != nil {
		rt.Router.Wait()
	}

	var errs []error

	for i := len(rt.closers) - 1; i >= 0; i-- {
		err := rt.closers[i](ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	rt.closers = nil

	return errors.Join(errs...)
}
