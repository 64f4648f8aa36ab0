package router_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/engine"
	"github.com/dukex/autoflow/pkg/events"
	"github.com/dukex/autoflow/pkg/mocks"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence/file"
	"github.com/dukex/autoflow/pkg/router"
	"github.com/dukex/autoflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type call struct {
	workflowID  string
	triggerData map[string]any
	userID      string
}

type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	panics map[string]bool
	errs   map[string]error
}

func (f *fakeRunner) ExecuteWorkflow(_ context.Context, workflowID string, triggerData map[string]any, userID string) (*engine.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{workflowID: workflowID, triggerData: triggerData, userID: userID})
	f.mu.Unlock()

	if f.panics[workflowID] {
		panic("boom")
	}

	if err := f.errs[workflowID]; err != nil {
		return &engine.Result{ExecutionID: "exec-" + workflowID, Status: models.ExecutionStatusFailed, Error: err.Error()}, err
	}

	return &engine.Result{Success: true, ExecutionID: "exec-" + workflowID, Status: models.ExecutionStatusCompleted}, nil
}

func (f *fakeRunner) workflowIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		ids = append(ids, c.workflowID)
	}

	return ids
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T, workflows ...*models.Workflow) (*router.Router, *fakeRunner) {
	t.Helper()

	repo := file.NewWorkflowRepository(t.TempDir())
	for _, wf := range workflows {
		require.NoError(t, repo.Save(t.Context(), wf))
	}

	runner := &fakeRunner{panics: map[string]bool{}, errs: map[string]error{}}

	return router.New(discardLogger(), repo, runner), runner
}

func withFilters(filters map[string]any) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.TriggerConfig = map[string]any{models.TriggerFiltersKey: filters}
	}
}

func TestDispatch_NoMatchingWorkflow(t *testing.T) {
	r, runner := setup(t,
		testutil.CreateTestWorkflow(testutil.WithTrigger(models.TriggerInvoicePaid)),
		testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusInactive)),
	)

	outcomes := r.Dispatch(t.Context(), events.NewDomainEvent(models.TriggerInvoiceOverdue, map[string]any{"invoiceId": "inv-1"}, "user-1"))

	assert.Empty(t, outcomes)
	assert.Empty(t, runner.workflowIDs())
}

func TestDispatch_RunsEveryMatchingWorkflow(t *testing.T) {
	first := testutil.CreateTestWorkflow()
	second := testutil.CreateTestWorkflow()
	other := testutil.CreateTestWorkflow(testutil.WithTrigger(models.TriggerClientCreated))

	r, runner := setup(t, first, second, other)

	data := map[string]any{"invoiceId": "inv-1"}
	outcomes := r.Dispatch(t.Context(), events.NewDomainEvent(models.TriggerInvoiceOverdue, data, "user-9"))

	require.Len(t, outcomes, 2)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, runner.workflowIDs())

	for _, outcome := range outcomes {
		require.NoError(t, outcome.Err)
		assert.True(t, outcome.Result.Success)
	}

	for _, c := range runner.calls {
		assert.Equal(t, "user-9", c.userID)
		assert.Equal(t, data, c.triggerData)
	}
}

func TestDispatch_FailureIsIsolated(t *testing.T) {
	broken := testutil.CreateTestWorkflow()
	panicking := testutil.CreateTestWorkflow()
	healthy := testutil.CreateTestWorkflow()

	r, runner := setup(t, broken, panicking, healthy)
	runner.errs[broken.ID] = errors.New("provider down")
	runner.panics[panicking.ID] = true

	outcomes := r.Dispatch(t.Context(), events.NewDomainEvent(models.TriggerInvoiceOverdue, nil, "user-1"))
	require.Len(t, outcomes, 3)

	byID := map[string]router.Outcome{}
	for _, outcome := range outcomes {
		byID[outcome.WorkflowID] = outcome
	}

	require.Error(t, byID[broken.ID].Err)
	require.ErrorIs(t, byID[panicking.ID].Err, router.ErrWorkflowPanicked)
	require.NoError(t, byID[healthy.ID].Err)
	assert.True(t, byID[healthy.ID].Result.Success)
}

func TestDispatch_TriggerFilters(t *testing.T) {
	highValue := testutil.CreateTestWorkflow(withFilters(map[string]any{"amount": 500}))
	vip := testutil.CreateTestWorkflow(withFilters(map[string]any{"client.tier": "vip"}))
	unfiltered := testutil.CreateTestWorkflow()

	r, runner := setup(t, highValue, vip, unfiltered)

	r.Dispatch(t.Context(), events.NewDomainEvent(models.TriggerInvoiceOverdue, map[string]any{
		"amount": "500",
		"client": map[string]any{"tier": "standard"},
	}, "user-1"))

	assert.ElementsMatch(t, []string{highValue.ID, unfiltered.ID}, runner.workflowIDs())
}

func TestDispatch_FallsBackToOwner(t *testing.T) {
	workflow := testutil.CreateTestWorkflow()
	r, runner := setup(t, workflow)

	r.Dispatch(t.Context(), events.NewDomainEvent(models.TriggerInvoiceOverdue, nil, ""))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, workflow.Owner, runner.calls[0].userID)
}

func TestTriggerWorkflowEvent_ReturnsBeforeRunsFinish(t *testing.T) {
	workflow := testutil.CreateTestWorkflow()
	r, runner := setup(t, workflow)

	r.TriggerWorkflowEvent(models.TriggerInvoiceOverdue, map[string]any{"invoiceId": "inv-1"}, "user-1")
	r.Wait()

	assert.Equal(t, []string{workflow.ID}, runner.workflowIDs())
}

func TestHandleDomainEvent(t *testing.T) {
	workflow := testutil.CreateTestWorkflow()
	r, runner := setup(t, workflow)

	r.HandleDomainEvent(t.Context(), events.NewDomainEvent(models.TriggerInvoiceOverdue, nil, "user-1"))

	assert.Equal(t, []string{workflow.ID}, runner.workflowIDs())
}

// explodingHandler fails the node whose "explode" param is true with a data
// store error, which fails the whole run.
type explodingHandler struct{}

func (explodingHandler) Type() models.ActionType { return models.ActionWebhook }

func (explodingHandler) Schema() map[string]any { return map[string]any{"type": "object"} }

func (explodingHandler) Execute(_ context.Context, params map[string]any, _ *models.ExecutionContext) (actions.Outcome, error) {
	if params["explode"] == true {
		return actions.Outcome{}, errors.New("store unavailable")
	}

	return actions.Succeeded(nil), nil
}

func TestDispatch_WithEngine_BothRunsReachTerminalState(t *testing.T) {
	logger := discardLogger()
	store := file.NewPersistence(t.TempDir())

	failing := testutil.CreateTestWorkflow(
		testutil.WithNodes(testutil.ActionNode("hook", models.ActionWebhook, map[string]any{"explode": true})),
		testutil.WithConnections(testutil.Edge("trigger", "hook")),
	)
	passing := testutil.CreateTestWorkflow(
		testutil.WithNodes(testutil.ActionNode("hook", models.ActionWebhook, map[string]any{})),
		testutil.WithConnections(testutil.Edge("trigger", "hook")),
	)

	for _, wf := range []*models.Workflow{failing, passing} {
		require.NoError(t, store.WorkflowRepository().Save(t.Context(), wf))
	}

	executor := engine.NewExecutor(engine.Config{
		Persistence: store,
		Dispatcher:  actions.NewDispatcher(logger, explodingHandler{}),
		Logger:      logger,
	})

	r := router.New(logger, store.WorkflowRepository(), executor)
	r.Dispatch(t.Context(), events.NewDomainEvent(models.TriggerInvoiceOverdue, nil, "user-1"))

	statuses := map[string]models.ExecutionStatus{}

	for _, wf := range []*models.Workflow{failing, passing} {
		executions, err := store.ExecutionRepository().ListByWorkflow(t.Context(), wf.ID)
		require.NoError(t, err)
		require.Len(t, executions, 1)

		statuses[wf.ID] = executions[0].Status
	}

	assert.Equal(t, models.ExecutionStatusFailed, statuses[failing.ID])
	assert.Equal(t, models.ExecutionStatusCompleted, statuses[passing.ID])
}

func TestDispatch_RepositoryError(t *testing.T) {
	repo := &mocks.MockWorkflowRepository{}
	repo.On("ListByTrigger", mock.Anything, models.TriggerInvoiceOverdue).Return(nil, errors.New("connection refused"))

	runner := &fakeRunner{}
	r := router.New(discardLogger(), repo, runner)

	outcomes := r.Dispatch(t.Context(), events.NewDomainEvent(models.TriggerInvoiceOverdue, nil, "user-1"))

	assert.Empty(t, outcomes)
	assert.Empty(t, runner.workflowIDs())
	repo.AssertExpectations(t)
}
