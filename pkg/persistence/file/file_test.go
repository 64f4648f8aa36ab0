package file

import (
	"sync"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	p := NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", p.root)

	p = NewPersistence(t.TempDir())
	require.NoError(t, p.HealthCheck(t.Context()))
	require.NoError(t, p.Close(t.Context()))
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	repo := NewPersistence(t.TempDir()).WorkflowRepository()
	workflow := testutil.OverdueEscalationWorkflow()

	require.NoError(t, repo.Save(t.Context(), workflow))
	assert.False(t, workflow.UpdatedAt.IsZero())

	loaded, err := repo.GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)

	assert.Equal(t, workflow.Name, loaded.Name)
	require.Len(t, loaded.Nodes, 4)
	require.Len(t, loaded.Connections, 3)
	assert.Equal(t, workflow.ID, loaded.Nodes[1].WorkflowID)

	spec, ok := loaded.Nodes[1].Spec.(models.ConditionSpec)
	require.True(t, ok)
	assert.Equal(t, "daysOverdue", spec.Conditions[0].Field)
	assert.Equal(t, models.ConnectionTrue, loaded.Connections[1].Type)
}

func TestWorkflowRepository_NotFound(t *testing.T) {
	repo := NewPersistence(t.TempDir()).WorkflowRepository()

	_, err := repo.GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = repo.Delete(t.Context(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = repo.GetByID(t.Context(), "../etc/passwd")
	assert.ErrorIs(t, err, persistence.ErrInvalidID)
}

func TestWorkflowRepository_DeleteRemovesGraph(t *testing.T) {
	repo := NewPersistence(t.TempDir()).WorkflowRepository()
	workflow := testutil.OverdueEscalationWorkflow()

	require.NoError(t, repo.Save(t.Context(), workflow))
	require.NoError(t, repo.Delete(t.Context(), workflow.ID))

	_, err := repo.GetByID(t.Context(), workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_ListByTrigger(t *testing.T) {
	repo := NewPersistence(t.TempDir()).WorkflowRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	older := testutil.CreateTestWorkflow(func(w *models.Workflow) { w.ID = "b"; w.CreatedAt = base })
	sameTime := testutil.CreateTestWorkflow(func(w *models.Workflow) { w.ID = "a"; w.CreatedAt = base })
	newer := testutil.CreateTestWorkflow(func(w *models.Workflow) { w.ID = "c"; w.CreatedAt = base.Add(time.Hour) })
	inactive := testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusInactive))
	other := testutil.CreateTestWorkflow(testutil.WithTrigger(models.TriggerClientCreated))

	for _, w := range []*models.Workflow{newer, older, sameTime, inactive, other} {
		require.NoError(t, repo.Save(t.Context(), w))
	}

	workflows, err := repo.ListByTrigger(t.Context(), models.TriggerInvoiceOverdue)
	require.NoError(t, err)

	ids := make([]string, 0, len(workflows))
	for _, w := range workflows {
		ids = append(ids, w.ID)
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids)

	none, err := repo.ListByTrigger(t.Context(), models.TriggerReminderDue)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func newExecution(id, workflowID string, status models.ExecutionStatus) *models.Execution {
	return &models.Execution{
		ID:          id,
		WorkflowID:  workflowID,
		Status:      status,
		TriggerData: map[string]any{"invoiceId": "inv-1"},
		Variables:   map[string]any{"invoiceId": "inv-1"},
		StartedAt:   time.Now().UTC(),
	}
}

func TestExecutionRepository_Lifecycle(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ExecutionRepository()
	execution := newExecution("exec-1", "wf-1", models.ExecutionStatusRunning)

	require.NoError(t, repo.Create(t.Context(), execution))

	resumeAt := time.Now().UTC().Add(time.Hour)
	execution.Status = models.ExecutionStatusPaused
	execution.Checkpoint = &models.Checkpoint{
		Reason:      models.SuspendDelay,
		NodeID:      "wait",
		NextNodeIDs: []string{"email"},
		ResumeAt:    &resumeAt,
	}
	require.NoError(t, repo.Update(t.Context(), execution))

	loaded, err := repo.GetByID(t.Context(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPaused, loaded.Status)
	assert.Equal(t, []string{"email"}, loaded.Checkpoint.NextNodeIDs)
	assert.Equal(t, "inv-1", loaded.Variables["invoiceId"])

	_, err = repo.GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))

	err = repo.Update(t.Context(), newExecution("missing", "wf-1", models.ExecutionStatusRunning))
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionRepository_ListDue(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ExecutionRepository()
	now := time.Now().UTC()
	past, future := now.Add(-time.Minute), now.Add(time.Hour)

	due := newExecution("due", "wf-1", models.ExecutionStatusPaused)
	due.Checkpoint = &models.Checkpoint{Reason: models.SuspendDelay, ResumeAt: &past}

	later := newExecution("later", "wf-1", models.ExecutionStatusPaused)
	later.Checkpoint = &models.Checkpoint{Reason: models.SuspendDelay, ResumeAt: &future}

	approval := newExecution("approval", "wf-1", models.ExecutionStatusPaused)
	approval.Checkpoint = &models.Checkpoint{Reason: models.SuspendApproval}

	for _, e := range []*models.Execution{due, later, approval} {
		require.NoError(t, repo.Create(t.Context(), e))
	}

	executions, err := repo.ListDue(t.Context(), now)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, "due", executions[0].ID)
}

func TestExecutionRepository_TransitionStatusIsExclusive(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ExecutionRepository()
	require.NoError(t, repo.Create(t.Context(), newExecution("exec-1", "wf-1", models.ExecutionStatusPaused)))

	const contenders = 8

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		losses  int
		unknown []error
	)

	for range contenders {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := repo.TransitionStatus(t.Context(), "exec-1", models.ExecutionStatusPaused, models.ExecutionStatusRunning, 1)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				wins++
			case persistence.IsStatusConflict(err):
				losses++
			default:
				unknown = append(unknown, err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, losses)
	assert.Empty(t, unknown)
}

func TestExecutionRepository_TransitionStatusChecksVersion(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ExecutionRepository()

	execution := newExecution("exec-1", "wf-1", models.ExecutionStatusPaused)
	require.NoError(t, repo.Create(t.Context(), execution))
	assert.Equal(t, int64(1), execution.Version)

	stale := execution.Version

	// Another caller resumes the run and it pauses again.
	require.NoError(t, repo.TransitionStatus(t.Context(), "exec-1", models.ExecutionStatusPaused, models.ExecutionStatusRunning, stale))
	execution.Status = models.ExecutionStatusPaused
	require.NoError(t, repo.Update(t.Context(), execution))
	assert.Equal(t, int64(3), execution.Version)

	err := repo.TransitionStatus(t.Context(), "exec-1", models.ExecutionStatusPaused, models.ExecutionStatusRunning, stale)
	assert.True(t, persistence.IsStatusConflict(err))

	stored, err := repo.GetByID(t.Context(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPaused, stored.Status)
	assert.Equal(t, int64(3), stored.Version)

	require.NoError(t, repo.TransitionStatus(t.Context(), "exec-1", models.ExecutionStatusPaused, models.ExecutionStatusRunning, stored.Version))

	err = repo.TransitionStatus(t.Context(), "missing", models.ExecutionStatusPaused, models.ExecutionStatusRunning, 1)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionRepository_ListAndDeleteByWorkflow(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ExecutionRepository()

	first := newExecution("first", "wf-1", models.ExecutionStatusCompleted)
	first.StartedAt = time.Now().UTC().Add(-time.Hour)
	second := newExecution("second", "wf-1", models.ExecutionStatusCompleted)
	other := newExecution("other", "wf-2", models.ExecutionStatusCompleted)

	for _, e := range []*models.Execution{first, second, other} {
		require.NoError(t, repo.Create(t.Context(), e))
	}

	executions, err := repo.ListByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "second", executions[0].ID)

	require.NoError(t, repo.DeleteByWorkflow(t.Context(), "wf-1"))

	executions, err = repo.ListByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Empty(t, executions)

	_, err = repo.GetByID(t.Context(), "other")
	assert.NoError(t, err)
}

func TestChannelConfigRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ChannelConfigRepository()

	config, err := repo.GetByUser(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, config)

	require.NoError(t, repo.Save(t.Context(), &models.ChannelConfig{
		UserID: "user-1",
		Email:  &models.EmailChannel{Host: "smtp.example.com", Port: 587, From: "billing@example.com"},
	}))

	config, err = repo.GetByUser(t.Context(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, config.Email)
	assert.Equal(t, "smtp.example.com", config.Email.Host)
	assert.Nil(t, config.WhatsApp)
}

func TestEntityStore(t *testing.T) {
	store := NewPersistence(t.TempDir()).EntityStore()

	id, err := store.Create(t.Context(), "reminders", map[string]any{"title": "Call Ana"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.NoError(t, store.Update(t.Context(), "reminders", id, map[string]any{"status": "done"}))

	record, err := store.Get(t.Context(), "reminders", id)
	require.NoError(t, err)
	assert.Equal(t, "Call Ana", record["title"])
	assert.Equal(t, "done", record["status"])
	assert.Equal(t, id, record["id"])

	err = store.Update(t.Context(), "invoices", "missing", map[string]any{"status": "paid"})
	assert.True(t, persistence.IsEntityNotFound(err))
}
