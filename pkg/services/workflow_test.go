package services

import (
	"testing"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/persistence/file"
	"github.com/dukex/autoflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflowService(t *testing.T) (*Workflow, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	return NewWorkflow(store, nil), store
}

func TestNewWorkflow(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	service := NewWorkflow(store, nil)

	assert.NotNil(t, service)
	assert.Equal(t, store, service.persistence)
	assert.NotNil(t, service.validator)
}

func TestWorkflow_HealthCheck(t *testing.T) {
	service, _ := newWorkflowService(t)

	message, ok := service.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	_, ok = NewWorkflow(nil, nil).HealthCheck(t.Context())
	assert.False(t, ok)
}

func TestWorkflow_Create(t *testing.T) {
	service, _ := newWorkflowService(t)

	workflow := testutil.OverdueEscalationWorkflow()
	workflow.ID = ""
	workflow.Status = ""
	workflow.Connections[0].ID = ""

	created, err := service.Create(t.Context(), workflow)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())
	assert.Equal(t, models.WorkflowStatusInactive, created.Status)
	assert.NotEmpty(t, created.Connections[0].ID)

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, fetched.Name)
	assert.Len(t, fetched.Nodes, 4)
}

func TestWorkflow_CreateRejectsInvalidGraph(t *testing.T) {
	service, store := newWorkflowService(t)

	workflow := testutil.CreateTestWorkflow(testutil.WithoutTriggerNode())

	_, err := service.Create(t.Context(), workflow)
	require.ErrorIs(t, err, ErrInvalidWorkflow)
	assert.True(t, IsValidationError(err))

	workflows, err := store.WorkflowRepository().ListWorkflows(t.Context(), persistence.ListWorkflowsOptions{})
	require.NoError(t, err)
	assert.Empty(t, workflows)

	_, err = service.Create(t.Context(), nil)
	require.ErrorIs(t, err, ErrWorkflowNil)
}

func TestWorkflow_Update(t *testing.T) {
	service, _ := newWorkflowService(t)

	created, err := service.Create(t.Context(), testutil.CreateTestWorkflow())
	require.NoError(t, err)

	replacement := testutil.CreateTestWorkflow(func(w *models.Workflow) {
		w.Name = "Renamed workflow"
		w.Status = ""
	})

	updated, err := service.Update(t.Context(), created.ID, replacement)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Renamed workflow", updated.Name)
	assert.Equal(t, created.Status, updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = service.Update(t.Context(), "missing", testutil.CreateTestWorkflow())
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflow_ListWorkflows(t *testing.T) {
	service, store := newWorkflowService(t)

	for _, wf := range []*models.Workflow{
		testutil.CreateTestWorkflow(),
		testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusInactive)),
		testutil.CreateTestWorkflow(testutil.WithTrigger(models.TriggerClientCreated), func(w *models.Workflow) { w.Owner = "user-2" }),
	} {
		require.NoError(t, store.WorkflowRepository().Save(t.Context(), wf))
	}

	all, err := service.ListWorkflows(t.Context(), ListWorkflowsRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active := models.WorkflowStatusActive
	activeOnly, err := service.ListWorkflows(t.Context(), ListWorkflowsRequest{Status: &active})
	require.NoError(t, err)
	assert.Len(t, activeOnly, 2)

	owned, err := service.ListWorkflows(t.Context(), ListWorkflowsRequest{OwnerID: " user-2 "})
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	byTrigger, err := service.ListWorkflows(t.Context(), ListWorkflowsRequest{TriggerType: models.TriggerInvoiceOverdue})
	require.NoError(t, err)
	assert.Len(t, byTrigger, 2)

	bogus := models.WorkflowStatus("archived")
	_, err = service.ListWorkflows(t.Context(), ListWorkflowsRequest{Status: &bogus})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = service.ListWorkflows(t.Context(), ListWorkflowsRequest{TriggerType: "order_shipped"})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestWorkflow_Delete(t *testing.T) {
	tests := []struct {
		name          string
		purge         bool
		wantRemaining int
	}{
		{name: "keeps executions", purge: false, wantRemaining: 1},
		{name: "purges executions", purge: true, wantRemaining: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := newWorkflowService(t)

			workflow := testutil.CreateTestWorkflow()
			require.NoError(t, store.WorkflowRepository().Save(t.Context(), workflow))
			require.NoError(t, store.ExecutionRepository().Create(t.Context(), &models.Execution{
				ID:         "exec-1",
				WorkflowID: workflow.ID,
				Status:     models.ExecutionStatusCompleted,
			}))

			require.NoError(t, service.Delete(t.Context(), workflow.ID, tt.purge))

			_, err := service.FetchByID(t.Context(), workflow.ID)
			require.ErrorIs(t, err, ErrWorkflowNotFound)

			executions, err := store.ExecutionRepository().ListByWorkflow(t.Context(), workflow.ID)
			require.NoError(t, err)
			assert.Len(t, executions, tt.wantRemaining)
		})
	}
}

func TestWorkflow_DeleteMissing(t *testing.T) {
	service, _ := newWorkflowService(t)

	err := service.Delete(t.Context(), "missing", false)
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflow_ActivateDeactivate(t *testing.T) {
	service, store := newWorkflowService(t)

	workflow := testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusInactive))
	require.NoError(t, store.WorkflowRepository().Save(t.Context(), workflow))

	activated, err := service.Activate(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusActive, activated.Status)

	_, err = service.Activate(t.Context(), workflow.ID)
	require.ErrorIs(t, err, ErrAlreadyActive)
	assert.True(t, IsConflictError(err))

	deactivated, err := service.Deactivate(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusInactive, deactivated.Status)

	_, err = service.Deactivate(t.Context(), workflow.ID)
	require.ErrorIs(t, err, ErrAlreadyInactive)
}

func TestWorkflow_ActivateValidatesGraph(t *testing.T) {
	service, store := newWorkflowService(t)

	broken := testutil.CreateTestWorkflow(
		testutil.WithStatus(models.WorkflowStatusInactive),
		testutil.WithConnections(testutil.Edge("trigger", "ghost")),
	)
	require.NoError(t, store.WorkflowRepository().Save(t.Context(), broken))

	_, err := service.Activate(t.Context(), broken.ID)
	require.ErrorIs(t, err, ErrInvalidWorkflow)

	stored, err := service.FetchByID(t.Context(), broken.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusInactive, stored.Status)
}
