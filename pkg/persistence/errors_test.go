package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		executionErr := persistence.NewExecutionError("TransitionStatus", "exec-1", persistence.ErrStatusConflict)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsStatusConflict(executionErr))
		assert.False(t, persistence.IsExecutionNotFound(executionErr))

		assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", workflowErr), persistence.ErrWorkflowNotFound))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("Delete", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "Delete")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})

	t.Run("execution error contains context", func(t *testing.T) {
		err := persistence.NewExecutionError("GetByID", "exec-9", persistence.ErrExecutionNotFound)

		assert.Contains(t, err.Error(), "GetByID")
		assert.Contains(t, err.Error(), "exec-9")
		assert.True(t, persistence.IsExecutionNotFound(err))

		var execErr *persistence.ExecutionError
		assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &execErr))
		assert.Equal(t, "exec-9", execErr.ExecutionID)
	})
}
