// Package mocks provides testify mocks for the persistence and event bus
// interfaces.
package mocks

import (
	"context"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListWorkflows(ctx context.Context, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	args := m.Called(ctx, triggerType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockChannelConfigRepository is a mock implementation of persistence.ChannelConfigRepository interface.
type MockChannelConfigRepository struct {
	mock.Mock
}

func (m *MockChannelConfigRepository) GetByUser(ctx context.Context, userID string) (*models.ChannelConfig, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ChannelConfig), args.Error(1)
}

func (m *MockChannelConfigRepository) Save(ctx context.Context, config *models.ChannelConfig) error {
	args := m.Called(ctx, config)

	return args.Error(0)
}

var (
	_ persistence.WorkflowRepository      = (*MockWorkflowRepository)(nil)
	_ persistence.ChannelConfigRepository = (*MockChannelConfigRepository)(nil)
)
