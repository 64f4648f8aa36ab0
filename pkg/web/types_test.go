package web_test

import (
	"testing"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestWorkflowRequest_Workflow(t *testing.T) {
	req := web.WorkflowRequest{
		Name:        "Welcome",
		TriggerType: models.TriggerClientCreated,
		Owner:       "user-1",
	}

	workflow := req.Workflow()

	assert.Empty(t, workflow.ID)
	assert.Equal(t, "Welcome", workflow.Name)
	assert.Equal(t, models.TriggerClientCreated, workflow.TriggerType)
	assert.NotNil(t, workflow.Nodes)
	assert.NotNil(t, workflow.Connections)
}

func TestWorkflowRequest_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	tests := []struct {
		name    string
		req     web.WorkflowRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  web.WorkflowRequest{Name: "Welcome", TriggerType: models.TriggerClientCreated, Owner: "u"},
		},
		{
			name:    "short name",
			req:     web.WorkflowRequest{Name: "ab", TriggerType: models.TriggerClientCreated, Owner: "u"},
			wantErr: true,
		},
		{
			name:    "missing owner",
			req:     web.WorkflowRequest{Name: "Welcome", TriggerType: models.TriggerClientCreated},
			wantErr: true,
		},
		{
			name:    "unknown status",
			req:     web.WorkflowRequest{Name: "Welcome", TriggerType: models.TriggerClientCreated, Owner: "u", Status: "paused"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
