package blueprints_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/blueprints"
	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BuiltInsAreValid(t *testing.T) {
	catalog, err := blueprints.Load()
	require.NoError(t, err)

	summaries := catalog.List()
	require.Len(t, summaries, 5)
	assert.Equal(t, "appointment-confirmation", summaries[0].ID)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := actions.NewDefaultDispatcher(logger, nil, actions.Senders{}, nil)
	validator := services.NewGraphValidator(nil, dispatcher, conditions.NewEvaluator(logger))

	for _, summary := range summaries {
		t.Run(summary.ID, func(t *testing.T) {
			workflow, err := catalog.Instantiate(summary.ID, "user-1", "")
			require.NoError(t, err)

			assert.Equal(t, summary.Name, workflow.Name)
			assert.Len(t, workflow.Nodes, summary.Nodes)
			require.NoError(t, validator.Validate(workflow))
		})
	}
}

func TestInstantiate(t *testing.T) {
	catalog, err := blueprints.Load()
	require.NoError(t, err)

	workflow, err := catalog.Instantiate("overdue-escalation", "user-7", "My escalation")
	require.NoError(t, err)

	assert.Empty(t, workflow.ID)
	assert.Equal(t, "My escalation", workflow.Name)
	assert.Equal(t, "user-7", workflow.Owner)
	assert.Equal(t, models.WorkflowStatusInactive, workflow.Status)
	assert.Equal(t, models.TriggerInvoiceOverdue, workflow.TriggerType)

	check, ok := workflow.NodeByID("check-days")
	require.True(t, ok)

	spec, ok := check.Spec.(models.ConditionSpec)
	require.True(t, ok)
	assert.InDelta(t, 7.0, spec.Conditions[0].Value, 0)

	assert.Equal(t, models.ConnectionTrue, workflow.Outgoing("check-days")[0].Type)

	// Each instantiation is an independent copy.
	check.Name = "edited"
	again, err := catalog.Instantiate("overdue-escalation", "user-7", "")
	require.NoError(t, err)

	fresh, _ := again.NodeByID("check-days")
	assert.NotEqual(t, "edited", fresh.Name)

	_, err = catalog.Instantiate("missing", "user-7", "")
	require.ErrorIs(t, err, blueprints.ErrBlueprintNotFound)
}

func TestLoadFS_Errors(t *testing.T) {
	doc := []byte("id: same\nname: One\ntrigger_type: manual\nnodes:\n  - id: trigger\n    kind: trigger\n")

	_, err := blueprints.LoadFS(fstest.MapFS{
		"bp/a.yaml": {Data: doc},
		"bp/b.yml":  {Data: doc},
	}, "bp")
	require.ErrorIs(t, err, blueprints.ErrDuplicateBlueprint)

	_, err = blueprints.LoadFS(fstest.MapFS{
		"bp/a.yaml": {Data: []byte("name: No id\n")},
	}, "bp")
	require.ErrorIs(t, err, blueprints.ErrMissingBlueprintID)

	catalog, err := blueprints.LoadFS(fstest.MapFS{
		"bp/a.yaml":   {Data: doc},
		"bp/notes.md": {Data: []byte("ignored")},
	}, "bp")
	require.NoError(t, err)
	assert.Len(t, catalog.List(), 1)
}

func TestParse(t *testing.T) {
	_, err := blueprints.Parse("flow.yaml", []byte("id: x\nname: X\nsurprise: true\n"))
	require.Error(t, err)

	_, err = blueprints.Parse("flow.toml", []byte("id = 'x'"))
	require.ErrorIs(t, err, blueprints.ErrUnsupportedFormat)

	bp, err := blueprints.Parse("flow.json", []byte(`{
		"id": "json-flow",
		"name": "JSON flow",
		"trigger_type": "invoice_paid",
		"nodes": [
			{"id": "trigger", "kind": "trigger"},
			{"id": "wait", "kind": "delay", "config": {"duration": 2, "unit": "hours"}}
		],
		"connections": [{"source_node_id": "trigger", "target_node_id": "wait"}]
	}`))
	require.NoError(t, err)

	wait, ok := bp.Workflow("user-1").NodeByID("wait")
	require.True(t, ok)
	assert.Equal(t, models.DelaySpec{Duration: 2, Unit: models.DelayHours}, wait.Spec)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: reminder
name: Reminder due
trigger_type: reminder_due
nodes:
  - id: trigger
    kind: trigger
  - id: ping
    kind: action
    config:
      action_type: send_whatsapp
      params:
        phone: "{{phone}}"
        message: "{{title}}"
connections:
  - source_node_id: trigger
    target_node_id: ping
`), 0o600))

	bp, err := blueprints.ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, models.TriggerReminderDue, bp.TriggerType)
	require.Len(t, bp.Nodes, 2)

	spec, ok := bp.Nodes[1].Spec.(models.ActionSpec)
	require.True(t, ok)
	assert.Equal(t, "{{phone}}", spec.Params["phone"])
}
