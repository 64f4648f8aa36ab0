package router_test

import (
	"testing"

	"github.com/dukex/autoflow/pkg/events"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/dukex/autoflow/pkg/persistence/file"
	"github.com/dukex/autoflow/pkg/router"
	"github.com/dukex/autoflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDispatch_RecordsEventSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	repo := file.NewWorkflowRepository(t.TempDir())
	require.NoError(t, repo.Save(t.Context(), testutil.CreateTestWorkflow()))

	runner := &fakeRunner{panics: map[string]bool{}, errs: map[string]error{}}
	r := router.New(discardLogger(), repo, runner, router.WithTracer(provider.Tracer("test")))

	event := events.NewDomainEvent(models.TriggerInvoiceOverdue, map[string]any{"invoiceId": "inv-1"}, "user-1")
	r.Dispatch(t.Context(), event)

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	attrs := spans[0].Attributes()
	assert.Equal(t, "event.dispatch", spans[0].Name())
	assert.Contains(t, attrs, attribute.String(otelhelper.EventIDKey, event.ID))
	assert.Contains(t, attrs, attribute.String(otelhelper.TriggerTypeKey, string(models.TriggerInvoiceOverdue)))
	assert.Contains(t, attrs, attribute.Int(otelhelper.MatchedWorkflowsKey, 1))
}
