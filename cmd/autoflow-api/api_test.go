package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/autoflow/pkg/blueprints"
	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	rt, err := cmd.NewRuntime(t.Context(), slog.Default(), cmd.RuntimeOptions{
		ServiceName: serviceName,
		DatabaseURL: "file://" + t.TempDir(),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = rt.Close(t.Context()) })

	templates, err := blueprints.Load()
	require.NoError(t, err)

	return NewAPI(slog.Default(), rt.Persistence, rt.Executor, rt.Emitter, templates, rt.Graph).App()
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Autoflow API", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/livez", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestAPI_TemplateToCompletedRun(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodPost, "/templates/service-feedback/instantiate", web.InstantiateTemplateRequest{Owner: "user-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))

	resp, body = doRequest(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/execute", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "inactive workflows do not run: %s", body)

	resp, body = doRequest(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = doRequest(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/execute", web.ExecuteWorkflowRequest{
		TriggerData: map[string]any{"id": "svc-1", "clientName": "Ana"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"execution_id"`)

	resp, body = doRequest(t, app, http.MethodGet, "/workflows/"+workflow.ID+"/executions", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"total_count":1`)
}
