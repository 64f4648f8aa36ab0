package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/values"
	"github.com/spf13/cast"
)

const (
	defaultWebhookTimeout = 30 * time.Second
	maxWebhookRetries     = 5
	maxWebhookResponse    = 1 << 20
)

// ErrWebhookStatus is reported when the webhook answers with a non-2xx status.
var ErrWebhookStatus = errors.New("webhook returned an error status")

// Webhook calls an external HTTP endpoint with a JSON body.
type Webhook struct {
	client *http.Client
	logger *slog.Logger
}

// NewWebhook creates the webhook action. A nil client uses http.DefaultClient.
func NewWebhook(logger *slog.Logger, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}

	return &Webhook{client: client, logger: logger.With("module", "webhook_action")}
}

func (a *Webhook) Type() models.ActionType { return models.ActionWebhook }

func (a *Webhook) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"url"},
		"properties": map[string]any{
			"url": stringProperty("Endpoint URL. Supports {{placeholders}}."),
			"method": map[string]any{
				"type":    "string",
				"default": http.MethodPost,
				"enum":    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body":            map[string]any{"description": "JSON body; defaults to the trigger data and variables."},
			"merge_response":  map[string]any{"type": "boolean", "default": false},
			"retries":         map[string]any{"type": []string{"integer", "string"}, "minimum": 0, "maximum": maxWebhookRetries},
			"timeout_seconds": map[string]any{"type": []string{"number", "string"}},
		},
	}
}

func (a *Webhook) Execute(ctx context.Context, params map[string]any, ec *models.ExecutionContext) (Outcome, error) {
	url, err := requireString(params, "url")
	if err != nil {
		return Failed(err), nil
	}

	method := strings.ToUpper(stringParam(params, "method"))
	if method == "" {
		method = http.MethodPost
	}

	body, ok := params["body"]
	if !ok {
		body = map[string]any{
			"execution_id": ec.ExecutionID,
			"workflow_id":  ec.WorkflowID,
			"trigger":      ec.TriggerData,
			"variables":    ec.Variables,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Failed(fmt.Errorf("failed to encode webhook body: %w", err)), nil
	}

	timeout := defaultWebhookTimeout
	if seconds := cast.ToFloat64(params["timeout_seconds"]); seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}

	retries := min(max(cast.ToInt(params["retries"]), 0), maxWebhookRetries)

	var respBody []byte

	operation := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var reader io.Reader
		if method != http.MethodGet {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build webhook request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")

		if headers, ok := params["headers"].(map[string]any); ok {
			for k, v := range headers {
				req.Header.Set(k, values.ToString(v))
			}
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook request failed: %w", err)
		}

		defer func() {
			if err := resp.Body.Close(); err != nil {
				a.logger.ErrorContext(ctx, "failed to close response body", "error", err)
			}
		}()

		respBody, err = io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponse))
		if err != nil {
			return fmt.Errorf("failed to read webhook response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d", ErrWebhookStatus, resp.StatusCode)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("%w: status %d", ErrWebhookStatus, resp.StatusCode))
		}

		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)), ctx)

	err = backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		a.logger.WarnContext(ctx, "Webhook attempt failed, retrying", "url", url, "error", err, "wait", wait)
	})
	if err != nil {
		return Failed(err), nil
	}

	bindings := map[string]any{}

	if boolParam(params, "merge_response") && len(bytes.TrimSpace(respBody)) > 0 {
		var parsed map[string]any

		err := json.Unmarshal(respBody, &parsed)
		if err != nil {
			return Failed(fmt.Errorf("webhook response is not a JSON object: %w", err)), nil
		}

		for k, v := range parsed {
			bindings[k] = v
		}
	}

	return Succeeded(bindings), nil
}
