package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/autoflow/pkg/models"
)

// HTTPCalendarSender posts calendar events as JSON to the tenant's endpoint.
type HTTPCalendarSender struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPCalendarSender creates a calendar sender. A nil client uses a 30s timeout client.
func NewHTTPCalendarSender(logger *slog.Logger, client *http.Client) *HTTPCalendarSender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &HTTPCalendarSender{client: client, logger: logger.With("module", "calendar_sender")}
}

func (s *HTTPCalendarSender) PushEvent(ctx context.Context, channel models.CalendarChannel, event CalendarEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal calendar event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, channel.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build calendar request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if channel.Token != "" {
		req.Header.Set("Authorization", "Bearer "+channel.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("%w: calendar status %d: %s", ErrProviderStatus, resp.StatusCode, detail)
	}

	s.logger.InfoContext(ctx, "Calendar event pushed", "event_id", event.ID)

	return nil
}
