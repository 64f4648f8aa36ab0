package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/autoflow/pkg/models"
)

// WhatsAppCloudSender sends text messages through the WhatsApp Business Cloud API.
type WhatsAppCloudSender struct {
	client *http.Client
	logger *slog.Logger
}

// NewWhatsAppCloudSender creates a WhatsApp sender. A nil client uses a 30s timeout client.
func NewWhatsAppCloudSender(logger *slog.Logger, client *http.Client) *WhatsAppCloudSender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &WhatsAppCloudSender{client: client, logger: logger.With("module", "whatsapp_sender")}
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendWhatsApp normalizes phone and posts a text message.
func (s *WhatsAppCloudSender) SendWhatsApp(ctx context.Context, channel models.WhatsAppChannel, phone, text string) (string, error) {
	to, err := NormalizePhone(phone, channel.DefaultRegion)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(to, "+"),
		Type:             "text",
		Text:             whatsAppText{Body: text},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal whatsapp message: %w", err)
	}

	url := strings.TrimSuffix(channel.APIURL, "/") + "/" + channel.PhoneNumberID + "/messages"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build whatsapp request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+channel.AccessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read whatsapp response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: whatsapp status %d: %s", ErrProviderStatus, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed whatsAppResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		s.logger.WarnContext(ctx, "Unexpected whatsapp response body", "error", err)
	}

	messageID := ""
	if len(parsed.Messages) > 0 {
		messageID = parsed.Messages[0].ID
	}

	s.logger.InfoContext(ctx, "WhatsApp message sent", "to", to, "message_id", messageID)

	return messageID, nil
}
