package actions

import (
	"context"
	"fmt"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/notify"
)

// SendEmail sends an email through the user's SMTP channel.
type SendEmail struct {
	sender notify.EmailSender
}

func NewSendEmail(sender notify.EmailSender) *SendEmail {
	return &SendEmail{sender: sender}
}

func (a *SendEmail) Type() models.ActionType { return models.ActionSendEmail }

func (a *SendEmail) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"to", "subject", "body"},
		"properties": map[string]any{
			"to":      map[string]any{"type": []string{"string", "array"}, "description": "Recipient address or list. Supports {{placeholders}}."},
			"subject": stringProperty("Subject line."),
			"body":    stringProperty("Message body."),
			"html":    map[string]any{"type": "boolean", "default": false},
		},
	}
}

func (a *SendEmail) Execute(ctx context.Context, params map[string]any, ec *models.ExecutionContext) (Outcome, error) {
	channel := ec.EmailChannel()
	if channel == nil {
		return Failed(fmt.Errorf("%w: email", ErrChannelNotConfigured)), nil
	}

	to := stringList(params, "to")
	if len(to) == 0 {
		return Failed(fmt.Errorf("%w: to", ErrMissingParam)), nil
	}

	subject, err := requireString(params, "subject")
	if err != nil {
		return Failed(err), nil
	}

	err = a.sender.SendEmail(ctx, *channel, notify.Email{
		To:      to,
		Subject: subject,
		Body:    stringParam(params, "body"),
		HTML:    boolParam(params, "html"),
	})
	if err != nil {
		return Failed(err), nil
	}

	return Succeeded(nil), nil
}

// SendWhatsApp sends a text message through the user's WhatsApp Business channel.
type SendWhatsApp struct {
	sender notify.WhatsAppSender
}

func NewSendWhatsApp(sender notify.WhatsAppSender) *SendWhatsApp {
	return &SendWhatsApp{sender: sender}
}

func (a *SendWhatsApp) Type() models.ActionType { return models.ActionSendWhatsApp }

func (a *SendWhatsApp) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"phone", "message"},
		"properties": map[string]any{
			"phone":   stringProperty("Destination number; normalized to +<country><number>."),
			"message": stringProperty("Message text."),
		},
	}
}

func (a *SendWhatsApp) Execute(ctx context.Context, params map[string]any, ec *models.ExecutionContext) (Outcome, error) {
	channel := ec.WhatsAppChannel()
	if channel == nil {
		return Failed(fmt.Errorf("%w: whatsapp", ErrChannelNotConfigured)), nil
	}

	phone, err := requireString(params, "phone")
	if err != nil {
		return Failed(err), nil
	}

	message, err := requireString(params, "message")
	if err != nil {
		return Failed(err), nil
	}

	messageID, err := a.sender.SendWhatsApp(ctx, *channel, phone, message)
	if err != nil {
		return Failed(err), nil
	}

	return Succeeded(map[string]any{"whatsapp_message_id": messageID}), nil
}
