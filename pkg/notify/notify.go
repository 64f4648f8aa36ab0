// Package notify delivers messages through the tenant's notification
// channels: SMTP email, WhatsApp Business Cloud API and a calendar endpoint.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/dukex/autoflow/pkg/models"
)

var (
	// ErrInvalidPhone is returned when a destination number cannot be parsed.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrProviderStatus is returned when a provider answers with a non-2xx status.
	ErrProviderStatus = errors.New("provider returned an error status")
)

// Email is one outbound email.
type Email struct {
	To      []string
	Subject string
	Body    string
	HTML    bool
}

// CalendarEvent is pushed to the tenant's calendar endpoint.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// EmailSender sends email through a tenant channel.
type EmailSender interface {
	SendEmail(ctx context.Context, channel models.EmailChannel, email Email) error
}

// WhatsAppSender sends a text message and returns the provider message id.
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, channel models.WhatsAppChannel, phone, text string) (string, error)
}

// CalendarSender pushes an event to a tenant calendar.
type CalendarSender interface {
	PushEvent(ctx context.Context, channel models.CalendarChannel, event CalendarEvent) error
}
