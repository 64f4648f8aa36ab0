package actions

import (
	"log/slog"
	"net/http"

	"github.com/dukex/autoflow/pkg/notify"
	"github.com/dukex/autoflow/pkg/persistence"
)

// Senders groups the notification providers used by the messaging actions.
type Senders struct {
	Email    notify.EmailSender
	WhatsApp notify.WhatsAppSender
	Calendar notify.CalendarSender
}

// DefaultSenders returns the production providers.
func DefaultSenders(logger *slog.Logger, client *http.Client) Senders {
	return Senders{
		Email:    notify.NewSMTPSender(logger),
		WhatsApp: notify.NewWhatsAppCloudSender(logger, client),
		Calendar: notify.NewHTTPCalendarSender(logger, client),
	}
}

// NewDefaultDispatcher registers every built-in action.
func NewDefaultDispatcher(logger *slog.Logger, store persistence.EntityStore, senders Senders, client *http.Client) *Dispatcher {
	return NewDispatcher(logger,
		NewSendEmail(senders.Email),
		NewSendWhatsApp(senders.WhatsApp),
		NewCreateReminder(store),
		NewCreateAppointment(logger, store, senders.Calendar),
		NewUpdateStatus(store),
		NewWebhook(logger, client),
	)
}
