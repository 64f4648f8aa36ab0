package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 30 * time.Second

// SMTPSender sends email through the tenant's SMTP server.
type SMTPSender struct {
	logger    *slog.Logger
	timeout   time.Duration
	tlsPolicy mail.TLSPolicy
}

// NewSMTPSender creates an SMTP email sender. STARTTLS is used when the
// server offers it.
func NewSMTPSender(logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		logger:    logger.With("module", "smtp_sender"),
		timeout:   defaultSMTPTimeout,
		tlsPolicy: mail.TLSOpportunistic,
	}
}

// SendEmail delivers one message.
func (s *SMTPSender) SendEmail(ctx context.Context, channel models.EmailChannel, email Email) error {
	msg, err := s.buildMessage(channel.From, email)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(channel.Port),
		mail.WithTimeout(s.timeout),
		mail.WithTLSPolicy(s.tlsPolicy),
	}

	if channel.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(channel.Username),
			mail.WithPassword(channel.Password),
		)
	}

	client, err := mail.NewClient(channel.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to configure smtp client: %w", err)
	}

	err = client.DialAndSendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send email via %s: %w", channel.Host, err)
	}

	s.logger.InfoContext(ctx, "Email sent", "to", email.To, "subject", email.Subject)

	return nil
}

// buildMessage encodes headers per RFC 2047 and the body as quoted-printable
// with CRLF line endings.
func (s *SMTPSender) buildMessage(from string, email Email) (*mail.Msg, error) {
	if len(email.To) == 0 {
		return nil, errors.New("email has no recipients")
	}

	msg := mail.NewMsg()

	err := msg.From(from)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}

	err = msg.To(email.To...)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	msg.Subject(sanitizeHeader(email.Subject))
	msg.SetDate()
	msg.SetMessageID()

	contentType := mail.TypeTextPlain
	if email.HTML {
		contentType = mail.TypeTextHTML
	}

	msg.SetBodyString(contentType, normalizeNewlines(email.Body))

	return msg, nil
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(value)
}

func normalizeNewlines(body string) string {
	return strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(body)
}
