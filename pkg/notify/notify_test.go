package notify

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw      string
		region   string
		expected string
	}{
		{"+351 912 345 678", "BR", "+351912345678"},
		{"(11) 98765-4321", "BR", "+5511987654321"},
		{"(11) 98765-4321", "br", "+5511987654321"},
		{"(55) 99123-4567", "BR", "+5555991234567"},
		{"5511987654321", "BR", "+5511987654321"},
		{"+55 55 99123-4567", "", "+5555991234567"},
		{"030 1234567", "DE", "+49301234567"},
	}

	for _, tt := range tests {
		t.Run(tt.raw+"/"+tt.region, func(t *testing.T) {
			phone, err := NormalizePhone(tt.raw, tt.region)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, phone)
		})
	}

	for _, raw := range []string{"n/a", "912345678", ""} {
		_, err := NormalizePhone(raw, "")
		assert.ErrorIs(t, err, ErrInvalidPhone, raw)
	}

	_, err := NormalizePhone("12", "BR")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestWhatsAppCloudSender(t *testing.T) {
	var received whatsAppMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/phone-1/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer server.Close()

	sender := NewWhatsAppCloudSender(discardLogger(), server.Client())
	channel := models.WhatsAppChannel{APIURL: server.URL, PhoneNumberID: "phone-1", AccessToken: "token", DefaultRegion: "BR"}

	id, err := sender.SendWhatsApp(t.Context(), channel, "(11) 98765-4321", "Hello Ana")
	require.NoError(t, err)

	assert.Equal(t, "wamid.1", id)
	assert.Equal(t, "5511987654321", received.To)
	assert.Equal(t, "Hello Ana", received.Text.Body)
	assert.Equal(t, "whatsapp", received.MessagingProduct)
}

func TestWhatsAppCloudSender_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	sender := NewWhatsAppCloudSender(discardLogger(), server.Client())

	_, err := sender.SendWhatsApp(t.Context(), models.WhatsAppChannel{APIURL: server.URL, PhoneNumberID: "p"}, "+351912345678", "hi")
	assert.ErrorIs(t, err, ErrProviderStatus)
}

func TestHTTPCalendarSender(t *testing.T) {
	var received CalendarEvent

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cal", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sender := NewHTTPCalendarSender(discardLogger(), server.Client())

	err := sender.PushEvent(t.Context(), models.CalendarChannel{EndpointURL: server.URL, Token: "cal"}, CalendarEvent{
		ID:    "apt-1",
		Title: "Follow up",
		Start: start,
		End:   start.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "apt-1", received.ID)
	assert.True(t, received.End.Equal(start.Add(time.Hour)))
}

// fakeSMTP accepts one session and returns the DATA payload.
func fakeSMTP(t *testing.T) (string, <-chan string) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { _ = listener.Close() })

	messages := make(chan string, 1)

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}

		defer func() { _ = conn.Close() }()

		reader := bufio.NewReader(conn)
		reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

		reply("220 localhost ESMTP")

		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}

			command := strings.ToUpper(strings.TrimSpace(line))

			switch {
			case strings.HasPrefix(command, "EHLO"), strings.HasPrefix(command, "HELO"):
				reply("250 localhost")
			case strings.HasPrefix(command, "DATA"):
				reply("354 go ahead")

				var body strings.Builder

				for {
					dataLine, err := reader.ReadString('\n')
					if err != nil {
						return
					}

					if dataLine == ".\r\n" {
						break
					}

					body.WriteString(dataLine)
				}

				messages <- body.String()

				reply("250 queued")
			case strings.HasPrefix(command, "QUIT"):
				reply("221 bye")

				return
			default:
				reply("250 ok")
			}
		}
	}()

	return listener.Addr().String(), messages
}

func TestSMTPSender(t *testing.T) {
	addr, messages := fakeSMTP(t)

	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	port, err := net.LookupPort("tcp", portStr)
	require.NoError(t, err)

	sender := NewSMTPSender(discardLogger())

	err = sender.SendEmail(t.Context(), models.EmailChannel{Host: host, Port: port, From: "billing@example.com"}, Email{
		To:      []string{"ana@example.com"},
		Subject: "Invoice overdue\r\nBcc: evil@example.com",
		Body:    "Hello Ana",
	})
	require.NoError(t, err)

	select {
	case message := <-messages:
		assert.Contains(t, message, "To: ana@example.com")
		assert.Contains(t, message, "Subject: Invoice overdue Bcc: evil@example.com")
		assert.NotContains(t, message, "\r\nBcc:")
		assert.Contains(t, message, "Hello Ana")
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSMTPSender_BuildMessage(t *testing.T) {
	sender := NewSMTPSender(discardLogger())

	msg, err := sender.buildMessage("billing@example.com", Email{
		To:      []string{"ana@example.com"},
		Subject: "Afinación pendiente",
		Body:    "line1\r\nline2\nçava",
	})
	require.NoError(t, err)

	var buf bytes.Buffer

	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.NotContains(t, raw, "\r\r\n")
	assert.NotContains(t, raw, "Afinación", "headers must be RFC 2047 encoded")

	parsed, err := mail.ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Afinación pendiente", subject)
	assert.Equal(t, "quoted-printable", parsed.Header.Get("Content-Transfer-Encoding"))
	assert.Contains(t, parsed.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(quotedprintable.NewReader(parsed.Body))
	require.NoError(t, err)
	assert.Equal(t, "line1\r\nline2\r\nçava", strings.TrimRight(string(body), "\r\n"))
}

func TestSMTPSender_BuildMessageRejectsBadAddresses(t *testing.T) {
	sender := NewSMTPSender(discardLogger())

	_, err := sender.buildMessage("billing@example.com", Email{Subject: "hi"})
	require.Error(t, err)

	_, err = sender.buildMessage("not an address", Email{To: []string{"ana@example.com"}})
	require.Error(t, err)

	_, err = sender.buildMessage("billing@example.com", Email{To: []string{"ana"}})
	require.Error(t, err)
}
