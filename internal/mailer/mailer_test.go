package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/tutor-booking-api/pkg/config"
)

func TestNewSelectsProvider(t *testing.T) {
	assert.IsType(t, &LogMailer{}, New(config.MailConfig{Provider: "log"}, nil))
	assert.IsType(t, &LogMailer{}, New(config.MailConfig{Provider: "sendgrid"}, nil))
	assert.IsType(t, &SendGridMailer{}, New(config.MailConfig{Provider: "SendGrid", SendGridAPIKey: "key"}, nil))
}

func TestLogMailerSend(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"tutor@example.com"}, Subject: "hi", Body: "body"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hi", logs.All()[0].ContextMap()["subject"])
}

func TestSendGridMailerSend(t *testing.T) {
	var payload map[string]interface{}
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	m := NewSendGridMailer("key", "Booking", "noreply@example.com", nil)
	m.host = server.URL

	err := m.Send(context.Background(), Message{To: []string{"tutor@example.com"}, Subject: "New reservation", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, "New reservation", payload["subject"])
	from := payload["from"].(map[string]interface{})
	assert.Equal(t, "noreply@example.com", from["email"])
}

func TestSendGridMailerRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	m := NewSendGridMailer("bad", "Booking", "noreply@example.com", nil)
	m.host = server.URL

	err := m.Send(context.Background(), Message{To: []string{"tutor@example.com"}, Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSendGridMailerHonoursContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	m := NewSendGridMailer("key", "Booking", "noreply@example.com", nil)
	m.host = server.URL

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := m.Send(ctx, Message{To: []string{"tutor@example.com"}, Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestSendGridMailerRequiresRecipients(t *testing.T) {
	m := NewSendGridMailer("key", "Booking", "noreply@example.com", nil)
	require.Error(t, m.Send(context.Background(), Message{Subject: "x"}))
}
