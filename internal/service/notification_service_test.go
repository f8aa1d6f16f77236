package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

func sampleReservation() models.Reservation {
	return models.Reservation{
		ID:        "res-1",
		TutorID:   testTutorID,
		TutorName: "김다희",
		ClassDate: testMonday,
		TimeSlot:  "10:00-10:30",
		TeamName:  "Team Alpha",
		Question:  "Why is my channel blocked?",
		Status:    models.ReservationReserved,
	}
}

func TestNotificationServiceSendsToTutorAndOperator(t *testing.T) {
	mail := newRecordingMailer()
	svc := NewNotificationService(mail, NotificationConfig{Enabled: true, OperatorAddress: "ops@example.com"}, nil, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.NotifyReservation(context.Background(), models.ChangeCreated, sampleReservation(), &models.Tutor{Email: "tutor@example.com"})

	select {
	case <-mail.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("email was not sent")
	}
	mail.mu.Lock()
	defer mail.mu.Unlock()
	require.Len(t, mail.messages, 1)
	msg := mail.messages[0]
	assert.Equal(t, []string{"tutor@example.com", "ops@example.com"}, msg.To)
	assert.Equal(t, "[New reservation] Team Alpha 2025-06-09 10:00-10:30", msg.Subject)
	assert.Contains(t, msg.Body, "Why is my channel blocked?")
	assert.Contains(t, msg.Body, "Link:      -")
}

func TestNotificationServiceDisabled(t *testing.T) {
	mail := newRecordingMailer()
	svc := NewNotificationService(mail, NotificationConfig{Enabled: false, OperatorAddress: "ops@example.com"}, nil, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.NotifyReservation(context.Background(), models.ChangeCreated, sampleReservation(), &models.Tutor{Email: "tutor@example.com"})

	select {
	case <-mail.sent:
		t.Fatal("disabled notifications must not send")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotificationServiceRetriesFailedSends(t *testing.T) {
	mail := &failingMailer{}
	svc := NewNotificationService(mail, NotificationConfig{Enabled: true, MaxRetries: 2, RetryDelay: time.Millisecond}, nil, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.NotifyReservation(context.Background(), models.ChangeUpdated, sampleReservation(), &models.Tutor{Email: "tutor@example.com"})

	assert.Eventually(t, func() bool {
		mail.mu.Lock()
		defer mail.mu.Unlock()
		return mail.calls == 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRenderReservationMailForUpdate(t *testing.T) {
	res := sampleReservation()
	res.ResourceLink = "https://example.com/repo"

	msg, err := renderReservationMail(reservationNotice{Kind: models.ChangeUpdated, Reservation: res, Recipients: []string{"a@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, "[Reservation updated] Team Alpha 2025-06-09 10:00-10:30", msg.Subject)
	assert.Contains(t, msg.Body, "was updated")
	assert.Contains(t, msg.Body, "https://example.com/repo")
}
