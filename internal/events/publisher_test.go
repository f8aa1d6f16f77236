package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "booking.reservation.created", Subject("booking", models.ChangeCreated))
	assert.Equal(t, models.ChangeCanceled, Subject("", models.ChangeCanceled))
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2025, 6, 9, 1, 0, 0, 0, time.UTC)
	event := NewEvent(models.ReservationChange{
		Kind:       models.ChangeUpdated,
		OccurredAt: at,
		Reservation: models.Reservation{
			ID: "res-1", TutorID: "tutor-1", ClassDate: "2025-06-09", TimeSlot: "10:00-10:30", Status: models.ReservationReserved,
		},
	})

	assert.Equal(t, Event{
		EventType:     models.ChangeUpdated,
		ReservationID: "res-1",
		TutorID:       "tutor-1",
		ClassDate:     "2025-06-09",
		TimeSlot:      "10:00-10:30",
		Status:        "reserved",
		OccurredAt:    at,
	}, event)
}

func TestNewNatsPublisherWithoutURLIsNoop(t *testing.T) {
	pub, err := NewNatsPublisher("", "booking", nil)
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, pub)
	require.NoError(t, pub.Publish(context.Background(), models.ReservationChange{Kind: models.ChangeCreated}))
	pub.Close()
}
