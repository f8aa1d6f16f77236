package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// Publisher emits reservation domain events.
type Publisher interface {
	Publish(ctx context.Context, change models.ReservationChange) error
	Close()
}

// Event is the wire payload published for every reservation change.
type Event struct {
	EventType     string    `json:"event_type"`
	ReservationID string    `json:"reservation_id"`
	TutorID       string    `json:"tutor_id"`
	ClassDate     string    `json:"class_date"`
	TimeSlot      string    `json:"time_slot"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NatsPublisher publishes events on <prefix>.<kind> subjects.
type NatsPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewNatsPublisher connects to url. An empty url yields a NoopPublisher.
func NewNatsPublisher(url, prefix string, logger *zap.Logger) (Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if url == "" {
		return NoopPublisher{}, nil
	}
	conn, err := nats.Connect(url,
		nats.Name("tutor-booking-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NatsPublisher{conn: conn, prefix: strings.TrimSuffix(prefix, "."), logger: logger}, nil
}

// Subject returns the subject used for an event kind.
func Subject(prefix, kind string) string {
	if prefix == "" {
		return kind
	}
	return prefix + "." + kind
}

// NewEvent converts a ledger change into its wire form.
func NewEvent(change models.ReservationChange) Event {
	return Event{
		EventType:     change.Kind,
		ReservationID: change.Reservation.ID,
		TutorID:       change.Reservation.TutorID,
		ClassDate:     change.Reservation.ClassDate,
		TimeSlot:      change.Reservation.TimeSlot,
		Status:        string(change.Reservation.Status),
		OccurredAt:    change.OccurredAt,
	}
}

// Publish sends change as JSON.
func (p *NatsPublisher) Publish(ctx context.Context, change models.ReservationChange) error {
	payload, err := json.Marshal(NewEvent(change))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := Subject(p.prefix, change.Kind)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("event published", zap.String("subject", subject), zap.String("reservation_id", change.Reservation.ID))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", zap.Error(err))
		p.conn.Close()
	}
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish does nothing.
func (NoopPublisher) Publish(context.Context, models.ReservationChange) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() {}
