package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// ChangeBus fans reservation changes out to every API instance over Redis pub/sub.
type ChangeBus struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewChangeBus constructs a ChangeBus on channel.
func NewChangeBus(client *redis.Client, channel string, logger *zap.Logger) *ChangeBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeBus{client: client, channel: channel, logger: logger}
}

// Publish broadcasts a change.
func (b *ChangeBus) Publish(ctx context.Context, change models.ReservationChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal reservation change: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", b.channel, err)
	}
	return nil
}

// Listen delivers changes to handle until ctx is cancelled. It blocks.
func (b *ChangeBus) Listen(ctx context.Context, handle func(models.ReservationChange)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close() //nolint:errcheck

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var change models.ReservationChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				b.logger.Warn("discarding malformed reservation change", zap.Error(err))
				continue
			}
			handle(change)
		}
	}
}
