package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

const upsertDayQuery = `INSERT INTO weekly_availability (tutor_id, day_of_week, slots, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tutor_id, day_of_week) DO UPDATE SET slots = EXCLUDED.slots, updated_at = EXCLUDED.updated_at`

// AvailabilityRepository persists weekly slot templates, one row per tutor and weekday.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// GetDay returns the stored slots for a tutor's weekday. A missing row yields an empty list.
func (r *AvailabilityRepository) GetDay(ctx context.Context, tutorID, day string) ([]string, error) {
	const query = `SELECT slots FROM weekly_availability WHERE tutor_id = $1 AND day_of_week = $2`
	var slots pq.StringArray
	if err := r.db.GetContext(ctx, &slots, query, tutorID, day); err != nil {
		if err == sql.ErrNoRows {
			return []string{}, nil
		}
		return nil, fmt.Errorf("get day availability: %w", err)
	}
	return []string(slots), nil
}

// ListWeek returns every stored day for a tutor.
func (r *AvailabilityRepository) ListWeek(ctx context.Context, tutorID string) ([]models.DayAvailability, error) {
	const query = `SELECT tutor_id, day_of_week, slots, updated_at FROM weekly_availability WHERE tutor_id = $1`
	var days []models.DayAvailability
	if err := r.db.SelectContext(ctx, &days, query, tutorID); err != nil {
		return nil, fmt.Errorf("list week availability: %w", err)
	}
	return days, nil
}

// UpsertDay replaces the slots of one weekday.
func (r *AvailabilityRepository) UpsertDay(ctx context.Context, tutorID, day string, slots []string) error {
	if _, err := r.db.ExecContext(ctx, upsertDayQuery, tutorID, day, pq.Array(slots), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert day availability: %w", err)
	}
	return nil
}

// UpsertDays writes the same slots to every listed weekday in one transaction.
func (r *AvailabilityRepository) UpsertDays(ctx context.Context, tutorID string, days []string, slots []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin availability transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, day := range days {
		if _, err = tx.ExecContext(ctx, upsertDayQuery, tutorID, day, pq.Array(slots), now); err != nil {
			return fmt.Errorf("upsert %s availability: %w", day, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit availability transaction: %w", err)
	}
	return nil
}
