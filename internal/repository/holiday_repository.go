package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

const holidayColumns = `id, tutor_id, start_date::text AS start_date, end_date::text AS end_date, reason, created_at`

const insertHolidayQuery = `INSERT INTO holidays (id, tutor_id, start_date, end_date, reason, created_at)
VALUES (:id, :tutor_id, :start_date, :end_date, :reason, :created_at)`

// HolidayRepository persists tutor exception periods.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs a HolidayRepository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// Create inserts a holiday, assigning an ID when absent.
func (r *HolidayRepository) Create(ctx context.Context, holiday *models.Holiday) error {
	prepareHoliday(holiday)
	if _, err := r.db.NamedExecContext(ctx, insertHolidayQuery, holiday); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// FindByID fetches a holiday by ID.
func (r *HolidayRepository) FindByID(ctx context.Context, id string) (*models.Holiday, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays WHERE id = $1`
	var holiday models.Holiday
	if err := r.db.GetContext(ctx, &holiday, query, id); err != nil {
		if isInvalidID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &holiday, nil
}

// Delete removes a holiday. It returns sql.ErrNoRows when nothing was deleted.
func (r *HolidayRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete holiday rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByTutor returns a tutor's holidays ordered by start date.
func (r *HolidayRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.Holiday, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays WHERE tutor_id = $1 ORDER BY start_date ASC, end_date ASC`
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, tutorID); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// CoversDate reports whether any holiday of the tutor includes date.
func (r *HolidayRepository) CoversDate(ctx context.Context, tutorID, date string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM holidays WHERE tutor_id = $1 AND start_date <= $2::date AND end_date >= $2::date)`
	var covered bool
	if err := r.db.GetContext(ctx, &covered, query, tutorID, date); err != nil {
		return false, fmt.Errorf("check holiday coverage: %w", err)
	}
	return covered, nil
}

// ReplaceAll swaps a tutor's holidays for the provided set in one transaction.
func (r *HolidayRepository) ReplaceAll(ctx context.Context, tutorID string, holidays []models.Holiday) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin holiday transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM holidays WHERE tutor_id = $1`, tutorID); err != nil {
		return fmt.Errorf("clear holidays: %w", err)
	}
	for i := range holidays {
		holidays[i].TutorID = tutorID
		prepareHoliday(&holidays[i])
		if _, err = tx.NamedExecContext(ctx, insertHolidayQuery, &holidays[i]); err != nil {
			return fmt.Errorf("insert holiday: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit holiday transaction: %w", err)
	}
	return nil
}

func prepareHoliday(holiday *models.Holiday) {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	if holiday.EndDate == "" {
		holiday.EndDate = holiday.StartDate
	}
	if holiday.CreatedAt.IsZero() {
		holiday.CreatedAt = time.Now().UTC()
	}
}
