package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// ErrSlotTaken is returned when a live reservation already holds the tutor, date and slot.
var ErrSlotTaken = errors.New("slot already reserved")

const (
	uniqueViolation     = "23505"
	invalidTextEncoding = "22P02"
)

const reservationSelect = `SELECT r.id, r.owner_id, r.tutor_id, COALESCE(t.name, '') AS tutor_name,
r.class_date::text AS class_date, r.time_slot, r.team_name, r.question, r.resource_link, r.status, r.created_at, r.updated_at
FROM reservations r LEFT JOIN tutors t ON t.id = r.tutor_id`

// ReservationRepository is the reservation ledger. The partial unique index
// reservations_active_slot_uniq guarantees one live reservation per slot.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs a ReservationRepository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create inserts a reservation only if its slot is free. It returns ErrSlotTaken otherwise.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now
	if res.Status == "" {
		res.Status = models.ReservationReserved
	}

	const query = `INSERT INTO reservations (id, owner_id, tutor_id, class_date, time_slot, team_name, question, resource_link, status, created_at, updated_at)
VALUES (:id, :owner_id, :tutor_id, :class_date, :time_slot, :team_name, :question, :resource_link, :status, :created_at, :updated_at)
ON CONFLICT (tutor_id, class_date, time_slot) WHERE status <> 'canceled' DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, res)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create reservation rows: %w", err)
	}
	if affected == 0 {
		return ErrSlotTaken
	}
	return nil
}

// FindByID fetches a reservation with its tutor name.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	if err := r.db.GetContext(ctx, &res, reservationSelect+` WHERE r.id = $1`, id); err != nil {
		if isInvalidID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &res, nil
}

// Update writes the mutable fields of a reservation. Moving onto a taken slot returns ErrSlotTaken.
func (r *ReservationRepository) Update(ctx context.Context, res *models.Reservation) error {
	res.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reservations SET time_slot = :time_slot, question = :question, resource_link = :resource_link, status = :status, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, res)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("update reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reservation rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete hard-deletes a reservation. Deleting a missing ID is not an error; the bool reports whether a row was removed.
func (r *ReservationRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete reservation rows: %w", err)
	}
	return affected > 0, nil
}

// ListActiveByTutorDate returns the live reservations of a tutor on a date ordered by slot.
func (r *ReservationRepository) ListActiveByTutorDate(ctx context.Context, tutorID, date string) ([]models.Reservation, error) {
	query := reservationSelect + ` WHERE r.tutor_id = $1 AND r.class_date = $2::date AND r.status <> 'canceled' ORDER BY r.time_slot ASC`
	var items []models.Reservation
	if err := r.db.SelectContext(ctx, &items, query, tutorID, date); err != nil {
		return nil, fmt.Errorf("list reservations by tutor date: %w", err)
	}
	return items, nil
}

// IsSlotBooked reports whether a live reservation holds the slot.
func (r *ReservationRepository) IsSlotBooked(ctx context.Context, tutorID, date, slot string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM reservations WHERE tutor_id = $1 AND class_date = $2::date AND time_slot = $3 AND status <> 'canceled')`
	var booked bool
	if err := r.db.GetContext(ctx, &booked, query, tutorID, date, slot); err != nil {
		return false, fmt.Errorf("check slot booked: %w", err)
	}
	return booked, nil
}

// List returns reservations matching the filter with total count.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	where := " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("r.tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	if filter.ClassDate != "" {
		conditions = append(conditions, fmt.Sprintf("r.class_date = $%d::date", len(args)+1))
		args = append(args, filter.ClassDate)
	}
	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("r.owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY r.class_date ASC, r.time_slot ASC LIMIT %d OFFSET %d", reservationSelect, where, size, (page-1)*size)
	var items []models.Reservation
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reservations r"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}
	return items, total, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// isInvalidID reports a malformed uuid literal, which can never match a row.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == invalidTextEncoding
}
