package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

var reservationCols = []string{"id", "owner_id", "tutor_id", "tutor_name", "class_date", "time_slot", "team_name", "question", "resource_link", "status", "created_at", "updated_at"}

func TestReservationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec("INSERT INTO reservations .* ON CONFLICT \\(tutor_id, class_date, time_slot\\) WHERE status <> 'canceled' DO NOTHING").
		WillReturnResult(sqlmock.NewResult(1, 1))

	res := &models.Reservation{TutorID: "tutor-1", ClassDate: "2024-03-04", TimeSlot: "09:00-09:30", TeamName: "Team A"}
	require.NoError(t, repo.Create(context.Background(), res))
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, models.ReservationReserved, res.Status)
	assert.False(t, res.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryCreateConflictDoesNothing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec("INSERT INTO reservations").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &models.Reservation{TutorID: "tutor-1", ClassDate: "2024-03-04", TimeSlot: "09:00-09:30"})
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryUpdateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec("UPDATE reservations SET time_slot").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "reservations_active_slot_uniq"})

	err := repo.Update(context.Background(), &models.Reservation{ID: "res-1", TimeSlot: "10:00-10:30", Status: models.ReservationReserved})
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec("UPDATE reservations").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Reservation{ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryFindByIDMalformedID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectQuery("FROM reservations r").
		WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: "22P02"})

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryDeleteIsIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reservations WHERE id = $1")).WithArgs("res-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reservations WHERE id = $1")).WithArgs("res-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(context.Background(), "res-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(context.Background(), "res-1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryListActiveByTutorDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM reservations r LEFT JOIN tutors t ON t.id = r.tutor_id WHERE r.tutor_id = \\$1 AND r.class_date = \\$2::date AND r.status <> 'canceled'").
		WithArgs("tutor-1", "2024-03-04").
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow("res-1", nil, "tutor-1", "Kim", "2024-03-04", "09:00-09:30", "Team A", "", "", "reserved", now, now))

	items, err := repo.ListActiveByTutorDate(context.Background(), "tutor-1", "2024-03-04")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Kim", items[0].TutorName)
	assert.Nil(t, items[0].OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryIsSlotBooked(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM reservations WHERE tutor_id = $1")).
		WithArgs("tutor-1", "2024-03-04", "09:00-09:30").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	booked, err := repo.IsSlotBooked(context.Background(), "tutor-1", "2024-03-04", "09:00-09:30")
	require.NoError(t, err)
	assert.False(t, booked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryListWithFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	now := time.Now()
	mock.ExpectQuery("WHERE 1=1 AND r.tutor_id = \\$1 AND r.status = \\$2 ORDER BY r.class_date ASC, r.time_slot ASC LIMIT 20 OFFSET 0").
		WithArgs("tutor-1", models.ReservationReserved).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow("res-1", "user-1", "tutor-1", "Kim", "2024-03-04", "09:00-09:30", "Team A", "q", "https://x", "reserved", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reservations r WHERE 1=1 AND r.tutor_id = $1 AND r.status = $2")).
		WithArgs("tutor-1", models.ReservationReserved).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.ReservationFilter{TutorID: "tutor-1", Status: models.ReservationReserved})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].OwnerID)
	assert.Equal(t, "user-1", *items[0].OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
