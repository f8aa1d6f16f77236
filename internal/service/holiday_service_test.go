package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

func TestHolidayServiceAddDefaultsEndDate(t *testing.T) {
	f := newBookingFixture(t, time.Now())

	holiday, err := f.holidays.AddHoliday(context.Background(), tutorActor, testTutorID, models.HolidayRequest{StartDate: "2025-06-10", Reason: "conference"})
	require.NoError(t, err)
	assert.NotEmpty(t, holiday.ID)
	assert.Equal(t, "2025-06-10", holiday.EndDate)
}

func TestHolidayServiceRejectsEndBeforeStart(t *testing.T) {
	f := newBookingFixture(t, time.Now())

	_, err := f.holidays.AddHoliday(context.Background(), adminActor, testTutorID, models.HolidayRequest{StartDate: "2025-06-12", EndDate: "2025-06-10"})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.holidays.AddHoliday(context.Background(), adminActor, testTutorID, models.HolidayRequest{StartDate: "2025-13-01"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestHolidayServiceIsDateOnHolidayInclusive(t *testing.T) {
	f := newBookingFixture(t, time.Now())
	ctx := context.Background()
	_, err := f.holidays.AddHoliday(ctx, adminActor, testTutorID, models.HolidayRequest{StartDate: "2025-06-10", EndDate: "2025-06-12"})
	require.NoError(t, err)

	for date, want := range map[string]bool{
		"2025-06-09": false,
		"2025-06-10": true,
		"2025-06-11": true,
		"2025-06-12": true,
		"2025-06-13": false,
	} {
		got, err := f.holidays.IsDateOnHoliday(ctx, testTutorID, date)
		require.NoError(t, err)
		assert.Equal(t, want, got, date)
	}
}

func TestHolidayServiceRemove(t *testing.T) {
	f := newBookingFixture(t, time.Now())
	ctx := context.Background()
	holiday, err := f.holidays.AddHoliday(ctx, adminActor, testTutorID, models.HolidayRequest{StartDate: "2025-06-10"})
	require.NoError(t, err)

	otherTutor := &models.Actor{UserID: "u2", Role: models.RoleTutor, TutorID: "tutor-2"}
	require.ErrorIs(t, f.holidays.RemoveHoliday(ctx, otherTutor, holiday.ID), appErrors.ErrForbidden)

	require.NoError(t, f.holidays.RemoveHoliday(ctx, tutorActor, holiday.ID))
	require.ErrorIs(t, f.holidays.RemoveHoliday(ctx, tutorActor, holiday.ID), appErrors.ErrNotFound)

	items, err := f.holidays.ListHolidays(ctx, testTutorID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHolidayServiceListOrdersByStart(t *testing.T) {
	f := newBookingFixture(t, time.Now())
	ctx := context.Background()
	for _, start := range []string{"2025-08-01", "2025-06-01", "2025-07-01"} {
		_, err := f.holidays.AddHoliday(ctx, adminActor, testTutorID, models.HolidayRequest{StartDate: start})
		require.NoError(t, err)
	}

	items, err := f.holidays.ListHolidays(ctx, testTutorID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "2025-06-01", items[0].StartDate)
	assert.Equal(t, "2025-08-01", items[2].StartDate)
}

func TestHolidayServiceReplaceHolidays(t *testing.T) {
	f := newBookingFixture(t, time.Now())
	ctx := context.Background()
	_, err := f.holidays.AddHoliday(ctx, adminActor, testTutorID, models.HolidayRequest{StartDate: "2025-06-01"})
	require.NoError(t, err)

	items, err := f.holidays.ReplaceHolidays(ctx, tutorActor, testTutorID, models.ReplaceHolidaysRequest{Holidays: []models.HolidayRequest{
		{StartDate: "2025-09-01", EndDate: "2025-09-03"},
		{StartDate: "2025-10-01"},
	}})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "2025-09-01", items[0].StartDate)
	assert.Equal(t, "2025-10-01", items[1].EndDate)
}

func TestHolidayServiceReplaceHolidaysIsAtomic(t *testing.T) {
	f := newBookingFixture(t, time.Now())
	ctx := context.Background()
	_, err := f.holidays.AddHoliday(ctx, adminActor, testTutorID, models.HolidayRequest{StartDate: "2025-06-01"})
	require.NoError(t, err)

	_, err = f.holidays.ReplaceHolidays(ctx, adminActor, testTutorID, models.ReplaceHolidaysRequest{Holidays: []models.HolidayRequest{
		{StartDate: "2025-09-01"},
		{StartDate: "2025-09-05", EndDate: "2025-09-01"},
	}})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	f.holidayRepo.failWith = errors.New("tx aborted")
	_, err = f.holidays.ReplaceHolidays(ctx, adminActor, testTutorID, models.ReplaceHolidaysRequest{Holidays: []models.HolidayRequest{{StartDate: "2025-09-01"}}})
	require.ErrorIs(t, err, appErrors.ErrBackendUnavailable)

	items, err := f.holidays.ListHolidays(ctx, testTutorID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2025-06-01", items[0].StartDate)
}
