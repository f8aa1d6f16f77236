package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/timeslot"
	"github.com/noah-isme/tutor-booking-api/pkg/timezone"
)

// ResolveMode selects how holidays affect a resolved day.
type ResolveMode string

const (
	// ModeBooking treats a holiday as a hard block and hides the day's reservations.
	ModeBooking ResolveMode = "booking"
	// ModeSchedule ignores holidays so staff can still see and fill their day.
	ModeSchedule ResolveMode = "schedule"
)

// ParseResolveMode maps a query value onto a mode, defaulting to ModeBooking.
func ParseResolveMode(raw string) (ResolveMode, error) {
	switch ResolveMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeBooking:
		return ModeBooking, nil
	case ModeSchedule:
		return ModeSchedule, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown mode %q", raw))
}

type daySlotSource interface {
	GetDaySlots(ctx context.Context, tutorID, day string) ([]string, error)
}

type holidayChecker interface {
	IsDateOnHoliday(ctx context.Context, tutorID, date string) (bool, error)
}

type activeReservationLister interface {
	ListActiveByTutorDate(ctx context.Context, tutorID, date string) ([]models.Reservation, error)
}

// ResolverConfig holds the lead-time policy.
type ResolverConfig struct {
	LeadTime           time.Duration
	PrivilegedLeadTime time.Duration
}

// ResolverService derives the bookable slots of a tutor on a calendar date.
type ResolverService struct {
	slots    daySlotSource
	holidays holidayChecker
	ledger   activeReservationLister
	calendar *timezone.Calendar
	config   ResolverConfig
	logger   *zap.Logger
}

// NewResolverService constructs a ResolverService.
func NewResolverService(slots daySlotSource, holidays holidayChecker, ledger activeReservationLister, calendar *timezone.Calendar, config ResolverConfig, logger *zap.Logger) *ResolverService {
	if calendar == nil {
		calendar = timezone.NewCalendar(timezone.DefaultTimezone, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.LeadTime < 0 {
		config.LeadTime = 0
	}
	if config.PrivilegedLeadTime < 0 {
		config.PrivilegedLeadTime = 0
	}
	return &ResolverService{slots: slots, holidays: holidays, ledger: ledger, calendar: calendar, config: config, logger: logger}
}

// Calendar exposes the booking calendar.
func (s *ResolverService) Calendar() *timezone.Calendar {
	return s.calendar
}

// LeadTime returns the minimum notice applied to a caller.
func (s *ResolverService) LeadTime(privileged bool) time.Duration {
	if privileged {
		return s.config.PrivilegedLeadTime
	}
	return s.config.LeadTime
}

// Resolve returns the slots still bookable on date as of asOf, sorted by start.
func (s *ResolverService) Resolve(ctx context.Context, tutorID, date string, asOf time.Time, privileged bool, mode ResolveMode) ([]string, error) {
	schedule, err := s.DaySchedule(ctx, tutorID, date, asOf, privileged, mode)
	if err != nil {
		return nil, err
	}
	return schedule.Bookable, nil
}

// DaySchedule resolves the full view of a tutor's day: template, holiday flag,
// live reservations and the slots that can still be booked.
func (s *ResolverService) DaySchedule(ctx context.Context, tutorID, date string, asOf time.Time, privileged bool, mode ResolveMode) (*models.DaySchedule, error) {
	day, err := s.calendar.ParseDate(date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}
	dayOfWeek := timeslot.DayOf(day)

	template, err := s.slots.GetDaySlots(ctx, tutorID, dayOfWeek)
	if err != nil {
		return nil, err
	}

	holiday, err := s.holidays.IsDateOnHoliday(ctx, tutorID, date)
	if err != nil {
		return nil, err
	}

	schedule := &models.DaySchedule{
		TutorID:      tutorID,
		Date:         date,
		DayOfWeek:    dayOfWeek,
		Holiday:      holiday,
		Template:     template,
		Bookable:     []string{},
		Reservations: []models.Reservation{},
	}
	if holiday && mode != ModeSchedule {
		return schedule, nil
	}

	reservations, err := s.ledger.ListActiveByTutorDate(ctx, tutorID, date)
	if err != nil {
		return nil, backendError(err, "failed to load reservations")
	}
	if reservations != nil {
		schedule.Reservations = reservations
	}

	taken := make([]string, 0, len(reservations))
	for _, r := range reservations {
		taken = append(taken, r.TimeSlot)
	}
	cutoff := asOf.Add(s.LeadTime(privileged))
	for _, label := range timeslot.Subtract(template, taken) {
		slot, err := timeslot.Parse(label)
		if err != nil {
			s.logger.Warn("skipping malformed stored slot", zap.String("tutor_id", tutorID), zap.String("slot", label))
			continue
		}
		start, err := s.calendar.At(date, slot.Start)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
		}
		if !start.After(cutoff) {
			continue
		}
		schedule.Bookable = append(schedule.Bookable, label)
	}
	timeslot.Sort(schedule.Bookable)
	return schedule, nil
}
