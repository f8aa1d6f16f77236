package service

import (
	"testing"
	"time"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/capability"
	"github.com/noah-isme/tutor-booking-api/pkg/timeslot"
)

// 2025-06-09 is a Monday.
const testMonday = "2025-06-09"

type bookingFixture struct {
	tutorRepo       *stubTutorRepo
	availRepo       *stubAvailabilityRepo
	holidayRepo     *stubHolidayRepo
	reservationRepo *stubReservationRepo

	availability *AvailabilityService
	holidays     *HolidayService
	resolver     *ResolverService
	ledger       *ReservationService

	publisher *recordingPublisher
	notifier  *recordingNotifier
	signer    *capability.Signer
}

func newBookingFixture(t *testing.T, now time.Time) *bookingFixture {
	t.Helper()
	f := &bookingFixture{
		tutorRepo:       newStubTutorRepo(models.Tutor{ID: testTutorID, Name: "김다희", Email: "tutor@example.com", Active: true}),
		availRepo:       newStubAvailabilityRepo(),
		holidayRepo:     &stubHolidayRepo{},
		reservationRepo: newStubReservationRepo(),
		publisher:       &recordingPublisher{},
		notifier:        &recordingNotifier{},
		signer:          capability.NewSigner("edit-secret", time.Hour),
	}
	f.availability = NewAvailabilityService(f.availRepo, f.tutorRepo, nil, 0, nil, nil)
	f.holidays = NewHolidayService(f.holidayRepo, f.tutorRepo, nil, nil)
	f.resolver = NewResolverService(f.availability, f.holidays, f.reservationRepo, fixedCalendar(now), ResolverConfig{LeadTime: 30 * time.Minute}, nil)
	f.ledger = NewReservationService(f.reservationRepo, f.tutorRepo, f.resolver, f.signer, ReservationHooks{
		Notifier:   f.notifier,
		Publishers: []ChangePublisher{f.publisher},
	}, nil, nil, nil)
	return f
}

func (f *bookingFixture) setMonday(slots ...string) {
	f.availRepo.days[testTutorID] = map[string][]string{timeslot.Monday: slots}
}
