package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/tutor-booking-api/internal/mailer"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	"github.com/noah-isme/tutor-booking-api/pkg/timezone"
)

const (
	testTutorID  = "tutor-1"
	testTimezone = "Asia/Seoul"
)

func fixedCalendar(at time.Time) *timezone.Calendar {
	return timezone.NewCalendar(testTimezone, func() time.Time { return at })
}

func seoul(date string, hour, minute int) time.Time {
	loc := timezone.Location(testTimezone)
	t, _ := time.ParseInLocation(timezone.DateLayout, date, loc)
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, loc)
}

var (
	adminActor   = &models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
	tutorActor   = &models.Actor{UserID: "user-tutor-1", Role: models.RoleTutor, TutorID: testTutorID}
	studentActor = &models.Actor{UserID: "student-1", Role: models.RoleStudent}
)

type stubTutorRepo struct {
	tutors map[string]models.Tutor
}

func newStubTutorRepo(tutors ...models.Tutor) *stubTutorRepo {
	repo := &stubTutorRepo{tutors: make(map[string]models.Tutor)}
	for _, t := range tutors {
		repo.tutors[t.ID] = t
	}
	return repo
}

func (s *stubTutorRepo) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	t, ok := s.tutors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := t
	return &clone, nil
}

func (s *stubTutorRepo) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error) {
	items := make([]models.Tutor, 0, len(s.tutors))
	for _, t := range s.tutors {
		items = append(items, t)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, len(items), nil
}

type stubAvailabilityRepo struct {
	mu       sync.Mutex
	days     map[string]map[string][]string
	failWith error
	reads    int
}

func newStubAvailabilityRepo() *stubAvailabilityRepo {
	return &stubAvailabilityRepo{days: make(map[string]map[string][]string)}
}

func (s *stubAvailabilityRepo) GetDay(ctx context.Context, tutorID, day string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return append([]string{}, s.days[tutorID][day]...), nil
}

func (s *stubAvailabilityRepo) ListWeek(ctx context.Context, tutorID string) ([]models.DayAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DayAvailability
	for day, slots := range s.days[tutorID] {
		out = append(out, models.DayAvailability{TutorID: tutorID, DayOfWeek: day, Slots: append([]string{}, slots...)})
	}
	return out, nil
}

func (s *stubAvailabilityRepo) UpsertDay(ctx context.Context, tutorID, day string, slots []string) error {
	return s.UpsertDays(ctx, tutorID, []string{day}, slots)
}

// UpsertDays is all-or-nothing like the transactional repository.
func (s *stubAvailabilityRepo) UpsertDays(ctx context.Context, tutorID string, days []string, slots []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if s.days[tutorID] == nil {
		s.days[tutorID] = make(map[string][]string)
	}
	for _, day := range days {
		s.days[tutorID][day] = append([]string{}, slots...)
	}
	return nil
}

type stubHolidayRepo struct {
	mu       sync.Mutex
	holidays []models.Holiday
	failWith error
}

func (s *stubHolidayRepo) Create(ctx context.Context, holiday *models.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	s.holidays = append(s.holidays, *holiday)
	return nil
}

func (s *stubHolidayRepo) FindByID(ctx context.Context, id string) (*models.Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holidays {
		if h.ID == id {
			clone := h
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubHolidayRepo) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range s.holidays {
		if h.ID == id {
			s.holidays = append(s.holidays[:i], s.holidays[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubHolidayRepo) ListByTutor(ctx context.Context, tutorID string) ([]models.Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Holiday
	for _, h := range s.holidays {
		if h.TutorID == tutorID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate < out[j].StartDate })
	return out, nil
}

func (s *stubHolidayRepo) CoversDate(ctx context.Context, tutorID, date string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holidays {
		if h.TutorID == tutorID && h.Covers(date) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubHolidayRepo) ReplaceAll(ctx context.Context, tutorID string, holidays []models.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	kept := s.holidays[:0]
	for _, h := range s.holidays {
		if h.TutorID != tutorID {
			kept = append(kept, h)
		}
	}
	for _, h := range holidays {
		h.ID = uuid.NewString()
		kept = append(kept, h)
	}
	s.holidays = kept
	return nil
}

// stubReservationRepo enforces one live reservation per tutor, date and slot under a mutex.
type stubReservationRepo struct {
	mu    sync.Mutex
	items map[string]models.Reservation
}

func newStubReservationRepo() *stubReservationRepo {
	return &stubReservationRepo{items: make(map[string]models.Reservation)}
}

func (s *stubReservationRepo) takenLocked(tutorID, date, slot, exceptID string) bool {
	for id, r := range s.items {
		if id != exceptID && r.TutorID == tutorID && r.ClassDate == date && r.TimeSlot == slot && r.Status != models.ReservationCanceled {
			return true
		}
	}
	return false
}

func (s *stubReservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.takenLocked(res.TutorID, res.ClassDate, res.TimeSlot, "") {
		return repository.ErrSlotTaken
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	res.CreatedAt, res.UpdatedAt = now, now
	s.items[res.ID] = *res
	return nil
}

func (s *stubReservationRepo) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (s *stubReservationRepo) Update(ctx context.Context, res *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[res.ID]; !ok {
		return sql.ErrNoRows
	}
	if s.takenLocked(res.TutorID, res.ClassDate, res.TimeSlot, res.ID) {
		return repository.ErrSlotTaken
	}
	res.UpdatedAt = time.Now().UTC()
	s.items[res.ID] = *res
	return nil
}

func (s *stubReservationRepo) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

func (s *stubReservationRepo) ListActiveByTutorDate(ctx context.Context, tutorID, date string) ([]models.Reservation, error) {
	items, _, err := s.List(ctx, models.ReservationFilter{TutorID: tutorID, ClassDate: date})
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, r := range items {
		if r.Status != models.ReservationCanceled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubReservationRepo) IsSlotBooked(ctx context.Context, tutorID, date, slot string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takenLocked(tutorID, date, slot, ""), nil
}

func (s *stubReservationRepo) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Reservation, 0)
	for _, r := range s.items {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClassDate != out[j].ClassDate {
			return out[i].ClassDate < out[j].ClassDate
		}
		return out[i].TimeSlot < out[j].TimeSlot
	})
	total := len(out)
	if filter.PageSize > 0 {
		start := (filter.Page - 1) * filter.PageSize
		if start > total {
			start = total
		}
		end := start + filter.PageSize
		if end > total {
			end = total
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (s *stubReservationRepo) seed(res models.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[res.ID] = res
}

func (s *stubReservationRepo) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []models.ReservationChange
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, change models.ReservationChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return p.err
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.changes))
	for _, c := range p.changes {
		out = append(out, c.Kind)
	}
	return out
}

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []string
	to    []string
}

func (n *recordingNotifier) NotifyReservation(ctx context.Context, kind string, reservation models.Reservation, tutor *models.Tutor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	if tutor != nil {
		n.to = append(n.to, tutor.Email)
	}
}

type failingMailer struct {
	mu    sync.Mutex
	calls int
}

func (m *failingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return errors.New("smtp unreachable")
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
	sent     chan struct{}
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(chan struct{}, 16)}
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	m.sent <- struct{}{}
	return nil
}
