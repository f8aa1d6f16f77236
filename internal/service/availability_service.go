package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/timeslot"
)

type availabilityRepository interface {
	GetDay(ctx context.Context, tutorID, day string) ([]string, error)
	ListWeek(ctx context.Context, tutorID string) ([]models.DayAvailability, error)
	UpsertDay(ctx context.Context, tutorID, day string, slots []string) error
	UpsertDays(ctx context.Context, tutorID string, days []string, slots []string) error
}

type tutorReader interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
}

// AvailabilityService manages the weekly slot template of each tutor.
type AvailabilityService struct {
	repo      availabilityRepository
	tutors    tutorReader
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, tutors tutorReader, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		repo:      repo,
		tutors:    tutors,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: ensureValidator(validate),
		logger:    logger,
	}
}

// GenerateSlots expands a start/end/interval request into slot labels.
func (s *AvailabilityService) GenerateSlots(req models.GenerateSlotsRequest) ([]string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot generation payload")
	}
	slots, err := timeslot.Generate(req.Start, req.End, req.IntervalMinutes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return slots, nil
}

// GetDaySlots returns the sorted template for a weekday, empty when unset.
func (s *AvailabilityService) GetDaySlots(ctx context.Context, tutorID, day string) ([]string, error) {
	canonical, err := timeslot.NormalizeDay(day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	var slots []string
	err = s.cache.Remember(ctx, dayCacheKey(tutorID, canonical), s.cacheTTL, &slots, func(ctx context.Context) error {
		stored, err := s.repo.GetDay(ctx, tutorID, canonical)
		if err != nil {
			return err
		}
		slots = stored
		return nil
	})
	if err != nil {
		return nil, backendError(err, "failed to load availability")
	}
	if slots == nil {
		slots = []string{}
	}
	timeslot.Sort(slots)
	return slots, nil
}

// GetWeek returns all seven days of a tutor's template.
func (s *AvailabilityService) GetWeek(ctx context.Context, tutorID string) (*models.WeeklyAvailability, error) {
	rows, err := s.repo.ListWeek(ctx, tutorID)
	if err != nil {
		return nil, backendError(err, "failed to load weekly availability")
	}
	week := &models.WeeklyAvailability{TutorID: tutorID, Days: make(map[string][]string, 7)}
	for _, day := range timeslot.Week() {
		week.Days[day] = []string{}
	}
	for _, row := range rows {
		slots := append([]string{}, row.Slots...)
		timeslot.Sort(slots)
		week.Days[row.DayOfWeek] = slots
	}
	return week, nil
}

// SetDaySlots overwrites one weekday's template.
func (s *AvailabilityService) SetDaySlots(ctx context.Context, actor *models.Actor, tutorID, day string, req models.SetSlotsRequest) ([]string, error) {
	if err := authorizeTutor(actor, tutorID); err != nil {
		return nil, err
	}
	canonical, err := timeslot.NormalizeDay(day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	slots, err := s.resolveSlots(req)
	if err != nil {
		return nil, err
	}
	if err := requireTutor(ctx, s.tutors, tutorID); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertDay(ctx, tutorID, canonical, slots); err != nil {
		return nil, backendError(err, "failed to save availability")
	}
	s.invalidate(ctx, tutorID)
	s.logger.Info("availability updated", zap.String("tutor_id", tutorID), zap.String("day", canonical), zap.Int("slots", len(slots)))
	return slots, nil
}

// ApplyToAllDays writes the same template to every weekday in one transaction.
func (s *AvailabilityService) ApplyToAllDays(ctx context.Context, actor *models.Actor, tutorID string, req models.SetSlotsRequest) (*models.WeeklyAvailability, error) {
	if err := authorizeTutor(actor, tutorID); err != nil {
		return nil, err
	}
	slots, err := s.resolveSlots(req)
	if err != nil {
		return nil, err
	}
	if err := requireTutor(ctx, s.tutors, tutorID); err != nil {
		return nil, err
	}

	week := timeslot.Week()
	if err := s.repo.UpsertDays(ctx, tutorID, week, slots); err != nil {
		return nil, backendError(err, "failed to apply availability to all days")
	}
	s.invalidate(ctx, tutorID)

	result := &models.WeeklyAvailability{TutorID: tutorID, Days: make(map[string][]string, len(week))}
	for _, day := range week {
		result.Days[day] = append([]string{}, slots...)
	}
	return result, nil
}

func (s *AvailabilityService) resolveSlots(req models.SetSlotsRequest) ([]string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	labels := req.Slots
	if req.Generate != nil {
		generated, err := s.GenerateSlots(*req.Generate)
		if err != nil {
			return nil, err
		}
		labels = generated
	}
	slots, err := timeslot.Normalize(labels)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return slots, nil
}

func (s *AvailabilityService) invalidate(ctx context.Context, tutorID string) {
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("availability:%s:*", tutorID))
}

func dayCacheKey(tutorID, day string) string {
	return fmt.Sprintf("availability:%s:%s", tutorID, day)
}

func requireTutor(ctx context.Context, tutors tutorReader, tutorID string) error {
	if tutors == nil {
		return nil
	}
	if _, err := tutors.FindByID(ctx, tutorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return backendError(err, "failed to load tutor")
	}
	return nil
}

// authorizeTutor allows administrators and the tutor themself.
func authorizeTutor(actor *models.Actor, tutorID string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if !actor.CanManageTutor(tutorID) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this tutor")
	}
	return nil
}

// backendError keeps typed errors and reports storage failures as BACKEND_UNAVAILABLE.
func backendError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, message)
}
