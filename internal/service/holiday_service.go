package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type holidayRepository interface {
	Create(ctx context.Context, holiday *models.Holiday) error
	FindByID(ctx context.Context, id string) (*models.Holiday, error)
	Delete(ctx context.Context, id string) error
	ListByTutor(ctx context.Context, tutorID string) ([]models.Holiday, error)
	CoversDate(ctx context.Context, tutorID, date string) (bool, error)
	ReplaceAll(ctx context.Context, tutorID string, holidays []models.Holiday) error
}

// HolidayService manages tutor holidays that block whole days from booking.
type HolidayService struct {
	repo      holidayRepository
	tutors    tutorReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHolidayService constructs a HolidayService.
func NewHolidayService(repo holidayRepository, tutors tutorReader, validate *validator.Validate, logger *zap.Logger) *HolidayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayService{repo: repo, tutors: tutors, validator: ensureValidator(validate), logger: logger}
}

// AddHoliday records a holiday for the tutor and returns it with its id.
func (s *HolidayService) AddHoliday(ctx context.Context, actor *models.Actor, tutorID string, req models.HolidayRequest) (*models.Holiday, error) {
	if err := authorizeTutor(actor, tutorID); err != nil {
		return nil, err
	}
	holiday, err := s.buildHoliday(tutorID, req)
	if err != nil {
		return nil, err
	}
	if err := requireTutor(ctx, s.tutors, tutorID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &holiday); err != nil {
		return nil, backendError(err, "failed to create holiday")
	}
	s.logger.Info("holiday added", zap.String("tutor_id", tutorID), zap.String("start", holiday.StartDate), zap.String("end", holiday.EndDate))
	return &holiday, nil
}

// RemoveHoliday deletes a holiday by id.
func (s *HolidayService) RemoveHoliday(ctx context.Context, actor *models.Actor, id string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	holiday, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return backendError(err, "failed to load holiday")
	}
	if err := authorizeTutor(actor, holiday.TutorID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return backendError(err, "failed to delete holiday")
	}
	return nil
}

// ListHolidays returns a tutor's holidays ordered by start date.
func (s *HolidayService) ListHolidays(ctx context.Context, tutorID string) ([]models.Holiday, error) {
	items, err := s.repo.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, backendError(err, "failed to list holidays")
	}
	if items == nil {
		items = []models.Holiday{}
	}
	return items, nil
}

// IsDateOnHoliday reports whether date falls inside any holiday of the tutor.
func (s *HolidayService) IsDateOnHoliday(ctx context.Context, tutorID, date string) (bool, error) {
	covered, err := s.repo.CoversDate(ctx, tutorID, date)
	if err != nil {
		return false, backendError(err, "failed to check holidays")
	}
	return covered, nil
}

// ReplaceHolidays swaps the tutor's holidays for the given set atomically.
func (s *HolidayService) ReplaceHolidays(ctx context.Context, actor *models.Actor, tutorID string, req models.ReplaceHolidaysRequest) ([]models.Holiday, error) {
	if err := authorizeTutor(actor, tutorID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}
	holidays := make([]models.Holiday, 0, len(req.Holidays))
	for _, item := range req.Holidays {
		holiday, err := s.buildHoliday(tutorID, item)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, holiday)
	}
	if err := requireTutor(ctx, s.tutors, tutorID); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceAll(ctx, tutorID, holidays); err != nil {
		return nil, backendError(err, "failed to replace holidays")
	}
	return s.ListHolidays(ctx, tutorID)
}

func (s *HolidayService) buildHoliday(tutorID string, req models.HolidayRequest) (models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Holiday{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}
	end := req.EndDate
	if end == "" {
		end = req.StartDate
	}
	if end < req.StartDate {
		return models.Holiday{}, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	return models.Holiday{TutorID: tutorID, StartDate: req.StartDate, EndDate: end, Reason: req.Reason}, nil
}
