package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/timeslot"
	"github.com/noah-isme/tutor-booking-api/pkg/timezone"
)

const feedSnapshotPageSize = 100

type reservationRepository interface {
	Create(ctx context.Context, res *models.Reservation) error
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
	Update(ctx context.Context, res *models.Reservation) error
	Delete(ctx context.Context, id string) (bool, error)
	ListActiveByTutorDate(ctx context.Context, tutorID, date string) ([]models.Reservation, error)
	IsSlotBooked(ctx context.Context, tutorID, date, slot string) (bool, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error)
}

type bookableResolver interface {
	Resolve(ctx context.Context, tutorID, date string, asOf time.Time, privileged bool, mode ResolveMode) ([]string, error)
	Calendar() *timezone.Calendar
}

type editTokenSigner interface {
	Issue(reservationID string) (string, time.Time, error)
	Verify(token, reservationID string) error
}

type reservationNotifier interface {
	NotifyReservation(ctx context.Context, kind string, reservation models.Reservation, tutor *models.Tutor)
}

// ChangePublisher receives every committed ledger change.
type ChangePublisher interface {
	Publish(ctx context.Context, change models.ReservationChange) error
}

type reservationSubscriber interface {
	Subscribe(ctx context.Context, filter models.ReservationFilter, callback func([]models.Reservation)) (func(), error)
}

// ReservationHooks are the fail-open side effects of ledger writes.
type ReservationHooks struct {
	Notifier   reservationNotifier
	Publishers []ChangePublisher
	Feed       reservationSubscriber
}

// ReservationService is the reservation ledger. It guards bookings against the
// resolved availability and relies on the storage unique index for atomicity.
type ReservationService struct {
	repo      reservationRepository
	tutors    tutorReader
	resolver  bookableResolver
	signer    editTokenSigner
	hooks     ReservationHooks
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReservationService constructs a ReservationService.
func NewReservationService(repo reservationRepository, tutors tutorReader, resolver bookableResolver, signer editTokenSigner, hooks ReservationHooks, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{
		repo:      repo,
		tutors:    tutors,
		resolver:  resolver,
		signer:    signer,
		hooks:     hooks,
		metrics:   metrics,
		validator: ensureValidator(validate),
		logger:    logger,
	}
}

// Create books a slot and returns the reservation with a one-time edit token.
func (s *ReservationService) Create(ctx context.Context, actor *models.Actor, req models.CreateReservationRequest) (*models.ReservationReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	slot, err := timeslot.Parse(req.TimeSlot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time_slot")
	}
	classDate := req.ClassDate
	if classDate == "" {
		classDate = s.resolver.Calendar().Today()
	}

	tutor, err := s.loadTutor(ctx, req.TutorID)
	if err != nil {
		return nil, err
	}
	if !tutor.Active {
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "tutor is not accepting reservations")
	}

	if err := s.guard(ctx, actor, tutor.ID, classDate, slot.Label()); err != nil {
		return nil, err
	}

	reservation := models.Reservation{
		ID:           uuid.NewString(),
		TutorID:      tutor.ID,
		TutorName:    tutor.Name,
		ClassDate:    classDate,
		TimeSlot:     slot.Label(),
		TeamName:     req.TeamName,
		Question:     req.Question,
		ResourceLink: req.ResourceLink,
		Status:       models.ReservationReserved,
	}
	if actor != nil && actor.UserID != "" {
		owner := actor.UserID
		reservation.OwnerID = &owner
	}

	token, expiresAt, err := s.signer.Issue(reservation.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue edit token")
	}

	if err := s.repo.Create(ctx, &reservation); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.RecordSlotConflict()
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "time slot was just taken, please pick another time")
		}
		return nil, backendError(err, "failed to create reservation")
	}

	s.logger.Info("reservation created",
		zap.String("reservation_id", reservation.ID),
		zap.String("tutor_id", reservation.TutorID),
		zap.String("class_date", reservation.ClassDate),
		zap.String("time_slot", reservation.TimeSlot),
	)
	s.afterChange(ctx, models.ChangeCreated, reservation, tutor)

	return &models.ReservationReceipt{Reservation: reservation, EditToken: token, EditTokenExpiresAt: expiresAt}, nil
}

// Get returns a reservation to a caller allowed to edit it: the owner, a holder
// of its edit token, its tutor or an administrator.
func (s *ReservationService) Get(ctx context.Context, actor *models.Actor, id, token string) (*models.Reservation, error) {
	return s.authorizeEdit(ctx, actor, id, token)
}

func (s *ReservationService) load(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, backendError(err, "failed to load reservation")
	}
	return reservation, nil
}

// List returns reservations visible to staff. Tutors only see their own.
func (s *ReservationService) List(ctx context.Context, actor *models.Actor, filter models.ReservationFilter) ([]models.Reservation, *models.Pagination, error) {
	if !actor.Staff() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "staff access required")
	}
	if !actor.Privileged() {
		filter.TutorID = actor.TutorID
	}
	if filter.ClassDate != "" && !timezone.ValidDate(filter.ClassDate) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, backendError(err, "failed to list reservations")
	}
	if items == nil {
		items = []models.Reservation{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update merges the provided fields. Moving to another slot re-runs the booking guard.
func (s *ReservationService) Update(ctx context.Context, actor *models.Actor, id, token string, req models.UpdateReservationRequest) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	reservation, err := s.authorizeEdit(ctx, actor, id, token)
	if err != nil {
		return nil, err
	}
	if reservation.Status != models.ReservationReserved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reservation can no longer be edited")
	}

	updated := *reservation
	if req.Question != nil {
		updated.Question = *req.Question
	}
	if req.ResourceLink != nil {
		updated.ResourceLink = *req.ResourceLink
	}
	if req.TimeSlot != nil {
		slot, err := timeslot.Parse(*req.TimeSlot)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time_slot")
		}
		if slot.Label() != reservation.TimeSlot {
			if err := s.guard(ctx, actor, reservation.TutorID, reservation.ClassDate, slot.Label()); err != nil {
				return nil, err
			}
			updated.TimeSlot = slot.Label()
		}
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			s.metrics.RecordSlotConflict()
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "time slot was just taken, please pick another time")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, backendError(err, "failed to update reservation")
	}

	s.afterChange(ctx, models.ChangeUpdated, updated, nil)
	return &updated, nil
}

// Cancel deletes a reservation. Cancelling a reservation that no longer exists
// succeeds for callers who were entitled to cancel it.
func (s *ReservationService) Cancel(ctx context.Context, actor *models.Actor, id, token string) error {
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return backendError(err, "failed to load reservation")
		}
		if actor.Staff() || (token != "" && s.signer.Verify(token, id) == nil) {
			return nil
		}
		return invalidEditCredentials()
	}
	if !s.mayEdit(actor, reservation, token) {
		return invalidEditCredentials()
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return backendError(err, "failed to cancel reservation")
	}
	if deleted {
		reservation.Status = models.ReservationCanceled
		s.logger.Info("reservation canceled", zap.String("reservation_id", id))
		s.afterChange(ctx, models.ChangeCanceled, *reservation, nil)
	}
	return nil
}

// Complete marks a reserved session as held. Tutors may complete their own sessions.
func (s *ReservationService) Complete(ctx context.Context, actor *models.Actor, id string) (*models.Reservation, error) {
	if !actor.Staff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "staff access required")
	}
	reservation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageTutor(reservation.TutorID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this reservation")
	}
	if reservation.Status == models.ReservationCompleted {
		return reservation, nil
	}

	reservation.Status = models.ReservationCompleted
	if err := s.repo.Update(ctx, reservation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, backendError(err, "failed to complete reservation")
	}
	s.afterChange(ctx, models.ChangeCompleted, *reservation, nil)
	return reservation, nil
}

// IsSlotBooked checks storage directly for a live reservation on the slot.
func (s *ReservationService) IsSlotBooked(ctx context.Context, tutorID, date, slot string) (bool, error) {
	booked, err := s.repo.IsSlotBooked(ctx, tutorID, date, slot)
	if err != nil {
		return false, backendError(err, "failed to check slot")
	}
	return booked, nil
}

// Snapshot returns every reservation matching filter, used for live feed deliveries.
// Broad filters are read page by page until the reported total is reached.
func (s *ReservationService) Snapshot(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	if filter.TutorID != "" && filter.ClassDate != "" && filter.OwnerID == "" && filter.Status == "" {
		return s.repo.ListActiveByTutorDate(ctx, filter.TutorID, filter.ClassDate)
	}
	filter.PageSize = feedSnapshotPageSize
	all := make([]models.Reservation, 0)
	for page := 1; ; page++ {
		filter.Page = page
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < filter.PageSize || len(all) >= total {
			return all, nil
		}
	}
}

// Subscribe opens a live feed of full snapshots for filter.
func (s *ReservationService) Subscribe(ctx context.Context, actor *models.Actor, filter models.ReservationFilter, callback func([]models.Reservation)) (func(), error) {
	if !actor.Staff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "staff access required")
	}
	if !actor.Privileged() {
		filter.TutorID = actor.TutorID
	}
	if s.hooks.Feed == nil {
		return nil, appErrors.Clone(appErrors.ErrBackendUnavailable, "live feed unavailable")
	}
	unsubscribe, err := s.hooks.Feed.Subscribe(ctx, filter, callback)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, "live feed unavailable")
	}
	return unsubscribe, nil
}

func (s *ReservationService) guard(ctx context.Context, actor *models.Actor, tutorID, date, slot string) error {
	asOf := s.resolver.Calendar().Now()
	bookable, err := s.resolver.Resolve(ctx, tutorID, date, asOf, actor.CanManageTutor(tutorID), ModeBooking)
	if err != nil {
		return err
	}
	for _, candidate := range bookable {
		if candidate == slot {
			return nil
		}
	}
	s.metrics.RecordSlotConflict()
	return appErrors.Clone(appErrors.ErrSlotUnavailable, "time slot is not available, please pick another time")
}

func (s *ReservationService) loadTutor(ctx context.Context, tutorID string) (*models.Tutor, error) {
	tutor, err := s.tutors.FindByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, backendError(err, "failed to load tutor")
	}
	return tutor, nil
}

// authorizeEdit loads the reservation for an edit. Unknown ids and bad tokens
// produce the same error unless the caller is staff.
func (s *ReservationService) authorizeEdit(ctx context.Context, actor *models.Actor, id, token string) (*models.Reservation, error) {
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, backendError(err, "failed to load reservation")
		}
		if actor.Staff() {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, invalidEditCredentials()
	}
	if !s.mayEdit(actor, reservation, token) {
		return nil, invalidEditCredentials()
	}
	return reservation, nil
}

func (s *ReservationService) mayEdit(actor *models.Actor, reservation *models.Reservation, token string) bool {
	if actor.CanManageTutor(reservation.TutorID) {
		return true
	}
	if actor != nil && actor.UserID != "" && reservation.OwnerID != nil && *reservation.OwnerID == actor.UserID {
		return true
	}
	return token != "" && s.signer.Verify(token, reservation.ID) == nil
}

func invalidEditCredentials() error {
	return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
}

func (s *ReservationService) afterChange(ctx context.Context, kind string, reservation models.Reservation, tutor *models.Tutor) {
	s.metrics.RecordReservation(kind)

	change := models.ReservationChange{Kind: kind, Reservation: reservation, OccurredAt: time.Now().UTC()}
	for _, publisher := range s.hooks.Publishers {
		if err := publisher.Publish(ctx, change); err != nil {
			s.metrics.RecordEventFailure()
			s.logger.Warn("failed to publish reservation change",
				zap.String("kind", kind),
				zap.String("reservation_id", reservation.ID),
				zap.Error(err),
			)
		}
	}

	if s.hooks.Notifier == nil || (kind != models.ChangeCreated && kind != models.ChangeUpdated) {
		return
	}
	if tutor == nil {
		loaded, err := s.tutors.FindByID(ctx, reservation.TutorID)
		if err != nil {
			s.logger.Warn("skipping reservation email, tutor lookup failed", zap.String("reservation_id", reservation.ID), zap.Error(err))
			return
		}
		tutor = loaded
	}
	s.hooks.Notifier.NotifyReservation(ctx, kind, reservation, tutor)
}
