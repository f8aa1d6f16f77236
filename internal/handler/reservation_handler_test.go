package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type ledgerStub struct {
	mu         sync.Mutex
	lastActor  *models.Actor
	lastToken  string
	lastFilter models.ReservationFilter
	createErr  error
	cancelErr  error
	feed       []models.Reservation
}

func (s *ledgerStub) record(actor *models.Actor, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActor = actor
	s.lastToken = token
}

func (s *ledgerStub) Create(ctx context.Context, actor *models.Actor, req models.CreateReservationRequest) (*models.ReservationReceipt, error) {
	s.record(actor, "")
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.ReservationReceipt{
		Reservation: models.Reservation{ID: "res-1", TutorID: req.TutorID, TimeSlot: req.TimeSlot, Status: models.ReservationReserved},
		EditToken:   "1767225600.sig",
	}, nil
}

func (s *ledgerStub) Get(ctx context.Context, actor *models.Actor, id, token string) (*models.Reservation, error) {
	s.record(actor, token)
	if id != "res-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
	}
	if token == "" && !actor.Staff() {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}
	return &models.Reservation{ID: id}, nil
}

func (s *ledgerStub) List(ctx context.Context, actor *models.Actor, filter models.ReservationFilter) ([]models.Reservation, *models.Pagination, error) {
	s.mu.Lock()
	s.lastFilter = filter
	s.mu.Unlock()
	return []models.Reservation{{ID: "res-1"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (s *ledgerStub) Update(ctx context.Context, actor *models.Actor, id, token string, req models.UpdateReservationRequest) (*models.Reservation, error) {
	s.record(actor, token)
	if token == "" && !actor.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}
	return &models.Reservation{ID: id, Question: *req.Question}, nil
}

func (s *ledgerStub) Cancel(ctx context.Context, actor *models.Actor, id, token string) error {
	s.record(actor, token)
	return s.cancelErr
}

func (s *ledgerStub) Complete(ctx context.Context, actor *models.Actor, id string) (*models.Reservation, error) {
	s.record(actor, "")
	return &models.Reservation{ID: id, Status: models.ReservationCompleted}, nil
}

func (s *ledgerStub) Subscribe(ctx context.Context, actor *models.Actor, filter models.ReservationFilter, callback func([]models.Reservation)) (func(), error) {
	if !actor.Staff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "staff access required")
	}
	callback(s.feed)
	return func() {}, nil
}

func TestReservationHandlerCreate(t *testing.T) {
	stub := &ledgerStub{}
	h := NewReservationHandler(stub, 0)
	c, w := newTestContext(http.MethodPost, "/reservations", models.CreateReservationRequest{
		TutorID: "tutor-1", TimeSlot: "10:00-10:30", TeamName: "A",
	}, nil)

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1767225600.sig", w.Header().Get(editTokenHeader))
	assert.Nil(t, stub.lastActor)
	assert.Contains(t, w.Body.String(), `"edit_token":"1767225600.sig"`)
}

func TestReservationHandlerCreateConflict(t *testing.T) {
	stub := &ledgerStub{createErr: appErrors.Clone(appErrors.ErrSlotUnavailable, "time slot is not available")}
	h := NewReservationHandler(stub, 0)
	c, w := newTestContext(http.MethodPost, "/reservations", models.CreateReservationRequest{TutorID: "tutor-1"}, studentClaims)

	h.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SLOT_UNAVAILABLE", env.Error.Code)
	assert.Equal(t, "student-1", stub.lastActor.UserID)
}

func TestReservationHandlerCreateInvalidBody(t *testing.T) {
	h := NewReservationHandler(&ledgerStub{}, 0)
	c, w := newTestContext(http.MethodPost, "/reservations", `{"tutor_id":`, nil)

	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReservationHandlerUpdatePassesEditToken(t *testing.T) {
	stub := &ledgerStub{}
	h := NewReservationHandler(stub, 0)
	question := "updated"

	c, w := newTestContext(http.MethodPatch, "/reservations/res-1", models.UpdateReservationRequest{Question: &question}, nil)
	c.Params = gin.Params{{Key: "id", Value: "res-1"}}
	c.Request.Header.Set(editTokenHeader, "tok")
	h.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", stub.lastToken)

	c, w = newTestContext(http.MethodPatch, "/reservations/res-1", models.UpdateReservationRequest{Question: &question}, nil)
	c.Params = gin.Params{{Key: "id", Value: "res-1"}}
	h.Update(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReservationHandlerCancel(t *testing.T) {
	stub := &ledgerStub{}
	h := NewReservationHandler(stub, 0)
	c, w := newTestContext(http.MethodDelete, "/reservations/res-1", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "res-1"}}

	h.Cancel(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, stub.lastActor.Privileged())

	stub.cancelErr = appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	c, w = newTestContext(http.MethodDelete, "/reservations/res-1", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "res-1"}}
	h.Cancel(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReservationHandlerGetNotFound(t *testing.T) {
	h := NewReservationHandler(&ledgerStub{}, 0)
	c, w := newTestContext(http.MethodGet, "/reservations/nope", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReservationHandlerGetRequiresEditRights(t *testing.T) {
	stub := &ledgerStub{}
	h := NewReservationHandler(stub, 0)

	c, w := newTestContext(http.MethodGet, "/reservations/res-1", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "res-1"}}
	h.Get(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodGet, "/reservations/res-1", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "res-1"}}
	c.Request.Header.Set(editTokenHeader, "1767225600.sig")
	h.Get(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1767225600.sig", stub.lastToken)

	c, w = newTestContext(http.MethodGet, "/reservations/res-1", nil, tutorClaims)
	c.Params = gin.Params{{Key: "id", Value: "res-1"}}
	h.Get(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tutor-1", stub.lastActor.TutorID)
}

func TestReservationHandlerListParsesFilter(t *testing.T) {
	stub := &ledgerStub{}
	h := NewReservationHandler(stub, 0)
	c, w := newTestContext(http.MethodGet, "/reservations?tutor_id=tutor-1&date=2025-06-09&status=reserved&page=2&page_size=5", nil, tutorClaims)

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReservationFilter{
		TutorID: "tutor-1", ClassDate: "2025-06-09", Status: models.ReservationReserved, Page: 2, PageSize: 5,
	}, stub.lastFilter)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestReservationHandlerComplete(t *testing.T) {
	h := NewReservationHandler(&ledgerStub{}, 0)
	c, w := newTestContext(http.MethodPost, "/reservations/res-1/complete", nil, tutorClaims)
	c.Params = gin.Params{{Key: "id", Value: "res-1"}}

	h.Complete(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)
}

func TestReservationHandlerFeedStreamsSnapshots(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &ledgerStub{feed: []models.Reservation{{ID: "res-1", TeamName: "Alpha"}}}
	h := NewReservationHandler(stub, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	c, w := newTestContext(http.MethodGet, "/reservations/feed?tutor_id=tutor-1", nil, adminClaims)
	c.Request = c.Request.WithContext(ctx)

	h.Feed(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "event:snapshot"), body)
	assert.Contains(t, body, "Alpha")
}

func TestReservationHandlerFeedRejectsStudents(t *testing.T) {
	h := NewReservationHandler(&ledgerStub{}, time.Hour)
	c, w := newTestContext(http.MethodGet, "/reservations/feed", nil, studentClaims)

	h.Feed(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
