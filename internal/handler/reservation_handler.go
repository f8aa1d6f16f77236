package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

const defaultFeedHeartbeat = 25 * time.Second

type reservationLedger interface {
	Create(ctx context.Context, actor *models.Actor, req models.CreateReservationRequest) (*models.ReservationReceipt, error)
	Get(ctx context.Context, actor *models.Actor, id, token string) (*models.Reservation, error)
	List(ctx context.Context, actor *models.Actor, filter models.ReservationFilter) ([]models.Reservation, *models.Pagination, error)
	Update(ctx context.Context, actor *models.Actor, id, token string, req models.UpdateReservationRequest) (*models.Reservation, error)
	Cancel(ctx context.Context, actor *models.Actor, id, token string) error
	Complete(ctx context.Context, actor *models.Actor, id string) (*models.Reservation, error)
	Subscribe(ctx context.Context, actor *models.Actor, filter models.ReservationFilter, callback func([]models.Reservation)) (func(), error)
}

// ReservationHandler exposes the reservation ledger and its live feed.
type ReservationHandler struct {
	service   reservationLedger
	heartbeat time.Duration
}

// NewReservationHandler constructs a ReservationHandler. heartbeat spaces SSE
// keep-alive comments on the live feed.
func NewReservationHandler(svc reservationLedger, heartbeat time.Duration) *ReservationHandler {
	if heartbeat <= 0 {
		heartbeat = defaultFeedHeartbeat
	}
	return &ReservationHandler{service: svc, heartbeat: heartbeat}
}

// Create godoc
// @Summary Book a slot
// @Description Returns the reservation and a one-time edit token for later changes.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body models.CreateReservationRequest true "Reservation"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	var req models.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}
	receipt, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header(editTokenHeader, receipt.EditToken)
	response.Created(c, receipt)
}

// Get godoc
// @Summary Get reservation
// @Description Visible to the creator, holders of the edit token, the tutor and administrators.
// @Tags Reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Param X-Edit-Token header string false "Edit token issued on creation"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reservations/{id} [get]
func (h *ReservationHandler) Get(c *gin.Context) {
	reservation, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"), c.GetHeader(editTokenHeader))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation, nil)
}

// List godoc
// @Summary List reservations
// @Description Tutors only see their own reservations.
// @Tags Reservations
// @Produce json
// @Param tutor_id query string false "Tutor"
// @Param date query string false "Class date YYYY-MM-DD"
// @Param owner_id query string false "Creator user"
// @Param status query string false "reserved, completed or canceled"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.ReservationFilter{
		TutorID:   c.Query("tutor_id"),
		ClassDate: c.Query("date"),
		OwnerID:   c.Query("owner_id"),
		Status:    models.ReservationStatus(c.Query("status")),
		Page:      page,
		PageSize:  size,
	}
	items, pagination, err := h.service.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Update godoc
// @Summary Update reservation
// @Description Requires an administrator token, the creator's token or the X-Edit-Token header.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param X-Edit-Token header string false "Edit token issued on creation"
// @Param payload body models.UpdateReservationRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reservations/{id} [patch]
func (h *ReservationHandler) Update(c *gin.Context) {
	var req models.UpdateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}
	reservation, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), c.GetHeader(editTokenHeader), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation, nil)
}

// Cancel godoc
// @Summary Cancel reservation
// @Description Deletes the reservation. Repeating the call succeeds.
// @Tags Reservations
// @Param id path string true "Reservation ID"
// @Param X-Edit-Token header string false "Edit token issued on creation"
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), actorFromContext(c), c.Param("id"), c.GetHeader(editTokenHeader)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Complete godoc
// @Summary Mark reservation completed
// @Tags Reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reservations/{id}/complete [post]
func (h *ReservationHandler) Complete(c *gin.Context) {
	reservation, err := h.service.Complete(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation, nil)
}

// Feed godoc
// @Summary Live reservation feed
// @Description Server-Sent Events. Each "snapshot" event carries the full matching reservation list.
// @Tags Reservations
// @Produce text/event-stream
// @Param tutor_id query string false "Tutor"
// @Param date query string false "Class date YYYY-MM-DD"
// @Success 200 {string} string "event stream"
// @Failure 403 {object} response.Envelope
// @Router /reservations/feed [get]
func (h *ReservationHandler) Feed(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates := make(chan []models.Reservation, 1)
	filter := models.ReservationFilter{TutorID: c.Query("tutor_id"), ClassDate: c.Query("date")}
	unsubscribe, err := h.service.Subscribe(ctx, actorFromContext(c), filter, func(items []models.Reservation) {
		// Only the latest snapshot matters to a slow reader.
		select {
		case <-updates:
		default:
		}
		updates <- items
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case items := <-updates:
			c.SSEvent("snapshot", items)
			c.Writer.Flush()
		case <-ticker.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		}
	}
}
