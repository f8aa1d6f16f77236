package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
	"github.com/noah-isme/tutor-booking-api/pkg/timeslot"
)

type availabilityService interface {
	GenerateSlots(req models.GenerateSlotsRequest) ([]string, error)
	GetDaySlots(ctx context.Context, tutorID, day string) ([]string, error)
	GetWeek(ctx context.Context, tutorID string) (*models.WeeklyAvailability, error)
	SetDaySlots(ctx context.Context, actor *models.Actor, tutorID, day string, req models.SetSlotsRequest) ([]string, error)
	ApplyToAllDays(ctx context.Context, actor *models.Actor, tutorID string, req models.SetSlotsRequest) (*models.WeeklyAvailability, error)
}

// AvailabilityHandler manages tutors' weekly slot templates.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// GenerateSlots godoc
// @Summary Generate slot labels
// @Description Splits [start, end) into fixed-length slots. Only complete intervals are returned.
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body models.GenerateSlotsRequest true "Range and interval"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /slots/generate [post]
func (h *AvailabilityHandler) GenerateSlots(c *gin.Context) {
	var req models.GenerateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	slots, err := h.service.GenerateSlots(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// GetWeek godoc
// @Summary Weekly availability
// @Tags Availability
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/availability [get]
func (h *AvailabilityHandler) GetWeek(c *gin.Context) {
	week, err := h.service.GetWeek(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, week, nil)
}

// GetDay godoc
// @Summary Availability for one weekday
// @Tags Availability
// @Produce json
// @Param id path string true "Tutor ID"
// @Param day path string true "Weekday label or English day name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tutors/{id}/availability/{day} [get]
func (h *AvailabilityHandler) GetDay(c *gin.Context) {
	day, err := timeslot.NormalizeDay(c.Param("day"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}
	slots, err := h.service.GetDaySlots(c.Request.Context(), c.Param("id"), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.DayAvailability{TutorID: c.Param("id"), DayOfWeek: day, Slots: slots}, nil)
}

// SetDay godoc
// @Summary Replace one weekday's slots
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param day path string true "Weekday label or English day name"
// @Param payload body models.SetSlotsRequest true "Slots or generator"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tutors/{id}/availability/{day} [put]
func (h *AvailabilityHandler) SetDay(c *gin.Context) {
	var req models.SetSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	slots, err := h.service.SetDaySlots(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("day"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// ApplyToAllDays godoc
// @Summary Apply slots to every weekday
// @Description Writes the same slots to all seven days in one transaction.
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body models.SetSlotsRequest true "Slots or generator"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tutors/{id}/availability [put]
func (h *AvailabilityHandler) ApplyToAllDays(c *gin.Context) {
	var req models.SetSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	week, err := h.service.ApplyToAllDays(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, week, nil)
}
