package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type holidayService interface {
	AddHoliday(ctx context.Context, actor *models.Actor, tutorID string, req models.HolidayRequest) (*models.Holiday, error)
	RemoveHoliday(ctx context.Context, actor *models.Actor, id string) error
	ListHolidays(ctx context.Context, tutorID string) ([]models.Holiday, error)
	ReplaceHolidays(ctx context.Context, actor *models.Actor, tutorID string, req models.ReplaceHolidaysRequest) ([]models.Holiday, error)
}

// HolidayHandler manages tutor holidays.
type HolidayHandler struct {
	service holidayService
}

// NewHolidayHandler constructs a HolidayHandler.
func NewHolidayHandler(svc holidayService) *HolidayHandler {
	return &HolidayHandler{service: svc}
}

// List godoc
// @Summary List holidays
// @Tags Holidays
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/holidays [get]
func (h *HolidayHandler) List(c *gin.Context) {
	items, err := h.service.ListHolidays(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Add a holiday
// @Description end_date defaults to start_date; both are inclusive.
// @Tags Holidays
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body models.HolidayRequest true "Holiday"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tutors/{id}/holidays [post]
func (h *HolidayHandler) Create(c *gin.Context) {
	var req models.HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}
	holiday, err := h.service.AddHoliday(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// Replace godoc
// @Summary Replace all holidays
// @Tags Holidays
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body models.ReplaceHolidaysRequest true "Holidays"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/holidays [put]
func (h *HolidayHandler) Replace(c *gin.Context) {
	var req models.ReplaceHolidaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}
	items, err := h.service.ReplaceHolidays(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Delete godoc
// @Summary Remove a holiday
// @Tags Holidays
// @Param id path string true "Holiday ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /holidays/{id} [delete]
func (h *HolidayHandler) Delete(c *gin.Context) {
	if err := h.service.RemoveHoliday(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
