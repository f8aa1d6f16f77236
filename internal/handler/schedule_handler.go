package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/service"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
	"github.com/noah-isme/tutor-booking-api/pkg/timezone"
)

type dayResolver interface {
	Resolve(ctx context.Context, tutorID, date string, asOf time.Time, privileged bool, mode service.ResolveMode) ([]string, error)
	DaySchedule(ctx context.Context, tutorID, date string, asOf time.Time, privileged bool, mode service.ResolveMode) (*models.DaySchedule, error)
	Calendar() *timezone.Calendar
}

type scheduleExporter interface {
	DaySchedule(ctx context.Context, actor *models.Actor, tutorID, date, format string) (*service.ExportFile, error)
}

// ScheduleHandler serves resolved day views: bookable slots, staff schedules and exports.
type ScheduleHandler struct {
	resolver dayResolver
	exporter scheduleExporter
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(resolver dayResolver, exporter scheduleExporter) *ScheduleHandler {
	return &ScheduleHandler{resolver: resolver, exporter: exporter}
}

// Bookable godoc
// @Summary Bookable slots
// @Description Slots a caller can still book on date. Administrators and the tutor skip the lead time.
// @Tags Schedule
// @Produce json
// @Param id path string true "Tutor ID"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tutors/{id}/bookable [get]
func (h *ScheduleHandler) Bookable(c *gin.Context) {
	calendar := h.resolver.Calendar()
	date := c.DefaultQuery("date", calendar.Today())
	asOf := calendar.Now()

	tutorID := c.Param("id")
	slots, err := h.resolver.Resolve(c.Request.Context(), tutorID, date, asOf, actorFromContext(c).CanManageTutor(tutorID), service.ModeBooking)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "date", date)
	middleware.SetMeta(c, "as_of", asOf.Format(time.RFC3339))
	response.JSON(c, http.StatusOK, slots, nil, middleware.ExtractMeta(c))
}

// Schedule godoc
// @Summary Day schedule
// @Description Template, holiday flag, reservations and bookable slots. mode=schedule ignores holidays.
// @Tags Schedule
// @Produce json
// @Param id path string true "Tutor ID"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Param mode query string false "booking or schedule"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tutors/{id}/schedule [get]
func (h *ScheduleHandler) Schedule(c *gin.Context) {
	mode, err := service.ParseResolveMode(c.Query("mode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	calendar := h.resolver.Calendar()
	date := c.DefaultQuery("date", calendar.Today())

	tutorID := c.Param("id")
	schedule, err := h.resolver.DaySchedule(c.Request.Context(), tutorID, date, calendar.Now(), actorFromContext(c).CanManageTutor(tutorID), mode)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "mode", string(mode))
	response.JSON(c, http.StatusOK, schedule, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export day schedule
// @Tags Schedule
// @Produce octet-stream
// @Param id path string true "Tutor ID"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tutors/{id}/schedule/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	date := c.DefaultQuery("date", h.resolver.Calendar().Today())
	file, err := h.exporter.DaySchedule(c.Request.Context(), actorFromContext(c), c.Param("id"), date, c.DefaultQuery("format", service.ExportCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
