package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type tutorDirectory interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Tutor, error)
}

// TutorHandler exposes the tutor directory.
type TutorHandler struct {
	service tutorDirectory
}

// NewTutorHandler constructs a TutorHandler.
func NewTutorHandler(svc tutorDirectory) *TutorHandler {
	return &TutorHandler{service: svc}
}

// List godoc
// @Summary List tutors
// @Tags Tutors
// @Produce json
// @Param search query string false "Name or email fragment"
// @Param active query bool false "Filter by active flag"
// @Param organization_id query string false "Organization"
// @Param track_id query string false "Track"
// @Param batch_id query string false "Batch"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *TutorHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.TutorFilter{
		Search:         c.Query("search"),
		OrganizationID: c.Query("organization_id"),
		TrackID:        c.Query("track_id"),
		BatchID:        c.Query("batch_id"),
		Page:           page,
		PageSize:       size,
	}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get tutor
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id} [get]
func (h *TutorHandler) Get(c *gin.Context) {
	tutor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}
