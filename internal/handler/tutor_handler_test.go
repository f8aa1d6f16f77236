package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type tutorDirectoryStub struct {
	lastFilter models.TutorFilter
}

func (s *tutorDirectoryStub) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, *models.Pagination, error) {
	s.lastFilter = filter
	return []models.Tutor{{ID: "tutor-1", Name: "Kim", Active: true}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (s *tutorDirectoryStub) Get(ctx context.Context, id string) (*models.Tutor, error) {
	if id != "tutor-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
	}
	return &models.Tutor{ID: id, Name: "Kim", Active: true}, nil
}

func TestTutorHandlerListParsesFilters(t *testing.T) {
	stub := &tutorDirectoryStub{}
	h := NewTutorHandler(stub)
	c, w := newTestContext(http.MethodGet, "/tutors?search=kim&active=true&track_id=t1&page=2&page_size=5", nil, nil)

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kim", stub.lastFilter.Search)
	assert.Equal(t, "t1", stub.lastFilter.TrackID)
	require.NotNil(t, stub.lastFilter.Active)
	assert.True(t, *stub.lastFilter.Active)
	assert.Equal(t, 2, stub.lastFilter.Page)
	assert.Equal(t, 5, stub.lastFilter.PageSize)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestTutorHandlerGet(t *testing.T) {
	h := NewTutorHandler(&tutorDirectoryStub{})

	c, w := newTestContext(http.MethodGet, "/tutors/tutor-1", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}
	h.Get(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(http.MethodGet, "/tutors/nope", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
