package reports

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
)

func TestHandlerStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	event := &models.Event{ID: uuid.New(), Title: "Research Week"}
	talk := models.Presentation{ID: uuid.New(), EventID: event.ID, Title: "Talk"}
	q := &fakeQueue{}
	svc := NewService(&fakeCatalogue{event: event, presentations: []models.Presentation{talk}},
		fakeEvaluations{completed(talk.ID, 7), completed(talk.ID, 9)}, nil,
		WithArchiving(&fakeArchives{}, q, prefixPresigner{}))
	h := NewHandler(svc)

	caller := uuid.New()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, caller)
		c.Next()
	})
	r.GET("/presentations/:id/report", h.Presentation)
	r.GET("/events/:id/report", h.Event)
	r.POST("/events/:id/report/archive", h.Archive)
	r.GET("/events/:id/report/archives", h.Archives)

	do := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	assert.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/events/nope/report").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/events/"+uuid.NewString()+"/report").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/presentations/"+uuid.NewString()+"/report").Code)

	w := do(http.MethodGet, "/presentations/"+talk.ID.String()+"/report")
	require.Equal(t, http.StatusOK, w.Code)
	var pres struct {
		Data PresentationReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pres))
	require.NotNil(t, pres.Data.AverageScore)
	assert.Equal(t, 8.0, *pres.Data.AverageScore)

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/events/"+event.ID.String()+"/report").Code)

	w = do(http.MethodPost, "/events/"+event.ID.String()+"/report/archive")
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Equal(t, "job-1", accepted.Data["job_id"])
	require.Len(t, q.payloads, 1)
	assert.Equal(t, caller, q.payloads[0].RequestedBy)

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/events/"+event.ID.String()+"/report/archives").Code)
}
