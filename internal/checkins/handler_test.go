package checkins

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/geofence"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

func TestHandlerFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	zones, err := geofence.NewTable(map[string]geofence.Coordinate{"central": {Latitude: -22.8184, Longitude: -47.0647}}, 500)
	require.NoError(t, err)
	h := NewHandler(NewLedger(&memoryStore{}, fixedPin{pin: models.Pin{ID: uuid.New(), Value: "123456", Active: true}}, zones, nil))

	userID := uuid.New()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Next()
	})
	r.POST("/checkins", h.CheckIn)
	r.POST("/checkins/checkout", h.CheckOut)

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusBadRequest, post("/checkins", `{"latitude":"-22.8184"}`).Code)

	w := post("/checkins", `{"pin":"000000","latitude":"-22.8184","longitude":"-47.0647"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_or_expired", body.Code)

	// checking out with nothing open
	assert.Equal(t, http.StatusNotFound, post("/checkins/checkout", `{"latitude":"-22.8184","longitude":"-47.0647"}`).Code)

	assert.Equal(t, http.StatusCreated, post("/checkins", `{"pin":"123456","latitude":"-22.8184","longitude":"-47.0647"}`).Code)
	assert.Equal(t, http.StatusOK, post("/checkins/checkout", `{"latitude":"-22.8184","longitude":"-47.0647"}`).Code)
}

func TestHandlerRequiresCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	zones, err := geofence.NewTable(geofence.DefaultCampuses, 500)
	require.NoError(t, err)
	h := NewHandler(NewLedger(&memoryStore{}, fixedPin{}, zones, nil))
	r := gin.New()
	r.POST("/checkins", h.CheckIn)

	req := httptest.NewRequest(http.MethodPost, "/checkins", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
