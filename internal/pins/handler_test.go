package pins

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

func TestHandlerGenerateThenValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewAuthority(&memoryStore{}, nil))
	r := gin.New()
	r.POST("/pins", h.Generate)
	r.GET("/pins/active", h.GetActive)
	r.POST("/pins/validate", h.Validate)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/pins/active", "").Code)

	w := do(http.MethodPost, "/pins", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.Pin `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Len(t, created.Data.Value, PinLength)

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/pins/validate", `{"pin":"`+created.Data.Value+`"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/pins/validate", `{}`).Code)

	wrong := "000000"
	if created.Data.Value == wrong {
		wrong = "999999"
	}
	w = do(http.MethodPost, "/pins/validate", `{"pin":"`+wrong+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_or_expired", body.Code)
}
