package checkins

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/pkg/response"
)

// CheckInRequest is the body for POST /checkins. Coordinates arrive as strings from
// the mobile client.
type CheckInRequest struct {
	Pin       string `json:"pin" binding:"required"`
	Latitude  string `json:"latitude" binding:"required"`
	Longitude string `json:"longitude" binding:"required"`
}

// CheckOutRequest is the body for POST /checkins/checkout.
type CheckOutRequest struct {
	Latitude  string `json:"latitude" binding:"required"`
	Longitude string `json:"longitude" binding:"required"`
}

// Handler handles PIN check-in endpoints. The caller is always the subject.
type Handler struct {
	ledger *Ledger
}

// NewHandler creates a check-ins handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// CheckIn handles POST /checkins.
func (h *Handler) CheckIn(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rec, err := h.ledger.CheckIn(c.Request.Context(), userID, req.Pin, req.Latitude, req.Longitude)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rec)
}

// CheckOut handles POST /checkins/checkout.
func (h *Handler) CheckOut(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rec, err := h.ledger.CheckOut(c.Request.Context(), userID, req.Latitude, req.Longitude)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rec)
}
