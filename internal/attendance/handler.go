package attendance

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/pkg/response"
)

// LocationRequest carries the device position for check-in and check-out.
type LocationRequest struct {
	Latitude  string `json:"latitude" binding:"required"`
	Longitude string `json:"longitude" binding:"required"`
}

// CheckOutRequest is the body for check-out. UserID defaults to the caller.
type CheckOutRequest struct {
	LocationRequest
	UserID *uuid.UUID `json:"user_id"`
}

// Handler handles event attendance endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an attendance handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CheckIn handles POST /events/:id/attendance/check-in.
func (h *Handler) CheckIn(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rec, err := h.svc.CheckIn(c.Request.Context(), callerID, eventID, req.Latitude, req.Longitude)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rec)
}

// CheckOut handles POST /events/:id/attendance/check-out.
func (h *Handler) CheckOut(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := callerID
	if req.UserID != nil {
		userID = *req.UserID
	}
	rec, err := h.svc.CheckOut(c.Request.Context(), callerID, userID, eventID, req.Latitude, req.Longitude)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rec)
}

// List handles GET /events/:id/attendance (admin, organizer).
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.svc.List(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
