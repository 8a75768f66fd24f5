package pins

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-events/backend/pkg/response"
)

// ValidateRequest is the body for POST /pins/validate.
type ValidateRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// Handler handles PIN HTTP endpoints.
type Handler struct {
	authority *Authority
}

// NewHandler creates a pins handler.
func NewHandler(authority *Authority) *Handler {
	return &Handler{authority: authority}
}

// Generate handles POST /pins (admin). Supersedes the active PIN.
func (h *Handler) Generate(c *gin.Context) {
	pin, err := h.authority.Generate(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pin)
}

// GetActive handles GET /pins/active (admin).
func (h *Handler) GetActive(c *gin.Context) {
	pin, err := h.authority.GetActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pin)
}

// Validate handles POST /pins/validate.
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.authority.Validate(c.Request.Context(), req.Pin); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"valid": true})
}
