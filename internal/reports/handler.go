package reports

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/pkg/response"
)

// Handler handles report endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a reports handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// Presentation handles GET /presentations/:id/report.
func (h *Handler) Presentation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rep, err := h.svc.PresentationReport(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rep)
}

// Event handles GET /events/:id/report.
func (h *Handler) Event(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rep, err := h.svc.EventReport(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rep)
}

// Archive handles POST /events/:id/report/archive (admin).
func (h *Handler) Archive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	callerID, _ := middleware.CallerID(c)
	jobID, err := h.svc.RequestArchive(c.Request.Context(), id, callerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID})
}

// Archives handles GET /events/:id/report/archives (admin).
func (h *Handler) Archives(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := h.svc.Archives(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
