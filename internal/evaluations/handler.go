package evaluations

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/pkg/response"
)

// SubmitRequest is the body for POST /evaluations/:id/submit.
type SubmitRequest struct {
	Score   *float64 `json:"score"`
	Opinion *string  `json:"opinion"`
}

// Handler handles evaluation endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler creates an evaluations handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// Start handles POST /presentations/:id/evaluations.
func (h *Handler) Start(c *gin.Context) {
	presentationID, ok := pathID(c)
	if !ok {
		return
	}
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	ev, err := h.engine.Start(c.Request.Context(), presentationID, callerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ev)
}

// Submit handles POST /evaluations/:id/submit.
func (h *Handler) Submit(c *gin.Context) {
	evaluationID, ok := pathID(c)
	if !ok {
		return
	}
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ev, err := h.engine.Submit(c.Request.Context(), callerID, evaluationID, req.Score, req.Opinion)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ev)
}

// ByPresentation handles GET /presentations/:id/evaluations.
func (h *Handler) ByPresentation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := h.engine.ByPresentation(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ByEvaluator handles GET /evaluators/:id/evaluations.
func (h *Handler) ByEvaluator(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := h.engine.ByEvaluator(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ByEvent handles GET /events/:id/evaluations.
func (h *Handler) ByEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := h.engine.ByEvent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
