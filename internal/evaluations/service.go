// Package evaluations drives the per-presentation evaluation lifecycle: one evaluation
// per (presentation, evaluator), started once and submitted once.
package evaluations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/metrics"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	dErrors "github.com/aura-events/backend/pkg/domainerrors"
)

// Store persists evaluations.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Evaluation, error)
	GetByPair(ctx context.Context, presentationID, evaluatorID uuid.UUID) (*models.Evaluation, error)
	Start(ctx context.Context, ev *models.Evaluation) (*models.Evaluation, bool, error)
	Complete(ctx context.Context, ev *models.Evaluation) (*models.Evaluation, error)
	ListByPresentation(ctx context.Context, presentationID uuid.UUID) ([]models.Evaluation, error)
	ListByEvaluator(ctx context.Context, evaluatorID uuid.UUID) ([]models.Evaluation, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Evaluation, error)
}

// Catalogue resolves presentations and events.
type Catalogue interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetPresentation(ctx context.Context, id uuid.UUID) (*models.Presentation, error)
}

// Engine runs the evaluation state machine.
type Engine struct {
	store     Store
	catalogue Catalogue
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics records starts and submissions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an evaluation engine.
func NewEngine(store Store, catalogue Catalogue, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{store: store, catalogue: catalogue, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start returns evaluatorID's evaluation of presentationID, creating it in progress
// when none exists. Repeated calls return the same evaluation unchanged.
func (e *Engine) Start(ctx context.Context, presentationID, evaluatorID uuid.UUID) (*models.Evaluation, error) {
	if err := e.requirePresentation(ctx, presentationID); err != nil {
		return nil, err
	}
	existing, err := e.store.GetByPair(ctx, presentationID, evaluatorID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, e.unexpected(err, "load evaluation", zap.String("presentation_id", presentationID.String()))
	}

	ev, created, err := e.store.Start(ctx, models.NewEvaluation(presentationID, evaluatorID, e.now().UTC()))
	if err != nil {
		return nil, e.unexpected(err, "start evaluation", zap.String("presentation_id", presentationID.String()))
	}
	if created {
		e.metrics.EvaluationStarted()
		e.logger.Info("evaluation started",
			zap.String("evaluation_id", ev.ID.String()),
			zap.String("presentation_id", presentationID.String()),
			zap.String("evaluator_id", evaluatorID.String()))
	}
	return ev, nil
}

// Submit completes an evaluation. Only its evaluator may submit, and only once.
// A nil opinion is stored as an empty string.
func (e *Engine) Submit(ctx context.Context, callerID, evaluationID uuid.UUID, score *float64, opinion *string) (*models.Evaluation, error) {
	ev, err := e.submit(ctx, callerID, evaluationID, score, opinion)
	e.metrics.EvaluationSubmitted(metrics.Outcome(err))
	return ev, err
}

func (e *Engine) submit(ctx context.Context, callerID, evaluationID uuid.UUID, score *float64, opinion *string) (*models.Evaluation, error) {
	ev, err := e.store.GetByID(ctx, evaluationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "evaluation not found")
		}
		return nil, e.unexpected(err, "load evaluation", zap.String("evaluation_id", evaluationID.String()))
	}
	if ev.EvaluatorID != callerID {
		return nil, dErrors.New(dErrors.CodeAccessDenied, "only the assigned evaluator can submit this evaluation")
	}
	if ev.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeConflict, "evaluation already completed")
	}
	if score == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "score is required")
	}
	normalized, err := models.NormalizeScore(*score)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	text := ""
	if opinion != nil {
		text = *opinion
	}
	if err := ev.Complete(normalized, text, e.now().UTC()); err != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "evaluation cannot be submitted in state "+string(ev.State))
	}

	out, err := e.store.Complete(ctx, ev)
	if err != nil {
		if errors.Is(err, database.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "evaluation already completed")
		}
		return nil, e.unexpected(err, "complete evaluation", zap.String("evaluation_id", evaluationID.String()))
	}
	e.logger.Info("evaluation submitted",
		zap.String("evaluation_id", out.ID.String()),
		zap.Float64("score", normalized))
	return out, nil
}

// ByPresentation lists a presentation's evaluations, most recent first.
func (e *Engine) ByPresentation(ctx context.Context, presentationID uuid.UUID) ([]models.Evaluation, error) {
	if err := e.requirePresentation(ctx, presentationID); err != nil {
		return nil, err
	}
	return e.listed(e.store.ListByPresentation(ctx, presentationID))
}

// ByEvaluator lists an evaluator's evaluations, most recent first.
func (e *Engine) ByEvaluator(ctx context.Context, evaluatorID uuid.UUID) ([]models.Evaluation, error) {
	return e.listed(e.store.ListByEvaluator(ctx, evaluatorID))
}

// ByEvent lists all evaluations under an event, most recent first.
func (e *Engine) ByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Evaluation, error) {
	if _, err := e.catalogue.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, e.unexpected(err, "load event", zap.String("event_id", eventID.String()))
	}
	return e.listed(e.store.ListByEvent(ctx, eventID))
}

func (e *Engine) listed(list []models.Evaluation, err error) ([]models.Evaluation, error) {
	if err != nil {
		return nil, e.unexpected(err, "list evaluations")
	}
	if list == nil {
		list = []models.Evaluation{}
	}
	models.SortByRecency(list)
	return list, nil
}

func (e *Engine) requirePresentation(ctx context.Context, id uuid.UUID) error {
	if _, err := e.catalogue.GetPresentation(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "presentation not found")
		}
		return e.unexpected(err, "load presentation", zap.String("presentation_id", id.String()))
	}
	return nil
}

func (e *Engine) unexpected(err error, op string, fields ...zap.Field) error {
	e.logger.Error(op+" failed", append(fields, zap.Error(err))...)
	return dErrors.Wrap(err, dErrors.CodeUnexpected, "failed to process evaluation")
}
