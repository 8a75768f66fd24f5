package evaluations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles evaluation persistence. The evaluations_presentation_evaluator_key
// constraint keeps one evaluation per (presentation, evaluator).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an evaluations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `e.id, e.presentation_id, e.evaluator_id, e.score, e.opinion, e.state, e.started_at, e.completed_at`

const recency = ` ORDER BY COALESCE(e.completed_at, e.started_at) DESC, e.id`

func scan(row pgx.Row, ev *models.Evaluation) error {
	return row.Scan(&ev.ID, &ev.PresentationID, &ev.EvaluatorID, &ev.Score, &ev.Opinion, &ev.State, &ev.StartedAt, &ev.CompletedAt)
}

// GetByID returns an evaluation or database.ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Evaluation, error) {
	q := `SELECT ` + columns + ` FROM evaluations e WHERE e.id = $1`
	var ev models.Evaluation
	if err := scan(r.pool.QueryRow(ctx, q, id), &ev); err != nil {
		return nil, database.Translate(err)
	}
	return &ev, nil
}

// GetByPair returns the evaluation for (presentationID, evaluatorID) or database.ErrNotFound.
func (r *Repository) GetByPair(ctx context.Context, presentationID, evaluatorID uuid.UUID) (*models.Evaluation, error) {
	q := `SELECT ` + columns + ` FROM evaluations e WHERE e.presentation_id = $1 AND e.evaluator_id = $2`
	var ev models.Evaluation
	if err := scan(r.pool.QueryRow(ctx, q, presentationID, evaluatorID), &ev); err != nil {
		return nil, database.Translate(err)
	}
	return &ev, nil
}

// Start inserts ev unless the pair already has an evaluation, in which case the
// existing row is returned and created is false.
func (r *Repository) Start(ctx context.Context, ev *models.Evaluation) (stored *models.Evaluation, created bool, err error) {
	const q = `INSERT INTO evaluations AS e (id, presentation_id, evaluator_id, state, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT evaluations_presentation_evaluator_key DO NOTHING
		RETURNING ` + columns
	var out models.Evaluation
	err = scan(r.pool.QueryRow(ctx, q, ev.ID, ev.PresentationID, ev.EvaluatorID, ev.State, ev.StartedAt), &out)
	if err == nil {
		return &out, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, database.Translate(err)
	}
	existing, err := r.GetByPair(ctx, ev.PresentationID, ev.EvaluatorID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Complete stores a submission if the evaluation is still in progress.
// Returns database.ErrInvalidState otherwise.
func (r *Repository) Complete(ctx context.Context, ev *models.Evaluation) (*models.Evaluation, error) {
	const q = `UPDATE evaluations AS e SET score = $2, opinion = $3, state = $4, completed_at = $5
		WHERE e.id = $1 AND e.state = 'in_progress'
		RETURNING ` + columns
	var out models.Evaluation
	if err := scan(r.pool.QueryRow(ctx, q, ev.ID, ev.Score, ev.Opinion, ev.State, ev.CompletedAt), &out); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, database.ErrInvalidState
		}
		return nil, err
	}
	return &out, nil
}

// ListByPresentation returns a presentation's evaluations, most recent first.
func (r *Repository) ListByPresentation(ctx context.Context, presentationID uuid.UUID) ([]models.Evaluation, error) {
	return r.list(ctx, `SELECT `+columns+` FROM evaluations e WHERE e.presentation_id = $1`+recency, presentationID)
}

// ListByEvaluator returns an evaluator's evaluations, most recent first.
func (r *Repository) ListByEvaluator(ctx context.Context, evaluatorID uuid.UUID) ([]models.Evaluation, error) {
	return r.list(ctx, `SELECT `+columns+` FROM evaluations e WHERE e.evaluator_id = $1`+recency, evaluatorID)
}

// ListByEvent returns every evaluation of an event's presentations, most recent first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Evaluation, error) {
	q := `SELECT ` + columns + ` FROM evaluations e
		JOIN presentations p ON p.id = e.presentation_id
		WHERE p.event_id = $1` + recency
	return r.list(ctx, q, eventID)
}

func (r *Repository) list(ctx context.Context, q string, arg uuid.UUID) ([]models.Evaluation, error) {
	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Evaluation
	for rows.Next() {
		var ev models.Evaluation
		if err := scan(rows, &ev); err != nil {
			return nil, err
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}
