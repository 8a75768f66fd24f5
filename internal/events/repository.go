// Package events provides read-only lookups for events and their presentations.
// Creating and editing them is handled by the catalogue service.
package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository reads events and presentations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, title, campus, starts_at, ends_at, latitude, longitude, created_at`

// GetByID returns an event by ID or database.ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&e.ID, &e.Title, &e.Campus, &e.StartsAt, &e.EndsAt, &e.Latitude, &e.Longitude, &e.CreatedAt)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &e, nil
}

const presentationColumns = `id, event_id, title, author_id, advisor_id, modality, created_at`

// GetPresentation returns a presentation by ID or database.ErrNotFound.
func (r *Repository) GetPresentation(ctx context.Context, id uuid.UUID) (*models.Presentation, error) {
	q := `SELECT ` + presentationColumns + ` FROM presentations WHERE id = $1`
	var p models.Presentation
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.EventID, &p.Title, &p.AuthorID, &p.AdvisorID, &p.Modality, &p.CreatedAt)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &p, nil
}

// ListPresentations returns all presentations of an event, oldest first.
func (r *Repository) ListPresentations(ctx context.Context, eventID uuid.UUID) ([]models.Presentation, error) {
	q := `SELECT ` + presentationColumns + ` FROM presentations WHERE event_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Presentation
	for rows.Next() {
		var p models.Presentation
		if err := rows.Scan(&p.ID, &p.EventID, &p.Title, &p.AuthorID, &p.AdvisorID, &p.Modality, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
