package checkins

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles PIN check-in persistence. The partial unique index
// checkins_one_open_per_user_idx guarantees one open record per user.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a check-ins repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, user_id, pin_id, latitude, longitude, checked_in_at, checked_out_at`

func scan(row interface{ Scan(...any) error }, rec *models.CheckinRecord) error {
	return row.Scan(&rec.ID, &rec.UserID, &rec.PinID, &rec.Latitude, &rec.Longitude, &rec.CheckedInAt, &rec.CheckedOutAt)
}

// GetOpen returns the user's open record or database.ErrNotFound.
func (r *Repository) GetOpen(ctx context.Context, userID uuid.UUID) (*models.CheckinRecord, error) {
	q := `SELECT ` + columns + ` FROM checkins WHERE user_id = $1 AND checked_out_at IS NULL`
	var rec models.CheckinRecord
	if err := scan(r.pool.QueryRow(ctx, q, userID), &rec); err != nil {
		return nil, database.Translate(err)
	}
	return &rec, nil
}

// Create inserts an open record. Returns database.ErrConflict if one is already open.
func (r *Repository) Create(ctx context.Context, rec *models.CheckinRecord) error {
	q := `INSERT INTO checkins (user_id, pin_id, latitude, longitude, checked_in_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + columns
	err := scan(r.pool.QueryRow(ctx, q, rec.UserID, rec.PinID, rec.Latitude, rec.Longitude, rec.CheckedInAt), rec)
	return database.Translate(err)
}

// CloseOpen sets checked_out_at on the user's open record in a single statement.
// Returns database.ErrNotFound when nothing is open.
func (r *Repository) CloseOpen(ctx context.Context, userID uuid.UUID, at time.Time) (*models.CheckinRecord, error) {
	q := `UPDATE checkins SET checked_out_at = $2
		WHERE user_id = $1 AND checked_out_at IS NULL
		RETURNING ` + columns
	var rec models.CheckinRecord
	if err := scan(r.pool.QueryRow(ctx, q, userID, at), &rec); err != nil {
		return nil, database.Translate(err)
	}
	return &rec, nil
}
