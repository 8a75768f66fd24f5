package pins

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// activePinLockKey is the advisory lock guarding the "active pin" resource.
const activePinLockKey int64 = 0x41435450494e // "ACTPIN"

// Repository handles pin persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pins repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Rotate deactivates the current pin and inserts value as the new active pin in one
// transaction, serialized on the active-pin advisory lock.
func (r *Repository) Rotate(ctx context.Context, value string, now time.Time) (*models.Pin, error) {
	var p models.Pin
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := database.AdvisoryXactLock(ctx, tx, activePinLockKey); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE pins SET active = FALSE WHERE active`); err != nil {
			return fmt.Errorf("deactivate pins: %w", err)
		}
		const q = `INSERT INTO pins (value, active, generated_at) VALUES ($1, TRUE, $2)
			RETURNING id, value, active, generated_at`
		return tx.QueryRow(ctx, q, value, now).Scan(&p.ID, &p.Value, &p.Active, &p.GeneratedAt)
	})
	if err != nil {
		return nil, database.Translate(err)
	}
	return &p, nil
}

// GetActive returns the active pin or database.ErrNotFound.
func (r *Repository) GetActive(ctx context.Context) (*models.Pin, error) {
	const q = `SELECT id, value, active, generated_at FROM pins WHERE active LIMIT 1`
	var p models.Pin
	if err := r.pool.QueryRow(ctx, q).Scan(&p.ID, &p.Value, &p.Active, &p.GeneratedAt); err != nil {
		return nil, database.Translate(err)
	}
	return &p, nil
}

// CountActive returns how many pins are flagged active. Used by health checks and tests.
func (r *Repository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pins WHERE active`).Scan(&n)
	return n, err
}
