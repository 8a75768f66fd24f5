package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles attendance persistence. UNIQUE (user_id, event_id) is the
// authoritative guard against duplicate check-ins.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendance repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, user_id, event_id, latitude, longitude, checked_in_at, checked_out_at, check_in_valid, check_out_valid`

func scan(row pgx.Row, rec *models.AttendanceRecord) error {
	return row.Scan(&rec.ID, &rec.UserID, &rec.EventID, &rec.Latitude, &rec.Longitude,
		&rec.CheckedInAt, &rec.CheckedOutAt, &rec.CheckInValid, &rec.CheckOutValid)
}

// Get returns the record for (userID, eventID) or database.ErrNotFound.
func (r *Repository) Get(ctx context.Context, userID, eventID uuid.UUID) (*models.AttendanceRecord, error) {
	q := `SELECT ` + columns + ` FROM attendance_records WHERE user_id = $1 AND event_id = $2`
	var rec models.AttendanceRecord
	if err := scan(r.pool.QueryRow(ctx, q, userID, eventID), &rec); err != nil {
		return nil, database.Translate(err)
	}
	return &rec, nil
}

// Create inserts a record. Returns database.ErrConflict when (user, event) exists.
func (r *Repository) Create(ctx context.Context, rec *models.AttendanceRecord) error {
	q := `INSERT INTO attendance_records (user_id, event_id, latitude, longitude, checked_in_at, check_in_valid)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + columns
	row := r.pool.QueryRow(ctx, q, rec.UserID, rec.EventID, rec.Latitude, rec.Longitude, rec.CheckedInAt, rec.CheckInValid)
	return database.Translate(scan(row, rec))
}

// MarkCheckedOut completes the check-out half in one conditional statement.
// Returns database.ErrInvalidState if the record has no valid check-in or is already
// checked out.
func (r *Repository) MarkCheckedOut(ctx context.Context, id uuid.UUID, at time.Time) (*models.AttendanceRecord, error) {
	q := `UPDATE attendance_records SET check_out_valid = TRUE, checked_out_at = $2
		WHERE id = $1 AND check_in_valid AND NOT check_out_valid
		RETURNING ` + columns
	var rec models.AttendanceRecord
	if err := scan(r.pool.QueryRow(ctx, q, id, at), &rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, database.ErrInvalidState
		}
		return nil, err
	}
	return &rec, nil
}

// ListByEvent returns an event's records, latest check-in first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.AttendanceRecord, error) {
	q := `SELECT ` + columns + ` FROM attendance_records WHERE event_id = $1 ORDER BY checked_in_at DESC NULLS LAST, id`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		if err := scan(rows, &rec); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// Counts returns how many users checked in and how many also checked out.
func (r *Repository) Counts(ctx context.Context, eventID uuid.UUID) (models.AttendanceCounts, error) {
	const q = `SELECT
			COUNT(*) FILTER (WHERE check_in_valid),
			COUNT(*) FILTER (WHERE check_out_valid)
		FROM attendance_records WHERE event_id = $1`
	var c models.AttendanceCounts
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&c.CheckedIn, &c.CheckedOut)
	return c, err
}
