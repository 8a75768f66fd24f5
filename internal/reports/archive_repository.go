package reports

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
)

// ArchiveRepository persists report archive metadata.
type ArchiveRepository struct {
	pool *pgxpool.Pool
}

// NewArchiveRepository creates a report archive repository.
func NewArchiveRepository(pool *pgxpool.Pool) *ArchiveRepository {
	return &ArchiveRepository{pool: pool}
}

// Create inserts an archive row after the object has been uploaded.
func (r *ArchiveRepository) Create(ctx context.Context, a *models.ReportArchive) error {
	const q = `INSERT INTO report_archives (event_id, s3_key, s3_url, size_bytes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, a.EventID, a.S3Key, a.S3URL, a.SizeBytes).Scan(&a.ID, &a.CreatedAt)
}

// ListByEvent returns an event's archives, newest first.
func (r *ArchiveRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.ReportArchive, error) {
	const q = `SELECT id, event_id, s3_key, s3_url, size_bytes, created_at
		FROM report_archives WHERE event_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ReportArchive
	for rows.Next() {
		var a models.ReportArchive
		if err := rows.Scan(&a.ID, &a.EventID, &a.S3Key, &a.S3URL, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
