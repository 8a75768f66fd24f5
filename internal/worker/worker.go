// Package worker runs background jobs pulled from the Redis queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/reports"
	dErrors "github.com/aura-events/backend/pkg/domainerrors"
	"github.com/aura-events/backend/pkg/queue"
	"github.com/aura-events/backend/pkg/storage"
)

// ReportBuilder builds event reports.
type ReportBuilder interface {
	EventReport(ctx context.Context, eventID uuid.UUID) (*reports.EventReport, error)
}

// Uploader stores report documents.
type Uploader interface {
	UploadReport(ctx context.Context, key string, body []byte) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// ArchiveRecorder records uploaded archives.
type ArchiveRecorder interface {
	Create(ctx context.Context, a *models.ReportArchive) error
}

// JobQueue is the queue the archiver consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// ReportArchiver snapshots event reports to S3 and records them in report_archives.
type ReportArchiver struct {
	reports  ReportBuilder
	uploader Uploader
	archives ArchiveRecorder
	queue    JobQueue
	logger   *zap.Logger
	backoff  time.Duration
	now      func() time.Time
}

// NewReportArchiver creates a report archive processor.
func NewReportArchiver(reports ReportBuilder, uploader Uploader, archives ArchiveRecorder, q JobQueue, logger *zap.Logger) *ReportArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportArchiver{
		reports:  reports,
		uploader: uploader,
		archives: archives,
		queue:    q,
		logger:   logger,
		backoff:  queue.RetryBackoff,
		now:      time.Now,
	}
}

// Process executes one report archive job. Jobs for events that no longer exist are
// dropped rather than retried.
func (p *ReportArchiver) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeReportArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ReportArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	rep, err := p.reports.EventReport(ctx, payload.EventID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			p.logger.Warn("dropping archive job for missing event", zap.String("job_id", job.ID), zap.String("event_id", payload.EventID.String()))
			return nil
		}
		return fmt.Errorf("build report: %w", err)
	}
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	key := storage.ReportKey(payload.EventID.String(), p.now())
	url, err := p.uploader.UploadReport(ctx, key, body)
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	archive := &models.ReportArchive{EventID: payload.EventID, S3Key: key, S3URL: url, SizeBytes: int64(len(body))}
	if err := p.archives.Create(ctx, archive); err != nil {
		p.logger.Error("record report archive failed", zap.Error(err), zap.String("s3_key", key))
		// the retry uploads under a new key, so the unrecorded object is removed
		if delErr := p.uploader.DeleteObject(ctx, key); delErr != nil {
			p.logger.Warn("remove orphaned report object failed", zap.Error(delErr), zap.String("s3_key", key))
		}
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("report archived",
		zap.String("event_id", payload.EventID.String()),
		zap.String("requested_by", payload.RequestedBy.String()),
		zap.String("s3_key", key),
		zap.Int("size_bytes", len(body)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ReportArchiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("report worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *ReportArchiver) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.backoff):
	}
}
