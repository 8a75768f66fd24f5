package reports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aura-events/backend/internal/metrics"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	dErrors "github.com/aura-events/backend/pkg/domainerrors"
	"github.com/aura-events/backend/pkg/queue"
)

// Report kinds for metrics.
const (
	KindPresentation = "presentation"
	KindEvent        = "event"
)

// Catalogue resolves events and presentations.
type Catalogue interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetPresentation(ctx context.Context, id uuid.UUID) (*models.Presentation, error)
	ListPresentations(ctx context.Context, eventID uuid.UUID) ([]models.Presentation, error)
}

// EvaluationReader is the read model of the evaluation engine.
type EvaluationReader interface {
	ListByPresentation(ctx context.Context, presentationID uuid.UUID) ([]models.Evaluation, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Evaluation, error)
}

// AttendanceCounter is the read model of the attendance ledger.
type AttendanceCounter interface {
	Counts(ctx context.Context, eventID uuid.UUID) (models.AttendanceCounts, error)
}

// ArchiveStore lists archived reports.
type ArchiveStore interface {
	Create(ctx context.Context, a *models.ReportArchive) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.ReportArchive, error)
}

// ArchiveQueue schedules report archive jobs.
type ArchiveQueue interface {
	EnqueueReportArchive(ctx context.Context, payload queue.ReportArchivePayload) (string, error)
}

// Presigner signs download URLs for archived reports.
type Presigner interface {
	PresignReport(ctx context.Context, key string) (string, error)
}

// Service builds reports.
type Service struct {
	catalogue   Catalogue
	evaluations EvaluationReader
	attendance  AttendanceCounter
	archives    ArchiveStore
	queue       ArchiveQueue
	presigner   Presigner
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records report build durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAttendance adds attendance counts to event reports.
func WithAttendance(a AttendanceCounter) Option {
	return func(s *Service) { s.attendance = a }
}

// WithArchiving enables report archives.
func WithArchiving(store ArchiveStore, q ArchiveQueue, presigner Presigner) Option {
	return func(s *Service) {
		s.archives = store
		s.queue = q
		s.presigner = presigner
	}
}

// NewService creates a report service.
func NewService(catalogue Catalogue, evaluations EvaluationReader, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{catalogue: catalogue, evaluations: evaluations, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PresentationReport computes the statistics of one presentation.
func (s *Service) PresentationReport(ctx context.Context, presentationID uuid.UUID) (*PresentationReport, error) {
	defer s.metrics.ObserveReport(KindPresentation, time.Now())

	p, err := s.catalogue.GetPresentation(ctx, presentationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "presentation not found")
		}
		return nil, s.unexpected(err, "load presentation", zap.String("presentation_id", presentationID.String()))
	}
	list, err := s.evaluations.ListByPresentation(ctx, presentationID)
	if err != nil {
		return nil, s.unexpected(err, "list evaluations", zap.String("presentation_id", presentationID.String()))
	}
	return &PresentationReport{
		PresentationID: p.ID,
		EventID:        p.EventID,
		Title:          p.Title,
		Modality:       p.Modality,
		Stats:          Summarize(list),
		GeneratedAt:    s.now().UTC(),
	}, nil
}

// EventReport computes per-presentation summaries and the event-wide average.
func (s *Service) EventReport(ctx context.Context, eventID uuid.UUID) (*EventReport, error) {
	defer s.metrics.ObserveReport(KindEvent, time.Now())

	event, err := s.catalogue.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, s.unexpected(err, "load event", zap.String("event_id", eventID.String()))
	}

	var (
		presentations []models.Presentation
		evaluations   []models.Evaluation
		counts        *models.AttendanceCounts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		presentations, err = s.catalogue.ListPresentations(gctx, eventID)
		return err
	})
	g.Go(func() error {
		var err error
		evaluations, err = s.evaluations.ListByEvent(gctx, eventID)
		return err
	})
	if s.attendance != nil {
		g.Go(func() error {
			c, err := s.attendance.Counts(gctx, eventID)
			if err != nil {
				return err
			}
			counts = &c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.unexpected(err, "load event report data", zap.String("event_id", eventID.String()))
	}

	rep := BuildEventReport(event, presentations, evaluations, s.now().UTC())
	rep.Attendance = counts
	return rep, nil
}

// RequestArchive schedules a snapshot of the event report and returns the job ID.
func (s *Service) RequestArchive(ctx context.Context, eventID, requestedBy uuid.UUID) (string, error) {
	if s.queue == nil {
		return "", dErrors.New(dErrors.CodeUnexpected, "report archiving is not configured")
	}
	if _, err := s.catalogue.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return "", s.unexpected(err, "load event", zap.String("event_id", eventID.String()))
	}
	jobID, err := s.queue.EnqueueReportArchive(ctx, queue.ReportArchivePayload{EventID: eventID, RequestedBy: requestedBy})
	if err != nil {
		return "", s.unexpected(err, "enqueue report archive", zap.String("event_id", eventID.String()))
	}
	s.logger.Info("report archive requested", zap.String("event_id", eventID.String()), zap.String("job_id", jobID))
	return jobID, nil
}

// Archives lists an event's archived reports with short-lived download URLs.
func (s *Service) Archives(ctx context.Context, eventID uuid.UUID) ([]models.ReportArchive, error) {
	if s.archives == nil {
		return nil, dErrors.New(dErrors.CodeUnexpected, "report archiving is not configured")
	}
	list, err := s.archives.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, s.unexpected(err, "list report archives", zap.String("event_id", eventID.String()))
	}
	if list == nil {
		list = []models.ReportArchive{}
	}
	for i := range list {
		if s.presigner == nil {
			break
		}
		url, err := s.presigner.PresignReport(ctx, list[i].S3Key)
		if err != nil {
			s.logger.Warn("presign report failed", zap.Error(err), zap.String("s3_key", list[i].S3Key))
			continue
		}
		list[i].DownloadURL = url
	}
	return list, nil
}

func (s *Service) unexpected(err error, op string, fields ...zap.Field) error {
	s.logger.Error(op+" failed", append(fields, zap.Error(err))...)
	return dErrors.Wrap(err, dErrors.CodeUnexpected, "failed to build report")
}
