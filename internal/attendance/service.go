// Package attendance records event-scoped check-ins and check-outs, geofenced against
// the event's own coordinate.
package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/geofence"
	"github.com/aura-events/backend/internal/metrics"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	dErrors "github.com/aura-events/backend/pkg/domainerrors"
)

// Live feed event names.
const (
	FeedCheckIn  = "attendance_check_in"
	FeedCheckOut = "attendance_check_out"
)

// Store persists attendance records.
type Store interface {
	Get(ctx context.Context, userID, eventID uuid.UUID) (*models.AttendanceRecord, error)
	Create(ctx context.Context, rec *models.AttendanceRecord) error
	MarkCheckedOut(ctx context.Context, id uuid.UUID, at time.Time) (*models.AttendanceRecord, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.AttendanceRecord, error)
	Counts(ctx context.Context, eventID uuid.UUID) (models.AttendanceCounts, error)
}

// EventLookup resolves events.
type EventLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// UserLookup checks user existence.
type UserLookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Notifier fans attendance changes out to live dashboards. Delivery is best effort.
type Notifier interface {
	PublishAttendance(eventID uuid.UUID, event string, rec *models.AttendanceRecord)
}

// Service runs the event check-in flow.
type Service struct {
	store    Store
	events   EventLookup
	users    UserLookup
	radius   float64
	logger   *zap.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records check-in and check-out outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier publishes successful check-ins and check-outs.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService creates an attendance service. radiusMeters is the allowed distance from
// the event coordinate.
func NewService(store Store, events EventLookup, users UserLookup, radiusMeters float64, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: store, events: events, users: users, radius: radiusMeters, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIn creates userID's attendance record for eventID.
func (s *Service) CheckIn(ctx context.Context, userID, eventID uuid.UUID, lat, lon string) (*models.AttendanceRecord, error) {
	rec, err := s.checkIn(ctx, userID, eventID, lat, lon)
	s.metrics.CheckIn(metrics.FlowEvent, metrics.Outcome(err))
	if err == nil {
		s.publish(eventID, FeedCheckIn, rec)
	}
	return rec, err
}

func (s *Service) checkIn(ctx context.Context, userID, eventID uuid.UUID, lat, lon string) (*models.AttendanceRecord, error) {
	point, err := geofence.ParseCoordinate(lat, lon)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.requireNearby(event, point); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, s.unexpected(err, "lookup user", userID, eventID)
	}
	if !exists {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}

	if _, err := s.store.Get(ctx, userID, eventID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "attendance already recorded for this event")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, s.unexpected(err, "load attendance", userID, eventID)
	}

	now := s.now().UTC()
	if err := requireOpen(event, now); err != nil {
		return nil, err
	}

	rec := &models.AttendanceRecord{
		UserID:       userID,
		EventID:      eventID,
		Latitude:     point.Latitude,
		Longitude:    point.Longitude,
		CheckedInAt:  &now,
		CheckInValid: true,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "attendance already recorded for this event")
		}
		return nil, s.unexpected(err, "create attendance", userID, eventID)
	}
	s.logger.Info("event check-in recorded",
		zap.String("user_id", userID.String()),
		zap.String("event_id", eventID.String()),
		zap.String("attendance_id", rec.ID.String()))
	return rec, nil
}

// CheckOut completes userID's attendance at eventID. callerID must own the record.
func (s *Service) CheckOut(ctx context.Context, callerID, userID, eventID uuid.UUID, lat, lon string) (*models.AttendanceRecord, error) {
	rec, err := s.checkOut(ctx, callerID, userID, eventID, lat, lon)
	s.metrics.CheckOut(metrics.FlowEvent, metrics.Outcome(err))
	if err == nil {
		s.publish(eventID, FeedCheckOut, rec)
	}
	return rec, err
}

func (s *Service) checkOut(ctx context.Context, callerID, userID, eventID uuid.UUID, lat, lon string) (*models.AttendanceRecord, error) {
	point, err := geofence.ParseCoordinate(lat, lon)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.requireNearby(event, point); err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no check-in found for this event")
		}
		return nil, s.unexpected(err, "load attendance", userID, eventID)
	}
	if !rec.HasValidCheckIn() {
		return nil, dErrors.New(dErrors.CodeNotFound, "no check-in found for this event")
	}
	if err := requireOpen(event, s.now().UTC()); err != nil {
		return nil, err
	}
	if !rec.OwnedBy(callerID) {
		return nil, dErrors.New(dErrors.CodeValidation, "attendance record belongs to another user")
	}
	if rec.CheckOutValid {
		return nil, dErrors.New(dErrors.CodeConflict, "already checked out")
	}

	out, err := s.store.MarkCheckedOut(ctx, rec.ID, s.now().UTC())
	if err != nil {
		if errors.Is(err, database.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "already checked out")
		}
		return nil, s.unexpected(err, "check out", userID, eventID)
	}
	s.logger.Info("event check-out recorded",
		zap.String("user_id", userID.String()),
		zap.String("event_id", eventID.String()),
		zap.String("attendance_id", out.ID.String()))
	return out, nil
}

// List returns every attendance record of an event, latest check-in first.
func (s *Service) List(ctx context.Context, eventID uuid.UUID) ([]models.AttendanceRecord, error) {
	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return nil, err
	}
	list, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, s.unexpected(err, "list attendance", uuid.Nil, eventID)
	}
	if list == nil {
		list = []models.AttendanceRecord{}
	}
	models.SortByCheckIn(list)
	return list, nil
}

// Counts returns the check-in and check-out totals of an event.
func (s *Service) Counts(ctx context.Context, eventID uuid.UUID) (models.AttendanceCounts, error) {
	c, err := s.store.Counts(ctx, eventID)
	if err != nil {
		return c, s.unexpected(err, "count attendance", uuid.Nil, eventID)
	}
	return c, nil
}

func (s *Service) loadEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, s.unexpected(err, "load event", uuid.Nil, eventID)
	}
	return event, nil
}

func (s *Service) requireNearby(event *models.Event, point geofence.Coordinate) error {
	center := geofence.Coordinate{Latitude: event.Latitude, Longitude: event.Longitude}
	d := geofence.DistanceMeters(point, center)
	if d > s.radius {
		return dErrors.Newf(dErrors.CodeValidation,
			"outside the allowed area: %.0f m from the event, maximum is %.0f m", d, s.radius)
	}
	return nil
}

func requireOpen(event *models.Event, now time.Time) error {
	switch event.Window(now) {
	case models.WindowNotStarted:
		return dErrors.New(dErrors.CodeValidation, "event not started")
	case models.WindowFinished:
		return dErrors.New(dErrors.CodeValidation, "event finished")
	}
	return nil
}

func (s *Service) publish(eventID uuid.UUID, event string, rec *models.AttendanceRecord) {
	if s.notifier != nil {
		s.notifier.PublishAttendance(eventID, event, rec)
	}
}

func (s *Service) unexpected(err error, op string, userID, eventID uuid.UUID) error {
	s.logger.Error(op+" failed", zap.Error(err),
		zap.String("user_id", userID.String()),
		zap.String("event_id", eventID.String()))
	return dErrors.Wrap(err, dErrors.CodeUnexpected, "failed to record attendance")
}
