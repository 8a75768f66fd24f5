// Package checkins records PIN-confirmed campus check-ins and check-outs.
package checkins

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

// Store persists check-in records.
type Store interface {
	GetOpen(ctx context.Context, userID uuid.UUID) (*models.CheckinRecord, error)
	Create(ctx context.Context, rec *models.CheckinRecord) error
	CloseOpen(ctx context.Context, userID uuid.UUID, at time.Time) (*models.CheckinRecord, error)
}

// PinValidator confirms a candidate PIN and returns the active PIN it matched.
type PinValidator interface {
	ValidateActive(ctx context.Context, candidate string) (*models.Pin, error)
}

// Ledger runs the PIN check-in flow.
type Ledger struct {
	store   Store
	pins    PinValidator
	zones   *geofence.Table
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithMetrics records check-in and check-out outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// NewLedger creates a PIN check-in ledger.
func NewLedger(store Store, pins PinValidator, zones *geofence.Table, logger *zap.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{store: store, pins: pins, zones: zones, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckIn opens a record for userID after PIN and campus validation.
func (l *Ledger) CheckIn(ctx context.Context, userID uuid.UUID, pin, lat, lon string) (*models.CheckinRecord, error) {
	rec, err := l.checkIn(ctx, userID, pin, lat, lon)
	l.metrics.CheckIn(metrics.FlowPin, metrics.Outcome(err))
	return rec, err
}

func (l *Ledger) checkIn(ctx context.Context, userID uuid.UUID, pin, lat, lon string) (*models.CheckinRecord, error) {
	point, err := geofence.ParseCoordinate(lat, lon)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	active, err := l.pins.ValidateActive(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := l.requireCampus(point); err != nil {
		return nil, err
	}

	if _, err := l.store.GetOpen(ctx, userID); err == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "already checked in")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, l.unexpected(err, "load open check-in", userID)
	}

	rec := &models.CheckinRecord{
		UserID:      userID,
		PinID:       active.ID,
		Latitude:    point.Latitude,
		Longitude:   point.Longitude,
		CheckedInAt: l.now().UTC(),
	}
	if err := l.store.Create(ctx, rec); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "check-in already exists")
		}
		return nil, l.unexpected(err, "create check-in", userID)
	}
	l.logger.Info("pin check-in recorded", zap.String("user_id", userID.String()), zap.String("checkin_id", rec.ID.String()))
	return rec, nil
}

// CheckOut closes userID's open record after campus validation.
func (l *Ledger) CheckOut(ctx context.Context, userID uuid.UUID, lat, lon string) (*models.CheckinRecord, error) {
	rec, err := l.checkOut(ctx, userID, lat, lon)
	l.metrics.CheckOut(metrics.FlowPin, metrics.Outcome(err))
	return rec, err
}

func (l *Ledger) checkOut(ctx context.Context, userID uuid.UUID, lat, lon string) (*models.CheckinRecord, error) {
	point, err := geofence.ParseCoordinate(lat, lon)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if err := l.requireCampus(point); err != nil {
		return nil, err
	}
	rec, err := l.store.CloseOpen(ctx, userID, l.now().UTC())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no open check-in")
		}
		return nil, l.unexpected(err, "close check-in", userID)
	}
	l.logger.Info("pin check-out recorded", zap.String("user_id", userID.String()), zap.String("checkin_id", rec.ID.String()))
	return rec, nil
}

func (l *Ledger) requireCampus(point geofence.Coordinate) error {
	if _, ok := l.zones.Match(point); !ok {
		return dErrors.New(dErrors.CodeValidation, "not within any campus")
	}
	return nil
}

func (l *Ledger) unexpected(err error, op string, userID uuid.UUID) error {
	l.logger.Error(op+" failed", zap.Error(err), zap.String("user_id", userID.String()))
	return dErrors.Wrap(err, dErrors.CodeUnexpected, "failed to record check-in")
}
