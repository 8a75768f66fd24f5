// Package pins is the authority over the single globally-active presence PIN.
package pins

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/metrics"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	dErrors "github.com/aura-events/backend/pkg/domainerrors"
)

// PinLength is the number of digits in a PIN.
const PinLength = 6

var pinSpace = big.NewInt(1_000_000)

// Store persists pins. Rotate must deactivate and insert atomically.
type Store interface {
	Rotate(ctx context.Context, value string, now time.Time) (*models.Pin, error)
	GetActive(ctx context.Context) (*models.Pin, error)
}

// Authority issues and validates the shared PIN. It is the only writer of pin state.
type Authority struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	random  io.Reader
}

// Option configures an Authority.
type Option func(*Authority)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

// WithRandom overrides the entropy source used for new PINs.
func WithRandom(r io.Reader) Option {
	return func(a *Authority) { a.random = r }
}

// WithMetrics records rotations and validations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authority) { a.metrics = m }
}

// NewAuthority creates a PIN authority.
func NewAuthority(store Store, logger *zap.Logger, opts ...Option) *Authority {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Authority{store: store, logger: logger, now: time.Now, random: rand.Reader}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate supersedes the active PIN with a fresh random one.
func (a *Authority) Generate(ctx context.Context) (*models.Pin, error) {
	value, err := a.newValue()
	if err != nil {
		a.logger.Error("pin entropy failed", zap.Error(err))
		return nil, dErrors.Wrap(err, dErrors.CodeUnexpected, "failed to generate pin")
	}
	pin, err := a.store.Rotate(ctx, value, a.now().UTC())
	if err != nil {
		a.logger.Error("pin rotation failed", zap.Error(err))
		return nil, dErrors.Wrap(err, dErrors.CodeUnexpected, "failed to generate pin")
	}
	a.metrics.PinRotated()
	a.logger.Info("pin rotated", zap.String("pin_id", pin.ID.String()))
	return pin, nil
}

// GetActive returns the active PIN.
func (a *Authority) GetActive(ctx context.Context) (*models.Pin, error) {
	pin, err := a.store.GetActive(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active pin")
		}
		a.logger.Error("load active pin failed", zap.Error(err))
		return nil, dErrors.Wrap(err, dErrors.CodeUnexpected, "failed to load active pin")
	}
	return pin, nil
}

// Validate fails with CodeInvalidOrExpired unless candidate equals the active PIN.
func (a *Authority) Validate(ctx context.Context, candidate string) error {
	_, err := a.ValidateActive(ctx, candidate)
	return err
}

// ValidateActive is Validate returning the matched PIN, for callers that record which
// PIN was used.
func (a *Authority) ValidateActive(ctx context.Context, candidate string) (*models.Pin, error) {
	candidate = strings.TrimSpace(candidate)
	pin, err := a.store.GetActive(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			a.metrics.PinValidated(false)
			return nil, dErrors.New(dErrors.CodeInvalidOrExpired, "invalid or expired pin")
		}
		a.logger.Error("load active pin failed", zap.Error(err))
		return nil, dErrors.Wrap(err, dErrors.CodeUnexpected, "failed to validate pin")
	}
	if candidate == "" || pin.Value != candidate {
		a.metrics.PinValidated(false)
		return nil, dErrors.New(dErrors.CodeInvalidOrExpired, "invalid or expired pin")
	}
	a.metrics.PinValidated(true)
	return pin, nil
}

func (a *Authority) newValue() (string, error) {
	n, err := rand.Int(a.random, pinSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", PinLength, n.Int64()), nil
}
