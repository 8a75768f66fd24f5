package checkins

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/aura-events/backend/internal/geofence"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	dErrors "github.com/aura-events/backend/pkg/domainerrors"
)

// memoryStore enforces one open record per user like the partial unique index.
type memoryStore struct {
	mu      sync.Mutex
	records []*models.CheckinRecord
	// hideOpen makes GetOpen miss, simulating a racing writer between pre-check and insert.
	hideOpen bool
}

func (m *memoryStore) GetOpen(_ context.Context, userID uuid.UUID) (*models.CheckinRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideOpen {
		return nil, database.ErrNotFound
	}
	for _, r := range m.records {
		if r.UserID == userID && r.Open() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memoryStore) Create(_ context.Context, rec *models.CheckinRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == rec.UserID && r.Open() {
			return database.ErrConflict
		}
	}
	rec.ID = uuid.New()
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *memoryStore) CloseOpen(_ context.Context, userID uuid.UUID, at time.Time) (*models.CheckinRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == userID && r.Open() {
			r.CheckedOutAt = &at
			cp := *r
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memoryStore) openCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.UserID == userID && r.Open() {
			n++
		}
	}
	return n
}

type fixedPin struct{ pin models.Pin }

func (f fixedPin) ValidateActive(_ context.Context, candidate string) (*models.Pin, error) {
	if candidate != f.pin.Value {
		return nil, dErrors.New(dErrors.CodeInvalidOrExpired, "invalid or expired pin")
	}
	p := f.pin
	return &p, nil
}

type LedgerSuite struct {
	suite.Suite
	store  *memoryStore
	ledger *Ledger
	pin    models.Pin
	center geofence.Coordinate
	ctx    context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &memoryStore{}
	s.pin = models.Pin{ID: uuid.New(), Value: "123456", Active: true}
	s.center = geofence.Coordinate{Latitude: -22.8184, Longitude: -47.0647}
	zones, err := geofence.NewTable(map[string]geofence.Coordinate{"central": s.center}, 500)
	s.Require().NoError(err)
	s.ledger = NewLedger(s.store, fixedPin{pin: s.pin}, zones, nil)
}

const (
	centerLat = "-22.8184"
	centerLon = "-47.0647"
)

func (s *LedgerSuite) TestCheckInAtZoneCenter() {
	userID := uuid.New()
	rec, err := s.ledger.CheckIn(s.ctx, userID, "123456", centerLat, centerLon)
	s.Require().NoError(err)
	s.Equal(userID, rec.UserID)
	s.Equal(s.pin.ID, rec.PinID)
	s.True(rec.Open())
}

func (s *LedgerSuite) TestCheckInRejections() {
	userID := uuid.New()

	s.Run("unparseable latitude", func() {
		_, err := s.ledger.CheckIn(s.ctx, userID, "123456", "north-ish", centerLon)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("wrong pin is propagated", func() {
		_, err := s.ledger.CheckIn(s.ctx, userID, "000000", centerLat, centerLon)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidOrExpired))
	})
	s.Run("50 km from campus", func() {
		_, err := s.ledger.CheckIn(s.ctx, userID, "123456", "-22.3688", centerLon)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("not within any campus", dErrors.MessageOf(err))
	})
	s.Equal(0, s.store.openCount(userID))
}

func (s *LedgerSuite) TestSecondCheckInWhileOpen() {
	userID := uuid.New()
	_, err := s.ledger.CheckIn(s.ctx, userID, "123456", centerLat, centerLon)
	s.Require().NoError(err)

	_, err = s.ledger.CheckIn(s.ctx, userID, "123456", centerLat, centerLon)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal("already checked in", dErrors.MessageOf(err))
}

func (s *LedgerSuite) TestRaceCaughtByConstraintIsConflict() {
	userID := uuid.New()
	_, err := s.ledger.CheckIn(s.ctx, userID, "123456", centerLat, centerLon)
	s.Require().NoError(err)

	s.store.hideOpen = true
	_, err = s.ledger.CheckIn(s.ctx, userID, "123456", centerLat, centerLon)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *LedgerSuite) TestConcurrentCheckInsOpenOneRecord() {
	userID := uuid.New()
	const goroutines = 20
	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ledger.CheckIn(s.ctx, userID, "123456", centerLat, centerLon)
			if err == nil {
				ok.Add(1)
				return
			}
			code := dErrors.CodeOf(err)
			s.True(code == dErrors.CodeValidation || code == dErrors.CodeConflict, "unexpected code %s", code)
		}()
	}
	wg.Wait()
	s.Equal(int32(1), ok.Load())
	s.Equal(1, s.store.openCount(userID))
}

func (s *LedgerSuite) TestCheckOut() {
	userID := uuid.New()

	_, err := s.ledger.CheckOut(s.ctx, userID, centerLat, centerLon)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.ledger.CheckIn(s.ctx, userID, "123456", centerLat, centerLon)
	s.Require().NoError(err)

	_, err = s.ledger.CheckOut(s.ctx, userID, "-22.3688", centerLon)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	rec, err := s.ledger.CheckOut(s.ctx, userID, centerLat, centerLon)
	s.Require().NoError(err)
	s.NotNil(rec.CheckedOutAt)
	s.Equal(0, s.store.openCount(userID))

	// closed records do not block a new check-in
	_, err = s.ledger.CheckIn(s.ctx, userID, "123456", centerLat, centerLon)
	s.NoError(err)
}
