package evaluations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	dErrors "github.com/aura-events/backend/pkg/domainerrors"
)

type memoryStore struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.Evaluation
	event map[uuid.UUID]uuid.UUID // presentation -> event
	fail  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byID: make(map[uuid.UUID]*models.Evaluation), event: make(map[uuid.UUID]uuid.UUID)}
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	ev, ok := m.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memoryStore) GetByPair(_ context.Context, presentationID, evaluatorID uuid.UUID) (*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.byID {
		if ev.PresentationID == presentationID && ev.EvaluatorID == evaluatorID {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memoryStore) Start(_ context.Context, ev *models.Evaluation) (*models.Evaluation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.PresentationID == ev.PresentationID && existing.EvaluatorID == ev.EvaluatorID {
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *ev
	m.byID[ev.ID] = &cp
	out := cp
	return &out, true, nil
}

func (m *memoryStore) Complete(_ context.Context, ev *models.Evaluation) (*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[ev.ID]
	if !ok || stored.State != models.EvaluationInProgress {
		return nil, database.ErrInvalidState
	}
	cp := *ev
	m.byID[ev.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memoryStore) filter(keep func(*models.Evaluation) bool) []models.Evaluation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Evaluation
	for _, ev := range m.byID {
		if keep(ev) {
			out = append(out, *ev)
		}
	}
	return out
}

func (m *memoryStore) ListByPresentation(_ context.Context, id uuid.UUID) ([]models.Evaluation, error) {
	return m.filter(func(ev *models.Evaluation) bool { return ev.PresentationID == id }), nil
}

func (m *memoryStore) ListByEvaluator(_ context.Context, id uuid.UUID) ([]models.Evaluation, error) {
	return m.filter(func(ev *models.Evaluation) bool { return ev.EvaluatorID == id }), nil
}

func (m *memoryStore) ListByEvent(_ context.Context, id uuid.UUID) ([]models.Evaluation, error) {
	return m.filter(func(ev *models.Evaluation) bool { return m.event[ev.PresentationID] == id }), nil
}

type catalogue struct {
	events        map[uuid.UUID]*models.Event
	presentations map[uuid.UUID]*models.Presentation
}

func (c catalogue) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	if e, ok := c.events[id]; ok {
		return e, nil
	}
	return nil, database.ErrNotFound
}

func (c catalogue) GetPresentation(_ context.Context, id uuid.UUID) (*models.Presentation, error) {
	if p, ok := c.presentations[id]; ok {
		return p, nil
	}
	return nil, database.ErrNotFound
}

func ptr[T any](v T) *T { return &v }

type EngineSuite struct {
	suite.Suite
	ctx          context.Context
	store        *memoryStore
	engine       *Engine
	now          time.Time
	eventID      uuid.UUID
	presentation uuid.UUID
	evaluator    uuid.UUID
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 4, 14, 0, 0, 0, time.UTC)
	s.eventID = uuid.New()
	s.presentation = uuid.New()
	s.evaluator = uuid.New()
	s.store = newMemoryStore()
	s.store.event[s.presentation] = s.eventID
	cat := catalogue{
		events:        map[uuid.UUID]*models.Event{s.eventID: {ID: s.eventID}},
		presentations: map[uuid.UUID]*models.Presentation{s.presentation: {ID: s.presentation, EventID: s.eventID}},
	}
	s.engine = NewEngine(s.store, cat, nil, WithClock(func() time.Time { return s.now }))
}

func (s *EngineSuite) TestStartIsIdempotent() {
	first, err := s.engine.Start(s.ctx, s.presentation, s.evaluator)
	s.Require().NoError(err)
	s.Equal(models.EvaluationInProgress, first.State)
	s.Equal(s.now, first.StartedAt)

	s.now = s.now.Add(time.Hour)
	second, err := s.engine.Start(s.ctx, s.presentation, s.evaluator)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal(first.StartedAt, second.StartedAt)
	s.Len(s.store.byID, 1)
}

func (s *EngineSuite) TestConcurrentStartsShareOneEvaluation() {
	const goroutines = 20
	ids := make([]uuid.UUID, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev, err := s.engine.Start(s.ctx, s.presentation, s.evaluator)
			if s.NoError(err) {
				ids[i] = ev.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		s.Equal(ids[0], id)
	}
	s.Len(s.store.byID, 1)
}

func (s *EngineSuite) TestStartUnknownPresentation() {
	_, err := s.engine.Start(s.ctx, uuid.New(), s.evaluator)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *EngineSuite) TestSubmit() {
	ev, err := s.engine.Start(s.ctx, s.presentation, s.evaluator)
	s.Require().NoError(err)

	s.now = s.now.Add(10 * time.Minute)
	done, err := s.engine.Submit(s.ctx, s.evaluator, ev.ID, ptr(8.25), nil)
	s.Require().NoError(err)
	s.Equal(models.EvaluationCompleted, done.State)
	s.InDelta(8.3, *done.Score, 1e-9)
	s.Equal("", *done.Opinion)
	s.Equal(s.now, *done.CompletedAt)
}

func (s *EngineSuite) TestSubmitFailureOrder() {
	ev, err := s.engine.Start(s.ctx, s.presentation, s.evaluator)
	s.Require().NoError(err)

	s.Run("missing evaluation", func() {
		_, err := s.engine.Submit(s.ctx, s.evaluator, uuid.New(), ptr(5.0), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
	s.Run("someone else's evaluation, even with a bad score", func() {
		_, err := s.engine.Submit(s.ctx, uuid.New(), ev.ID, ptr(11.0), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied))
	})
	s.Run("score above range", func() {
		_, err := s.engine.Submit(s.ctx, s.evaluator, ev.ID, ptr(11.0), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("score missing", func() {
		_, err := s.engine.Submit(s.ctx, s.evaluator, ev.ID, nil, ptr("great"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EngineSuite) TestDoubleSubmitIsConflict() {
	ev, err := s.engine.Start(s.ctx, s.presentation, s.evaluator)
	s.Require().NoError(err)
	_, err = s.engine.Submit(s.ctx, s.evaluator, ev.ID, ptr(9.0), ptr("clear"))
	s.Require().NoError(err)

	_, err = s.engine.Submit(s.ctx, s.evaluator, ev.ID, ptr(1.0), ptr("changed my mind"))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	stored, err := s.store.GetByID(s.ctx, ev.ID)
	s.Require().NoError(err)
	s.InDelta(9.0, *stored.Score, 1e-9)
	s.Equal("clear", *stored.Opinion)
}

func (s *EngineSuite) TestStoreFailureIsUnexpected() {
	s.store.fail = errors.New("connection reset")
	_, err := s.engine.Submit(s.ctx, s.evaluator, uuid.New(), ptr(5.0), nil)
	s.True(dErrors.HasCode(err, dErrors.CodeUnexpected))
	s.Equal("internal error", dErrors.MessageOf(err))
}

func (s *EngineSuite) TestListingsAreMostRecentFirst() {
	other := uuid.New()
	older, err := s.engine.Start(s.ctx, s.presentation, s.evaluator)
	s.Require().NoError(err)
	s.now = s.now.Add(time.Hour)
	newer, err := s.engine.Start(s.ctx, s.presentation, other)
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour)
	_, err = s.engine.Submit(s.ctx, s.evaluator, older.ID, ptr(7.0), nil)
	s.Require().NoError(err)

	list, err := s.engine.ByPresentation(s.ctx, s.presentation)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(older.ID, list[0].ID)
	s.Equal(newer.ID, list[1].ID)

	byEvent, err := s.engine.ByEvent(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Len(byEvent, 2)

	mine, err := s.engine.ByEvaluator(s.ctx, other)
	s.Require().NoError(err)
	s.Len(mine, 1)

	_, err = s.engine.ByEvent(s.ctx, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
