package models

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// EvaluationState is the lifecycle state of an Evaluation.
type EvaluationState string

const (
	// EvaluationPending is kept for rows written by older clients; Start never
	// produces it.
	EvaluationPending    EvaluationState = "pending"
	EvaluationInProgress EvaluationState = "in_progress"
	EvaluationCompleted  EvaluationState = "completed"
)

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

var (
	ErrInvalidTransition = errors.New("invalid evaluation state transition")
	ErrScoreOutOfRange   = errors.New("score must be between 0 and 10")
)

// Evaluation is one evaluator's scoring of one presentation.
type Evaluation struct {
	ID             uuid.UUID       `json:"id"`
	PresentationID uuid.UUID       `json:"presentation_id"`
	EvaluatorID    uuid.UUID       `json:"evaluator_id"`
	Score          *float64        `json:"score"`
	Opinion        *string         `json:"opinion,omitempty"`
	State          EvaluationState `json:"state"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// transitions lists every allowed state change. Completed has no way out.
var transitions = map[EvaluationState][]EvaluationState{
	EvaluationPending:    {EvaluationInProgress},
	EvaluationInProgress: {EvaluationCompleted},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to EvaluationState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NewEvaluation starts an evaluation in progress.
func NewEvaluation(presentationID, evaluatorID uuid.UUID, now time.Time) *Evaluation {
	return &Evaluation{
		ID:             uuid.New(),
		PresentationID: presentationID,
		EvaluatorID:    evaluatorID,
		State:          EvaluationInProgress,
		StartedAt:      now,
	}
}

// IsTerminal reports whether no further mutation is permitted.
func (e *Evaluation) IsTerminal() bool {
	return e.State == EvaluationCompleted
}

// Complete applies a submission. The score must already be normalized.
func (e *Evaluation) Complete(score float64, opinion string, now time.Time) error {
	if !CanTransition(e.State, EvaluationCompleted) {
		return ErrInvalidTransition
	}
	e.Score = &score
	e.Opinion = &opinion
	e.State = EvaluationCompleted
	e.CompletedAt = &now
	return nil
}

// RecencyTime is the completion time, or the start time when not completed.
func (e *Evaluation) RecencyTime() time.Time {
	if e.CompletedAt != nil {
		return *e.CompletedAt
	}
	return e.StartedAt
}

// SortByRecency orders evaluations most recently completed (or started) first.
func SortByRecency(list []Evaluation) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].RecencyTime().After(list[j].RecencyTime())
	})
}

// NormalizeScore validates a score and rounds it to one decimal place.
func NormalizeScore(score float64) (float64, error) {
	if math.IsNaN(score) || score < MinScore || score > MaxScore {
		return 0, ErrScoreOutOfRange
	}
	return math.Round(score*10) / 10, nil
}
