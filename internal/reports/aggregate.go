// Package reports folds evaluations and attendance into per-presentation and per-event
// statistics. Reports are computed on demand and never written on the request path.
package reports

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
)

// Classification bands, highest first.
const (
	Excellent        = "Excellent"
	Good             = "Good"
	Regular          = "Regular"
	Insufficient     = "Insufficient"
	VeryInsufficient = "Very Insufficient"
)

var bands = []struct {
	min   float64
	label string
}{
	{9, Excellent},
	{7, Good},
	{5, Regular},
	{3, Insufficient},
}

// Classify maps an average score onto its band. A nil average has no band.
func Classify(average *float64) *string {
	if average == nil {
		return nil
	}
	label := VeryInsufficient
	for _, b := range bands {
		if *average >= b.min {
			label = b.label
			break
		}
	}
	return &label
}

// Stats are the evaluation statistics of one presentation. The score fields are nil
// when no completed evaluation carries a score.
type Stats struct {
	TotalEvaluations     int      `json:"total_evaluations"`
	CompletedEvaluations int      `json:"completed_evaluations"`
	PendingEvaluations   int      `json:"pending_evaluations"`
	AverageScore         *float64 `json:"average_score"`
	MaxScore             *float64 `json:"max_score"`
	MinScore             *float64 `json:"min_score"`
}

// PresentationReport is the report for one presentation.
type PresentationReport struct {
	PresentationID uuid.UUID       `json:"presentation_id"`
	EventID        uuid.UUID       `json:"event_id"`
	Title          string          `json:"title"`
	Modality       models.Modality `json:"modality"`
	Stats
	GeneratedAt time.Time `json:"generated_at"`
}

// PresentationSummary is one row of an event report.
type PresentationSummary struct {
	PresentationID uuid.UUID       `json:"presentation_id"`
	Title          string          `json:"title"`
	Modality       models.Modality `json:"modality"`
	Stats
	Classification *string `json:"classification"`
}

// EventReport is the report for a whole event.
type EventReport struct {
	EventID              uuid.UUID                `json:"event_id"`
	Title                string                   `json:"title"`
	Presentations        []PresentationSummary    `json:"presentations"`
	TotalEvaluations     int                      `json:"total_evaluations"`
	CompletedEvaluations int                      `json:"completed_evaluations"`
	AverageGeneralScore  *float64                 `json:"average_general_score"`
	Attendance           *models.AttendanceCounts `json:"attendance,omitempty"`
	GeneratedAt          time.Time                `json:"generated_at"`
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// scored returns the scores of completed evaluations that carry one.
func scored(list []models.Evaluation) []float64 {
	var out []float64
	for _, ev := range list {
		if ev.State == models.EvaluationCompleted && ev.Score != nil {
			out = append(out, *ev.Score)
		}
	}
	return out
}

// mean returns the rounded arithmetic mean, or nil for no values.
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := round2(sum / float64(len(values)))
	return &avg
}

// Summarize computes the statistics of one presentation's evaluations.
func Summarize(list []models.Evaluation) Stats {
	st := Stats{TotalEvaluations: len(list)}
	for _, ev := range list {
		if ev.State == models.EvaluationCompleted {
			st.CompletedEvaluations++
		}
	}
	st.PendingEvaluations = st.TotalEvaluations - st.CompletedEvaluations

	scores := scored(list)
	if len(scores) == 0 {
		return st
	}
	lo, hi := scores[0], scores[0]
	for _, v := range scores[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	st.AverageScore = mean(scores)
	st.MaxScore = &hi
	st.MinScore = &lo
	return st
}

// BuildEventReport assembles an event report from the event's presentations and all
// of their evaluations. Summaries are ordered by average score, highest first, with a
// missing average sorting as 0.
func BuildEventReport(event *models.Event, presentations []models.Presentation, evaluations []models.Evaluation, now time.Time) *EventReport {
	byPresentation := make(map[uuid.UUID][]models.Evaluation, len(presentations))
	for _, ev := range evaluations {
		byPresentation[ev.PresentationID] = append(byPresentation[ev.PresentationID], ev)
	}

	rep := &EventReport{
		EventID:       event.ID,
		Title:         event.Title,
		Presentations: make([]PresentationSummary, 0, len(presentations)),
		GeneratedAt:   now,
	}
	var all []models.Evaluation
	for _, p := range presentations {
		list := byPresentation[p.ID]
		all = append(all, list...)
		st := Summarize(list)
		rep.TotalEvaluations += st.TotalEvaluations
		rep.CompletedEvaluations += st.CompletedEvaluations
		rep.Presentations = append(rep.Presentations, PresentationSummary{
			PresentationID: p.ID,
			Title:          p.Title,
			Modality:       p.Modality,
			Stats:          st,
			Classification: Classify(st.AverageScore),
		})
	}
	sort.SliceStable(rep.Presentations, func(i, j int) bool {
		return sortKey(rep.Presentations[i].AverageScore) > sortKey(rep.Presentations[j].AverageScore)
	})
	// mean over every scored evaluation, not the mean of per-presentation means
	rep.AverageGeneralScore = mean(scored(all))
	return rep
}

func sortKey(avg *float64) float64 {
	if avg == nil {
		return 0
	}
	return *avg
}
