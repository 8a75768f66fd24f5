package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "github.com/aura-events/backend/pkg/domainerrors"
)

// Check-in flows.
const (
	FlowPin   = "pin"
	FlowEvent = "event"
)

// Outcome turns an operation result into a label value: "ok" or the error code.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(dErrors.CodeOf(err))
}

// Metrics tracks the integrity engine's write paths and report builds.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CheckIns             *prometheus.CounterVec
	CheckOuts            *prometheus.CounterVec
	PinRotations         prometheus.Counter
	PinValidations       *prometheus.CounterVec
	EvaluationsStarted   prometheus.Counter
	EvaluationsSubmitted *prometheus.CounterVec
	ReportDuration       *prometheus.HistogramVec
}

// New registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_checkins_total",
			Help: "Check-in attempts by flow and outcome code",
		}, []string{"flow", "outcome"}),
		CheckOuts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_checkouts_total",
			Help: "Check-out attempts by flow and outcome code",
		}, []string{"flow", "outcome"}),
		PinRotations: f.NewCounter(prometheus.CounterOpts{
			Name: "aura_pin_rotations_total",
			Help: "Total number of PINs generated",
		}),
		PinValidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_pin_validations_total",
			Help: "PIN validations by result",
		}, []string{"result"}),
		EvaluationsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "aura_evaluations_started_total",
			Help: "Evaluations created by start (idempotent repeats excluded)",
		}),
		EvaluationsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_evaluations_submitted_total",
			Help: "Evaluation submissions by outcome code",
		}, []string{"outcome"}),
		ReportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aura_report_build_duration_seconds",
			Help:    "Duration of report builds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),
	}
}

func (m *Metrics) CheckIn(flow, outcome string) {
	if m == nil {
		return
	}
	m.CheckIns.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) CheckOut(flow, outcome string) {
	if m == nil {
		return
	}
	m.CheckOuts.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) PinRotated() {
	if m == nil {
		return
	}
	m.PinRotations.Inc()
}

func (m *Metrics) PinValidated(ok bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if ok {
		result = "accepted"
	}
	m.PinValidations.WithLabelValues(result).Inc()
}

func (m *Metrics) EvaluationStarted() {
	if m == nil {
		return
	}
	m.EvaluationsStarted.Inc()
}

func (m *Metrics) EvaluationSubmitted(outcome string) {
	if m == nil {
		return
	}
	m.EvaluationsSubmitted.WithLabelValues(outcome).Inc()
}

// ObserveReport records a report build. Call with time.Now() taken at the start.
func (m *Metrics) ObserveReport(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.ReportDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
