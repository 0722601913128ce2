package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pjpmarques/Castelos/internal/progress"
)

// Candidate outcomes used as the "outcome" label.
const (
	OutcomeRow          = "row"
	OutcomeNoItem       = "no_item"
	OutcomeNoCoordinate = "no_coordinate"
)

// PrometheusSink exports run progress via Prometheus. It owns the run,
// candidate and row collectors.
type PrometheusSink struct {
	runsStarted       prometheus.Counter
	runsRunning       prometheus.Gauge
	runDuration       prometheus.Histogram
	candidatesStarted prometheus.Counter
	candidates        *prometheus.CounterVec
	rowsAppended      prometheus.Counter
	candidateDuration prometheus.Histogram

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "castelos_runs_started_total",
			Help: "Total runs that have started.",
		}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "castelos_runs_running",
			Help: "Current number of running runs.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "castelos_run_duration_seconds",
			Help:    "Wall time per completed run.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
		}),
		candidatesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "castelos_candidates_started_total",
			Help: "Candidates handed to a worker.",
		}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "castelos_candidates_total",
			Help: "Finished candidates partitioned by outcome.",
		}, []string{"outcome"}),
		rowsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "castelos_rows_appended_total",
			Help: "Rows appended to the shared sink, before de-duplication.",
		}),
		candidateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "castelos_candidate_duration_seconds",
			Help:    "Time spent enriching one candidate.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsRunning,
		s.runDuration,
		s.candidatesStarted,
		s.candidates,
		s.rowsAppended,
		s.candidateDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
		if s.tracker.start(evt.RunID) {
			s.runsRunning.Inc()
		}
	case progress.StageRunDone:
		if evt.Dur > 0 {
			s.runDuration.Observe(evt.Dur.Seconds())
		}
		if s.tracker.complete(evt.RunID) {
			s.runsRunning.Dec()
		}
	case progress.StageCandidateStart:
		s.candidatesStarted.Inc()
	case progress.StageItemMissing:
		s.finishCandidate(evt, OutcomeNoItem)
	case progress.StageCoordMissing:
		s.finishCandidate(evt, OutcomeNoCoordinate)
	case progress.StageRowAppended:
		s.rowsAppended.Inc()
		s.finishCandidate(evt, OutcomeRow)
	}
}

func (s *PrometheusSink) finishCandidate(evt progress.Event, outcome string) {
	s.candidates.WithLabelValues(outcome).Inc()
	if evt.Dur > 0 {
		s.candidateDuration.Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type runTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[[16]byte]struct{})}
}

func (t *runTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
