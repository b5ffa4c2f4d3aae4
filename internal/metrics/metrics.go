package metrics

import (
	"context"
	"sync"
	"time"
)

type transitionStats struct {
	total       int
	byOutcome   map[string]int
	lastLatency time.Duration
}

// Recorder counts lending transitions in memory and forwards HTTP and
// transition measurements to OpenTelemetry when Setup enabled it.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	mu    sync.Mutex
	stats map[string]*transitionStats
	otel  *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		stats: make(map[string]*transitionStats),
		otel:  otel,
	}
}

// RecordTransition tracks one borrow or return attempt and its outcome.
func (r *Recorder) RecordTransition(operation, outcome string, duration time.Duration) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats, ok := r.stats[operation]
	if !ok {
		stats = &transitionStats{byOutcome: make(map[string]int)}
		r.stats[operation] = stats
	}
	stats.total++
	stats.byOutcome[outcome]++
	stats.lastLatency = duration
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordTransition(operation, outcome, duration)
	}
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(ctx, method, route, status, duration)
}

// Snapshot is a copy of the counters kept for one operation.
type Snapshot struct {
	Total       int
	ByOutcome   map[string]int
	LastLatency time.Duration
}

func (r *Recorder) Snapshot(operation string) Snapshot {
	if r == nil {
		return Snapshot{ByOutcome: map[string]int{}}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{ByOutcome: make(map[string]int)}
	stats, ok := r.stats[operation]
	if !ok {
		return snap
	}
	snap.Total = stats.total
	snap.LastLatency = stats.lastLatency
	for k, v := range stats.byOutcome {
		snap.ByOutcome[k] = v
	}
	return snap
}
