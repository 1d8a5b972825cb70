package mock

import (
	"strings"
	"sync"
	"time"
)

// RecordingStatter is used for testing. Stats are keyed by name followed by
// any tags, joined with commas.
type RecordingStatter struct {
	mu      sync.Mutex
	Counts  map[string]int64
	Gauges  map[string]float64
	Timings map[string][]time.Duration
}

func key(name string, tags []string) string {
	if len(tags) == 0 {
		return name
	}
	return name + "," + strings.Join(tags, ",")
}

// Count implements Count.
func (r *RecordingStatter) Count(name string, value int64, tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Counts == nil {
		r.Counts = make(map[string]int64)
	}
	r.Counts[key(name, tags)] += value
}

// Gauge implements Gauge.
func (r *RecordingStatter) Gauge(name string, value float64, tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Gauges == nil {
		r.Gauges = make(map[string]float64)
	}
	r.Gauges[key(name, tags)] = value
}

// Timing implements Timing.
func (r *RecordingStatter) Timing(name string, value time.Duration, tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Timings == nil {
		r.Timings = make(map[string][]time.Duration)
	}
	k := key(name, tags)
	r.Timings[k] = append(r.Timings[k], value)
}

// CountOf returns the accumulated count for name and tags.
func (r *RecordingStatter) CountOf(name string, tags ...string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Counts[key(name, tags)]
}
