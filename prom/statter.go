// Package prom implements lake.Statter with Prometheus metrics which are
// pushed to a Pushgateway when a run finishes.
package prom

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pilosa/lake"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var _ lake.Statter = &Statter{}

// Statter creates metrics on first use. Tags of the form "key:value" become
// labels. The label names of a metric are fixed by its first use; later
// calls leave absent labels empty and drop unknown ones.
type Statter struct {
	namespace string
	reg       *prometheus.Registry
	log       lake.Logger

	mu       sync.Mutex
	counters map[string]*vec
	gauges   map[string]*vec
	timings  map[string]*vec
}

type vec struct {
	labels []string
	c      *prometheus.CounterVec
	g      *prometheus.GaugeVec
	h      *prometheus.HistogramVec
}

// NewStatter returns a Statter whose metric names start with namespace_.
func NewStatter(namespace string, log lake.Logger) *Statter {
	if log == nil {
		log = lake.NopLogger{}
	}
	return &Statter{
		namespace: namespace,
		reg:       prometheus.NewRegistry(),
		log:       log,
		counters:  make(map[string]*vec),
		gauges:    make(map[string]*vec),
		timings:   make(map[string]*vec),
	}
}

// Gatherer returns the registry holding every metric the Statter created.
func (s *Statter) Gatherer() prometheus.Gatherer { return s.reg }

func splitTags(tags []string) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		if i := strings.IndexByte(t, ':'); i > 0 {
			m[t[:i]] = t[i+1:]
		} else {
			m[t] = ""
		}
	}
	return m
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (v *vec) values(tags map[string]string) []string {
	vals := make([]string, len(v.labels))
	for i, l := range v.labels {
		vals[i] = tags[l]
	}
	return vals
}

// get returns the vec for name, creating and registering it with mk if
// needed. It returns nil if registration fails.
func (s *Statter) get(m map[string]*vec, name string, tags map[string]string, mk func(labels []string) (*vec, prometheus.Collector)) *vec {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := m[name]; ok {
		return v
	}
	v, c := mk(labelNames(tags))
	if err := s.reg.Register(c); err != nil {
		s.log.Printf("registering metric %s: %v", name, err)
		m[name] = nil
		return nil
	}
	m[name] = v
	return v
}

// Count adds value to the counter name_total.
func (s *Statter) Count(name string, value int64, tags ...string) {
	tm := splitTags(tags)
	v := s.get(s.counters, name, tm, func(labels []string) (*vec, prometheus.Collector) {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Name:      name + "_total",
			Help:      "Total " + strings.Replace(name, "_", " ", -1) + ".",
		}, labels)
		return &vec{labels: labels, c: c}, c
	})
	if v == nil || value < 0 {
		return
	}
	v.c.WithLabelValues(v.values(tm)...).Add(float64(value))
}

// Gauge sets the gauge name.
func (s *Statter) Gauge(name string, value float64, tags ...string) {
	tm := splitTags(tags)
	v := s.get(s.gauges, name, tm, func(labels []string) (*vec, prometheus.Collector) {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: s.namespace,
			Name:      name,
			Help:      strings.Replace(name, "_", " ", -1) + ".",
		}, labels)
		return &vec{labels: labels, g: g}, g
	})
	if v == nil {
		return
	}
	v.g.WithLabelValues(v.values(tm)...).Set(value)
}

// Timing observes value in the histogram name_seconds.
func (s *Statter) Timing(name string, value time.Duration, tags ...string) {
	tm := splitTags(tags)
	v := s.get(s.timings, name, tm, func(labels []string) (*vec, prometheus.Collector) {
		h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: s.namespace,
			Name:      name + "_seconds",
			Help:      "Duration of " + strings.Replace(name, "_", " ", -1) + ".",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, labels)
		return &vec{labels: labels, h: h}, h
	})
	if v == nil {
		return
	}
	v.h.WithLabelValues(v.values(tm)...).Observe(value.Seconds())
}

// Push sends every metric to the Pushgateway at url under job, replacing
// whatever the gateway held for that job.
func (s *Statter) Push(ctx context.Context, url, job string) error {
	err := push.New(url, job).Gatherer(s.reg).PushContext(ctx)
	return errors.Wrapf(err, "pushing metrics to %s", url)
}
