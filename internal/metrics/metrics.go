// Package metrics counts what the interception engine does with the
// boundaries reported to it.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives engine counters. Implementations must be goroutine-safe
// and cheap; they run inline on every boundary.
type Recorder interface {
	Boundary(kind string)
	Matched()
	Emitted(kind string)
	Dropped(reason string)
}

// Drop reasons.
const (
	ReasonSinkError = "sink_error"
	ReasonInternal  = "internal"
	ReasonAmbiguous = "ambiguous"
	ReasonDepth     = "depth"
)

type nop struct{}

func (nop) Boundary(string) {}

func (nop) Matched() {}

func (nop) Emitted(string) {}

func (nop) Dropped(string) {}

// Nop discards all counters.
var Nop Recorder = nop{}

// Prometheus exports the counters as prometheus metrics under the "fntrace"
// namespace.
type Prometheus struct {
	boundaries *prometheus.CounterVec
	matched    prometheus.Counter
	emitted    *prometheus.CounterVec
	dropped    *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		boundaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fntrace",
			Name:      "boundaries_total",
			Help:      "Boundaries reported to the interceptor, by kind.",
		}, []string{"kind"}),
		matched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fntrace",
			Name:      "matched_calls_total",
			Help:      "Call boundaries that matched a registered target.",
		}),
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fntrace",
			Name:      "events_emitted_total",
			Help:      "Trace events written to the sink, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fntrace",
			Name:      "events_dropped_total",
			Help:      "Trace events not written, by reason.",
		}, []string{"reason"}),
	}
	if reg == nil {
		return p, nil
	}
	for _, c := range []prometheus.Collector{p.boundaries, p.matched, p.emitted, p.dropped} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering fntrace metrics: %w", err)
		}
	}
	return p, nil
}

// Boundary implements Recorder.
func (p *Prometheus) Boundary(kind string) { p.boundaries.WithLabelValues(kind).Inc() }

// Matched implements Recorder.
func (p *Prometheus) Matched() { p.matched.Inc() }

// Emitted implements Recorder.
func (p *Prometheus) Emitted(kind string) { p.emitted.WithLabelValues(kind).Inc() }

// Dropped implements Recorder.
func (p *Prometheus) Dropped(reason string) { p.dropped.WithLabelValues(reason).Inc() }
