// Package metrics provides generation counters and an optional Prometheus
// endpoint for the event generator.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric names.
const (
	MetricSessionsTotal   = "eventgen_sessions_total"
	MetricEventsTotal     = "eventgen_events_total"
	MetricDropOffsTotal   = "eventgen_dropoffs_total"
	MetricReconnectsTotal = "eventgen_reconnects_total"
	MetricWarningsTotal   = "eventgen_warnings_total"
)

// Recorder counts generation outcomes on a private Prometheus registry.
// The registry can be served over HTTP for scraping during long runs, or
// read directly for the end-of-run report.
type Recorder struct {
	registry *prometheus.Registry

	sessions   prometheus.Counter
	events     *prometheus.CounterVec
	dropOffs   prometheus.Counter
	reconnects prometheus.Counter
	warnings   prometheus.Counter

	server *http.Server
	ln     net.Listener
}

// NewRecorder creates a recorder with all counters registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSessionsTotal,
			Help: "Total sessions generated.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEventsTotal,
			Help: "Total events generated, by event name.",
		}, []string{"event"}),
		dropOffs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricDropOffsTotal,
			Help: "Total drop-off events generated.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricReconnectsTotal,
			Help: "Total reconnect events generated.",
		}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricWarningsTotal,
			Help: "Total non-fatal generation warnings.",
		}),
	}

	r.registry.MustRegister(r.sessions, r.events, r.dropOffs, r.reconnects, r.warnings)
	return r
}

// SessionGenerated counts one finished session.
func (r *Recorder) SessionGenerated() {
	r.sessions.Inc()
}

// EventGenerated counts one emitted event by name.
func (r *Recorder) EventGenerated(name string) {
	r.events.WithLabelValues(name).Inc()
}

// DropOff counts one drop-off event.
func (r *Recorder) DropOff() {
	r.dropOffs.Inc()
}

// Reconnect counts one reconnect event.
func (r *Recorder) Reconnect() {
	r.reconnects.Inc()
}

// Warning counts one non-fatal warning.
func (r *Recorder) Warning() {
	r.warnings.Inc()
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Serve starts the /metrics endpoint on addr in a background goroutine.
func (r *Recorder) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: listening on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	r.ln = ln
	r.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		_ = r.server.Serve(ln)
	}()
	return nil
}

// Addr returns the bound listener address, or "" when not serving.
func (r *Recorder) Addr() string {
	if r.ln == nil {
		return ""
	}
	return r.ln.Addr().String()
}

// Shutdown stops the metrics endpoint if it is running.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
