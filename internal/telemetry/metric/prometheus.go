package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/regmesh-go/internal/core/naming"
)

const namespace = "regmesh"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Fan-out metrics
	rounds        *prometheus.CounterVec
	roundMembers  *prometheus.CounterVec
	roundDuration *prometheus.HistogramVec

	// Loader metrics
	instructions *prometheus.CounterVec

	// Naming metrics
	reports    prometheus.Counter
	mismatches prometheus.Counter
	dropped    prometheus.Counter
	repairs    *prometheus.CounterVec

	// Admin HTTP metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with process and Go runtime collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "rounds_total",
			Help:      "Fan-out rounds by operation.",
		}, []string{"op"}),
		roundMembers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "members_total",
			Help:      "Per-member fan-out outcomes.",
		}, []string{"op", "outcome"}),
		roundDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "round_duration_seconds",
			Help:      "Wall time of fan-out rounds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 1.5, 2.5},
		}, []string{"op"}),
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "instructions_total",
			Help:      "Reload and limit instructions by operation, target and result.",
		}, []string{"op", "target", "result"}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "naming",
			Name:      "checksum_reports_total",
			Help:      "Checksum vectors received from peers.",
		}),
		mismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "naming",
			Name:      "checksum_mismatches_total",
			Help:      "Services whose checksum differed from the reporting peer.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "naming",
			Name:      "repair_dropped_total",
			Help:      "Repair tasks dropped because the queue was full.",
		}),
		repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "naming",
			Name:      "repairs_total",
			Help:      "Repair attempts by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Admin HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.rounds, r.roundMembers, r.roundDuration,
		r.instructions,
		r.reports, r.mismatches, r.dropped, r.repairs,
		r.httpRequests, r.httpDuration,
	)
	return r
}

// Registerer returns the underlying registerer for extra collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveRound implements fanout.Observer.
func (r *Registry) ObserveRound(op string, ok, failed, timedOut int, elapsed time.Duration) {
	r.rounds.WithLabelValues(op).Inc()
	r.roundMembers.WithLabelValues(op, "ok").Add(float64(ok))
	r.roundMembers.WithLabelValues(op, "failed").Add(float64(failed))
	r.roundMembers.WithLabelValues(op, "timeout").Add(float64(timedOut))
	r.roundDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveInstruction implements loader.InstructionObserver.
func (r *Registry) ObserveInstruction(op string, self, ok bool) {
	target := "peer"
	if self {
		target = "self"
	}
	r.instructions.WithLabelValues(op, target, result(ok)).Inc()
}

// ObserveReconcile implements naming.Observer.
func (r *Registry) ObserveReconcile(res *naming.ReconcileResult) {
	if res == nil {
		return
	}
	r.reports.Inc()
	r.mismatches.Add(float64(res.Mismatched))
	r.dropped.Add(float64(res.Dropped))
}

// ObserveRepair implements naming.Observer.
func (r *Registry) ObserveRepair(ok bool) {
	r.repairs.WithLabelValues(result(ok)).Inc()
}

// ObserveHTTP records one admin HTTP request.
func (r *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
