// Package metrics exposes refresh-cycle and API figures to Prometheus.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dm/fleetmon-go/internal/engine"
)

const namespace = "fleetmon"

// Result label values for fleetmon_cycles_total.
const (
	ResultOK              = "ok"
	ResultRegistryFailure = "registry_failure"
)

// Recorder owns a registry and the collectors fed from scheduler updates and
// API requests.
type Recorder struct {
	registry *prometheus.Registry

	Cycles          *prometheus.CounterVec
	PositionFetches *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	Devices         *prometheus.GaugeVec
	MapPositions    prometheus.Gauge
	TotalDistance   prometheus.Gauge
	LastCycle       prometheus.Gauge
	SkippedTriggers *prometheus.CounterVec

	TotalRequests   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  *prometheus.GaugeVec
}

// NewRecorder creates a Recorder on a fresh registry. When withRuntime is
// true the Go and process collectors are registered too.
func NewRecorder(withRuntime bool) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Completed refresh cycles by result",
			},
			[]string{"result"},
		),
		PositionFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "position_fetches_total",
				Help:      "Per-device position fetch outcomes",
			},
			[]string{"outcome"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of successful refresh cycles",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Devices: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "devices",
				Help:      "Devices in the current snapshot by status bucket",
			},
			[]string{"status"},
		),
		MapPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "map_positions",
				Help:      "Positions with both coordinates in the current snapshot",
			},
		),
		TotalDistance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "total_distance_meters",
				Help:      "Sum of device odometers in the current snapshot",
			},
		),
		LastCycle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_cycle",
				Help:      "Cycle number of the current snapshot",
			},
		),
		SkippedTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_triggers_total",
				Help:      "Triggers dropped because a cycle was still running",
			},
			[]string{"trigger"},
		),

		TotalRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		ActiveRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "http_requests_active",
				Help: "Number of active HTTP requests",
			},
			[]string{"method", "endpoint"},
		),
	}

	r.registry.MustRegister(
		r.Cycles,
		r.PositionFetches,
		r.CycleDuration,
		r.Devices,
		r.MapPositions,
		r.TotalDistance,
		r.LastCycle,
		r.SkippedTriggers,
		r.TotalRequests,
		r.RequestDuration,
		r.ActiveRequests,
	)
	if withRuntime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveUpdate records one completed cycle. It is meant to be passed to
// Scheduler.Subscribe.
func (r *Recorder) ObserveUpdate(u engine.Update) {
	if u.Err != nil {
		r.Cycles.WithLabelValues(ResultRegistryFailure).Inc()
		return
	}
	r.Cycles.WithLabelValues(ResultOK).Inc()

	st := u.Snapshot.Stats
	r.PositionFetches.WithLabelValues("updated").Add(float64(st.Updated))
	r.PositionFetches.WithLabelValues("absent").Add(float64(st.Absent))
	r.PositionFetches.WithLabelValues("failed").Add(float64(st.Failed))
	r.CycleDuration.Observe(st.Duration.Seconds())

	agg := u.Aggregate
	r.Devices.WithLabelValues("online").Set(float64(agg.OnlineCount))
	r.Devices.WithLabelValues("offline").Set(float64(agg.OfflineCount - agg.UnknownCount))
	r.Devices.WithLabelValues("unknown").Set(float64(agg.UnknownCount))
	r.MapPositions.Set(float64(len(agg.MapPositions)))
	r.TotalDistance.Set(agg.TotalDistance)
	r.LastCycle.Set(float64(u.Snapshot.Cycle))
}

// ObserveSkip records a dropped trigger. It is meant for
// SchedulerConfig.OnSkip.
func (r *Recorder) ObserveSkip(t engine.Trigger) {
	r.SkippedTriggers.WithLabelValues(string(t)).Inc()
}

// Middleware records request counts and latencies. Requests are labelled by
// their mux route template, so it must be installed with Router.Use.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		endpoint := routeTemplate(req)

		r.ActiveRequests.WithLabelValues(req.Method, endpoint).Inc()
		defer r.ActiveRequests.WithLabelValues(req.Method, endpoint).Dec()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, req)

		r.RequestDuration.WithLabelValues(req.Method, endpoint).Observe(time.Since(start).Seconds())
		r.TotalRequests.WithLabelValues(req.Method, endpoint, strconv.Itoa(rw.status)).Inc()
	})
}

func routeTemplate(req *http.Request) string {
	if route := mux.CurrentRoute(req); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
