package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the planning subsystem.
// All record methods accept a nil receiver.
type Metrics struct {
	TaskUpdates  *prometheus.CounterVec
	AutosaveRuns *prometheus.CounterVec
	SaveDuration *prometheus.HistogramVec
	HistoryDepth prometheus.Gauge
	HTTPRequests *prometheus.CounterVec
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		TaskUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operaflow_task_updates_total",
				Help: "Per-task updates issued from the planning board",
			},
			[]string{"kind", "result"},
		),
		AutosaveRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operaflow_autosave_runs_total",
				Help: "Save attempts of the autosave controller",
			},
			[]string{"trigger", "result"},
		),
		SaveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "operaflow_save_duration_seconds",
				Help:    "Duration of bulk saves",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"trigger"},
		),
		HistoryDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "operaflow_history_depth",
				Help: "Snapshots currently held by the undo history",
			},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operaflow_http_requests_total",
				Help: "HTTP API requests",
			},
			[]string{"route", "code"},
		),
	}
}

// NewRegistry creates an isolated registry, mostly for tests.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, NewMetrics(reg)
}

func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) RecordTaskUpdate(kind string, err error) {
	if m == nil {
		return
	}
	m.TaskUpdates.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) RecordSave(trigger string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.AutosaveRuns.WithLabelValues(trigger, result(err)).Inc()
	m.SaveDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (m *Metrics) SetHistoryDepth(n int) {
	if m == nil {
		return
	}
	m.HistoryDepth.Set(float64(n))
}

func (m *Metrics) RecordHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
