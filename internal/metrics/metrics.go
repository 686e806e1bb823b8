package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "spotanalitics"

// Recorder collects pass and lifecycle metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	passes          *prometheus.CounterVec
	passDuration    prometheus.Histogram
	signals         *prometheus.CounterVec
	closed          *prometheus.CounterVec
	fetchErrors     *prometheus.CounterVec
	notifyFailures  prometheus.Counter
	openForecasts   prometheus.Gauge
	lastPassSuccess prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pass", Name: "total",
			Help: "Scan passes by result (ok, error, skipped)",
		}, []string{"result"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pass", Name: "duration_seconds",
			Help:    "Wall time of one full pass",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "forecast", Name: "signals_total",
			Help: "Forecasts created by stop-loss method",
		}, []string{"method"}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "forecast", Name: "closed_total",
			Help: "Forecasts closed by outcome",
		}, []string{"outcome"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "market", Name: "fetch_errors_total",
			Help: "Market data failures by kind",
		}, []string{"kind"}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "notify", Name: "failures_total",
			Help: "Notifications that could not be delivered",
		}),
		openForecasts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "forecast", Name: "open",
			Help: "Open forecasts after the last pass",
		}),
		lastPassSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pass", Name: "last_success_timestamp_seconds",
			Help: "Unix time of the last successful pass",
		}),
	}
	r.registry.MustRegister(
		r.passes, r.passDuration, r.signals, r.closed, r.fetchErrors,
		r.notifyFailures, r.openForecasts, r.lastPassSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) PassFinished(result string, took time.Duration, at time.Time) {
	if r == nil {
		return
	}
	r.passes.WithLabelValues(result).Inc()
	if result == "skipped" {
		return
	}
	r.passDuration.Observe(took.Seconds())
	if result == "ok" {
		r.lastPassSuccess.Set(float64(at.Unix()))
	}
}

func (r *Recorder) SignalEmitted(method string) {
	if r == nil {
		return
	}
	r.signals.WithLabelValues(method).Inc()
}

func (r *Recorder) ForecastClosed(outcome string) {
	if r == nil {
		return
	}
	r.closed.WithLabelValues(outcome).Inc()
}

func (r *Recorder) FetchFailed(kind string) {
	if r == nil {
		return
	}
	r.fetchErrors.WithLabelValues(kind).Inc()
}

func (r *Recorder) NotifyFailed() {
	if r == nil {
		return
	}
	r.notifyFailures.Inc()
}

func (r *Recorder) SetOpen(n int) {
	if r == nil {
		return
	}
	r.openForecasts.Set(float64(n))
}
