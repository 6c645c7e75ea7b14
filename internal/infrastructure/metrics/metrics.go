package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "custos"

// Metrics owns a private registry so tests and multiple instances never
// collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	backupRuns       *prometheus.CounterVec
	backupDuration   *prometheus.HistogramVec
	lastSuccess      prometheus.Gauge
	restoreRuns      *prometheus.CounterVec
	retentionDeleted prometheus.Counter
	mirrorUploads    *prometheus.CounterVec
	schedulerRunning prometheus.Gauge
	connected        prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		backupRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backup_runs_total",
			Help:      "Backup attempts by trigger and result.",
		}, []string{"trigger", "result"}),
		backupDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Wall time of dump and restore runs.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"operation"}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backup_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful backup.",
		}),
		restoreRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restore_runs_total",
			Help:      "Restore attempts by result.",
		}, []string{"result"}),
		retentionDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deleted_total",
			Help:      "Backup artifacts removed by the retention sweep.",
		}),
		mirrorUploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_uploads_total",
			Help:      "Uploads to mirror targets by target and result.",
		}, []string{"target", "result"}),
		schedulerRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 while the backup scheduler is armed.",
		}),
		connected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connected",
			Help:      "1 while a database session is open.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Management API requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Management API latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (m *Metrics) ObserveBackup(trigger string, ok bool, d time.Duration) {
	m.backupRuns.WithLabelValues(trigger, result(ok)).Inc()
	m.backupDuration.WithLabelValues("backup").Observe(d.Seconds())
	if ok {
		m.lastSuccess.SetToCurrentTime()
	}
}

func (m *Metrics) ObserveRestore(ok bool, d time.Duration) {
	m.restoreRuns.WithLabelValues(result(ok)).Inc()
	m.backupDuration.WithLabelValues("restore").Observe(d.Seconds())
}

func (m *Metrics) RetentionDeleted(n int) {
	m.retentionDeleted.Add(float64(n))
}

func (m *Metrics) MirrorUpload(target string, ok bool) {
	m.mirrorUploads.WithLabelValues(target, result(ok)).Inc()
}

func (m *Metrics) SchedulerRunning(running bool) {
	m.schedulerRunning.Set(boolValue(running))
}

func (m *Metrics) Connected(connected bool) {
	m.connected.Set(boolValue(connected))
}

func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	status := "unknown"
	switch {
	case statusCode >= 500:
		status = "5xx"
	case statusCode >= 400:
		status = "4xx"
	case statusCode >= 300:
		status = "3xx"
	case statusCode >= 200:
		status = "2xx"
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
