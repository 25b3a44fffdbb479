package workers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Task statuses used in metrics labels.
const (
	statusSuccess  = "success"
	statusFailure  = "failure"
	statusRejected = "rejected"
)

// PrometheusMetrics exports pool state and task outcomes.
type PrometheusMetrics struct {
	executors    prometheus.Gauge
	idle         prometheus.Gauge
	queued       prometheus.Gauge
	inFlight     prometheus.Gauge
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
}

// InitPrometheusMetrics creates the pool collectors and registers them on reg
// (the default registerer when reg is nil).
func InitPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		executors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_executors",
				Help:      "Number of executors in the pool",
			},
		),
		idle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_executors_idle",
				Help:      "Number of idle executors",
			},
		),
		queued: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_tasks_queued",
				Help:      "Number of tasks waiting for an executor",
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_tasks_in_flight",
				Help:      "Number of tasks dispatched to an executor",
			},
		),
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pool_tasks_total",
				Help:      "Total number of settled tasks",
			},
			[]string{"kind", "status"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pool_task_duration_seconds",
				Help:      "Time from dispatch to result",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		m.executors,
		m.idle,
		m.queued,
		m.inFlight,
		m.tasksTotal,
		m.taskDuration,
	)

	return m
}

func (m *PrometheusMetrics) observeState(s Stats) {
	if m == nil {
		return
	}
	m.executors.Set(float64(s.Executors))
	m.idle.Set(float64(s.Idle))
	m.queued.Set(float64(s.Queued))
	m.inFlight.Set(float64(s.InFlight))
}

func (m *PrometheusMetrics) recordTask(kind, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(kind, status).Inc()
	if d > 0 {
		m.taskDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// Metrics returns the current pool counters.
func (p *Pool) Metrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// recordLocked updates counters for a settled task. Caller holds p.mu.
func (p *Pool) recordLocked(entry *pending, status string) {
	var d time.Duration
	if !entry.dispatched.IsZero() {
		d = time.Since(entry.dispatched)
	}

	switch status {
	case statusSuccess:
		p.metrics.TasksCompleted++
	case statusFailure:
		p.metrics.TasksFailed++
	default:
		p.metrics.TasksRejected++
	}
	p.metrics.TotalDuration += d

	p.prom.recordTask(string(entry.task.Kind), status, d)
}
