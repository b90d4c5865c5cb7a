package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterRegistrations       prometheus.Counter
	CounterEnrollments         prometheus.Counter
	CounterCompletedDays       prometheus.Counter
	CounterNotificationsSent   prometheus.Counter
	CounterRemindersSent       prometheus.Counter
	CounterSweepErrors         prometheus.Counter
	CounterHandleRequestPanic  prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter

	// gauges
	GaugeRequests    prometheus.Gauge
	GaugeLifeSignal  prometheus.Gauge
	GaugeWsClients   prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
	HistSweepDuration        prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("fittrack", "test_server", prometheus.NewRegistry())
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		CounterRegistrations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "registrations",
			Help:      "The total number of registered users",
		}),
		CounterEnrollments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "enrollments",
			Help:      "The total number of workout plan enrollments",
		}),
		CounterCompletedDays: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "completed_days",
			Help:      "The total number of completed workout days",
		}),
		CounterNotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_sent",
			Help:      "The total number of notifications created",
		}),
		CounterRemindersSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminders_sent",
			Help:      "The total number of workout reminders sent by the sweep",
		}),
		CounterSweepErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_errors",
			Help:      "The total number of failed sweep ticks",
		}),
		CounterHandleRequestPanic: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handle_request_panic",
			Help:      "The total number of serve request panics",
		}),
		CounterRateLimitedRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rate_limited_requests",
			Help:      "The total number of rate limited requests",
		}),
		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),
		GaugeLifeSignal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "life_signal",
			Help:      "Server life signal",
		}),
		GaugeWsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ws_clients",
			Help:      "Currently connected websocket clients",
		}),
		HistogramRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Request serving duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		HistSweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Reminder sweep tick duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
