package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	EnrollmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "elearn_enrollments_total",
			Help: "Number of new course enrollments",
		},
	)

	CourseCompletionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "elearn_course_completions_total",
			Help: "Number of counted course completions",
		},
	)

	LessonCompletionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "elearn_lesson_completions_total",
			Help: "Number of lessons newly marked as completed",
		},
	)

	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elearn_store_errors_total",
			Help: "Number of failed document store operations",
		},
		[]string{"entity"},
	)

	ReconcileRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elearn_reconcile_runs_total",
			Help: "Progress reconciliation job runs by result",
		},
		[]string{"result"},
	)

	ProgressSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "elearn_progress_subscribers",
			Help: "Open progress websocket connections on this instance",
		},
	)

	ProgressEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elearn_progress_events_total",
			Help: "Progress events pushed to subscribers by type",
		},
		[]string{"type"},
	)
)

var registerOnce sync.Once

// Init 注册指标，可重复调用
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			EnrollmentsTotal,
			CourseCompletionsTotal,
			LessonCompletionsTotal,
			StoreErrorsTotal,
			ReconcileRunsTotal,
			ProgressSubscribers,
			ProgressEventsTotal,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
