package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the API.  A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	authFailures *prometheus.CounterVec
	gateDenials  prometheus.Counter
	cacheResults *prometheus.CounterVec
	rateLimited  *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg under the learntrack
// namespace.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	const ns = "learntrack"
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route template and status code",
		}, []string{"method", "route", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		authFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected authentications by reason (missing, invalid, provider)",
		}, []string{"reason"}),

		gateDenials: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "auth",
			Name:      "payment_gate_denials_total",
			Help:      "Instructor sign-ins redirected to the payment page",
		}),

		cacheResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by result (hit, miss)",
		}, []string{"result"}),

		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Requests rejected by the token bucket, by route",
		}, []string{"route"}),
	}
}

// Middleware observes every request.  The route label is the echo route
// template, never the raw path, to keep cardinality bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m == nil {
			return next
		}
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			method := c.Request().Method
			m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			return err
		}
	}
}

func (m *Metrics) AuthFailure(reason string) {
	if m != nil {
		m.authFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) GateDenied() {
	if m != nil {
		m.gateDenials.Inc()
	}
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheResults.WithLabelValues("hit").Inc()
	} else {
		m.cacheResults.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) rateLimit(route string) {
	if m != nil {
		m.rateLimited.WithLabelValues(route).Inc()
	}
}
