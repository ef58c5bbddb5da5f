package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	ReferralsSubmitted      prometheus.Counter
	StatusTransitions       *prometheus.CounterVec
	FollowUpsFlagged        prometheus.Counter
	MilestonesUnlocked      prometheus.Counter
	TaxThresholdsCrossed    prometheus.Counter
	NotificationsEnqueued   *prometheus.CounterVec
	NotificationsDispatched *prometheus.CounterVec

	// Sweep metrics
	SweepDuration prometheus.Histogram
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		ReferralsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "referrals_submitted_total",
			Help: "Total number of referrals submitted",
		}),
		StatusTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referral_status_transitions_total",
				Help: "Total number of referral status transitions",
			},
			[]string{"to_status"},
		),
		FollowUpsFlagged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "follow_ups_flagged_total",
			Help: "Total number of stale referrals flagged for follow-up",
		}),
		MilestonesUnlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "commission_milestones_unlocked_total",
			Help: "Total number of commission tier unlocks",
		}),
		TaxThresholdsCrossed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tax_thresholds_crossed_total",
			Help: "Total number of rep-years crossing the tax reporting threshold",
		}),
		NotificationsEnqueued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_enqueued_total",
				Help: "Total number of notifications enqueued",
			},
			[]string{"type"},
		),
		NotificationsDispatched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_dispatched_total",
				Help: "Total number of notification channel delivery attempts",
			},
			[]string{"channel", "outcome"},
		),

		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Duration of the daily staleness/tax sweep",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60},
		}),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, not the concrete URL

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)

			return err
		}
	}
}

// RecordReferralSubmitted increments the referrals submitted counter
func (m *Metrics) RecordReferralSubmitted() {
	m.ReferralsSubmitted.Inc()
}

// RecordStatusTransition increments the transition counter for a target status
func (m *Metrics) RecordStatusTransition(toStatus string) {
	m.StatusTransitions.WithLabelValues(toStatus).Inc()
}

// RecordFollowUpFlagged increments the stale-referral counter
func (m *Metrics) RecordFollowUpFlagged() {
	m.FollowUpsFlagged.Inc()
}

// RecordMilestoneUnlocked increments the tier-unlock counter
func (m *Metrics) RecordMilestoneUnlocked() {
	m.MilestonesUnlocked.Inc()
}

// RecordTaxThresholdCrossed increments the threshold-cross counter
func (m *Metrics) RecordTaxThresholdCrossed() {
	m.TaxThresholdsCrossed.Inc()
}

// RecordNotificationEnqueued increments the enqueue counter for a type
func (m *Metrics) RecordNotificationEnqueued(notificationType string) {
	m.NotificationsEnqueued.WithLabelValues(notificationType).Inc()
}

// RecordNotificationDispatched increments the dispatch counter for a channel
func (m *Metrics) RecordNotificationDispatched(channel string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.NotificationsDispatched.WithLabelValues(channel, outcome).Inc()
}

// RecordSweepDuration observes one sweep run
func (m *Metrics) RecordSweepDuration(d time.Duration) {
	m.SweepDuration.Observe(d.Seconds())
}
