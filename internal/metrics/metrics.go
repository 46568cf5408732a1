package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gympass_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gympass_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CheckinTokensIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gympass_checkin_tokens_issued_total",
			Help: "Total number of check-in tokens issued",
		},
	)

	TokenValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gympass_token_validations_total",
			Help: "Total number of token validation attempts by result",
		},
		[]string{"result"},
	)

	CheckinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gympass_checkins_total",
			Help: "Total number of recorded check-in events",
		},
		[]string{"source"},
	)

	CapacityBlockedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gympass_capacity_blocked_total",
			Help: "Total number of subscription sign-ups rejected by capacity admission",
		},
	)

	SubscriptionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gympass_subscriptions_created_total",
			Help: "Total number of subscriptions created",
		},
		[]string{"plan"},
	)

	BillingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gympass_billing_events_total",
			Help: "Total number of billing webhook events applied",
		},
		[]string{"type"},
	)

	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gympass_realtime_connections",
			Help: "Currently open staff dashboard stream connections",
		},
	)

	RealtimeEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gympass_realtime_events_total",
			Help: "Total number of check-in events relayed to dashboard streams",
		},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gympass_rate_limited_requests_total",
			Help: "Total number of requests rejected by the per-client rate limiter",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordTokenIssued() {
	CheckinTokensIssuedTotal.Inc()
}

func RecordTokenValidation(result string) {
	TokenValidationsTotal.WithLabelValues(result).Inc()
}

func RecordCheckin(source string) {
	CheckinsTotal.WithLabelValues(source).Inc()
}

func RecordCapacityBlocked() {
	CapacityBlockedTotal.Inc()
}

func RecordSubscription(planCode string) {
	SubscriptionsCreatedTotal.WithLabelValues(planCode).Inc()
}

func RecordBillingEvent(eventType string) {
	BillingEventsTotal.WithLabelValues(eventType).Inc()
}

func RecordRealtimeEvent() {
	RealtimeEventsTotal.Inc()
}

func RecordRateLimited() {
	RateLimitedTotal.Inc()
}
