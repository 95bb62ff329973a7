package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "graborgan", Name: "tracking_sessions_active", Help: "Tracking sessions currently ticking"})
	TicksTotal     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "graborgan", Name: "tracking_ticks_total", Help: "Animation ticks processed"})
	DeviationsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "graborgan", Name: "deviations_total", Help: "Deviation signals received from the geo service"})
	ReroutesTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "graborgan", Name: "reroutes_total", Help: "Successful route recalculations spliced into a session"})
	RerouteFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "graborgan", Name: "reroute_failures_total", Help: "Reroute attempts abandoned after a geo call failed"})

	GeoRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "graborgan", Name: "geo_requests_total", Help: "Requests issued to the geo/location services"},
		[]string{"op", "outcome"},
	)
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "graborgan", Name: "upstream_requests_total", Help: "Requests issued to the hospital microservices"},
		[]string{"service", "outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "graborgan", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "graborgan",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
