package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vod_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vod_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Ladder encoder metrics
	LadderJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vod_ladder_jobs_total",
			Help: "Total number of quality ladder jobs by outcome",
		},
		[]string{"status"},
	)

	RungsEncodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vod_rungs_encoded_total",
			Help: "Total number of successfully encoded ladder rungs",
		},
		[]string{"rung"},
	)

	RungsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vod_rungs_failed_total",
			Help: "Total number of failed ladder rungs",
		},
		[]string{"rung"},
	)

	// Remote asset metrics
	MuxAssetsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vod_mux_assets_created_total",
			Help: "Total number of managed assets created",
		},
	)

	MuxAssetsReplacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vod_mux_assets_replaced_total",
			Help: "Total number of managed assets replaced",
		},
	)

	// Streaming proxy metrics
	ProxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vod_proxy_requests_total",
			Help: "Total number of streaming proxy requests by upstream status",
		},
		[]string{"status"},
	)

	ProxyRangeRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vod_proxy_range_retries_total",
			Help: "Total number of unranged retries after a rejected ranged fetch",
		},
	)

	ProxyBytesStreamedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vod_proxy_bytes_streamed_total",
			Help: "Total bytes streamed through the proxy",
		},
	)
)
