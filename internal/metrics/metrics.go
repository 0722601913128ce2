// Package metrics exposes Prometheus collectors for outbound HTTP traffic.
package metrics

import (
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP holds the request-level collectors shared by the page fetcher and the Wikidata client.
type HTTP struct {
	requestsTotal      *prometheus.CounterVec
	responseBytesTotal *prometheus.CounterVec
	rateLimitDelays    *prometheus.HistogramVec
}

// NewHTTP registers the HTTP collectors on reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	factory := promauto.With(reg)
	return &HTTP{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "castelos_http_requests_total",
				Help: "Total number of outbound HTTP requests, labeled by site and status.",
			},
			[]string{"site", "status"},
		),
		responseBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "castelos_http_response_bytes_total",
				Help: "Total number of response bytes read, labeled by site.",
			},
			[]string{"site"},
		),
		rateLimitDelays: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "castelos_rate_limit_delay_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"site"},
		),
	}
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveRequest counts one request and the bytes it returned. A nil receiver is a no-op.
func (m *HTTP) ObserveRequest(rawURL, status string, bytesRead int) {
	if m == nil {
		return
	}
	site := SanitizeSite(rawURL)
	m.requestsTotal.WithLabelValues(site, status).Inc()
	if bytesRead > 0 {
		m.responseBytesTotal.WithLabelValues(site).Add(float64(bytesRead))
	}
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func (m *HTTP) ObserveRateLimitDelay(host string, waited time.Duration) {
	if m == nil {
		return
	}
	m.rateLimitDelays.WithLabelValues(strings.ToLower(host)).Observe(waited.Seconds())
}
