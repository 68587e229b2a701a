package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "animedash",
		Name:      "refresh_total",
		Help:      "Total view refresh cycles by view and outcome.",
	}, []string{"view", "outcome"})

	RefreshDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "animedash",
		Name:      "refresh_duration_seconds",
		Help:      "View refresh cycle duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"view"})

	BackendRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "animedash",
		Name:      "backend_requests_total",
		Help:      "Total backend API requests by path and outcome.",
	}, []string{"path", "outcome"})

	LibraryAnime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "animedash",
		Name:      "library_anime",
		Help:      "Number of anime in the last library snapshot.",
	})

	LibraryEpisodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "animedash",
		Name:      "library_episodes",
		Help:      "Number of episode files in the last library snapshot.",
	})

	LibrarySizeMB = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "animedash",
		Name:      "library_size_megabytes",
		Help:      "Total library size in megabytes.",
	})

	ActiveDownloads = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "animedash",
		Name:      "active_downloads",
		Help:      "Number of download jobs counted as active.",
	})

	ListedJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "animedash",
		Name:      "listed_jobs",
		Help:      "Number of download jobs shown in the active downloads feed.",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "animedash",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	WebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "animedash",
		Name:      "websocket_clients",
		Help:      "Number of connected live update clients.",
	})
)

// Register adds every collector to reg
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RefreshTotal,
		RefreshDuration,
		BackendRequestsTotal,
		LibraryAnime,
		LibraryEpisodes,
		LibrarySizeMB,
		ActiveDownloads,
		ListedJobs,
		HTTPRequestsTotal,
		WebSocketClients,
	)
}

// ObserveRefresh records one refresh cycle of a view
func ObserveRefresh(view string, seconds float64, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	RefreshTotal.WithLabelValues(view, outcome).Inc()
	RefreshDuration.WithLabelValues(view).Observe(seconds)
}
