package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newspulse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newspulse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Сборщик
	FetchRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newspulse_fetch_runs_total",
			Help: "Total number of fetch runs over all enabled sources",
		},
	)

	FetchRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newspulse_fetch_run_duration_seconds",
			Help:    "Duration of a fetch run over all enabled sources",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	SourceRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newspulse_source_runs_total",
			Help: "Per-source fetch outcomes",
		},
		[]string{"source", "status"},
	)

	ArticlesStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newspulse_articles_stored_total",
			Help: "Candidate articles by outcome: new or duplicate",
		},
		[]string{"outcome"},
	)

	FetchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "newspulse_fetches_in_flight",
			Help: "Number of source fetches currently running",
		},
	)

	// Классификатор
	ClassifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newspulse_articles_classified_total",
			Help: "Classified articles by result",
		},
		[]string{"status"},
	)

	// Публикация событий
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newspulse_events_published_total",
			Help: "Total number of published events",
		},
		[]string{"subject", "status"},
	)
)

// Значения меток статуса для счетчиков
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
