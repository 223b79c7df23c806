// Package telemetry - метрики Prometheus; /metrics отдается отдельным обработчиком роутера.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP-метрики; path - шаблон маршрута gin, а не сырой URL
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// Жизненный цикл объявлений
var (
	ApartmentTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apartment_transitions_total",
			Help: "Apartment lifecycle operations applied, by action.",
		},
		[]string{"action"},
	)

	ApartmentViewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "apartment_views_total",
			Help: "Total number of recorded apartment views.",
		},
	)

	FeaturedExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "featured_expired_total",
			Help: "Total number of featured listings expired by the sweep.",
		},
	)
)

// Синхронизация поискового индекса и поиск
var (
	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Search outbox entries relayed, by result (ok, error).",
		},
		[]string{"result"},
	)

	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Search engine queries issued, by kind (search, filter, suggest, autocomplete).",
		},
		[]string{"kind"},
	)
)
