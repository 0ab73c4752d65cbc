package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fasttodo_logins_total",
		Help: "Total login attempts",
	}, []string{"status"})

	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fasttodo_registrations_total",
		Help: "New user registrations",
	})

	TodosCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fasttodo_todos_created_total",
		Help: "Total todos created",
	})

	TodosCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fasttodo_todos_completed_total",
		Help: "Total todos marked complete",
	})

	TodosDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fasttodo_todos_deleted_total",
		Help: "Total todos deleted",
	})

	AIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fasttodo_ai_requests_total",
		Help: "AI API calls",
	}, []string{"status"})

	// Message counts stand in for token counts; the live streaming API does
	// not expose token usage per chunk.
	AIMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fasttodo_ai_tokens_used_total",
		Help: "AI message consumption by direction",
	}, []string{"type"})

	AILatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "fasttodo_ai_latency_seconds",
		Help: "AI session duration",
	})

	AIErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fasttodo_ai_errors_total",
		Help: "AI failures by type",
	}, []string{"error_type"})
)

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
