// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edu",
		Subsystem: "auth",
		Name:      "events_total",
		Help:      "Authentication operations by outcome.",
	}, []string{"op", "outcome"})

	webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edu",
		Subsystem: "payments",
		Name:      "webhook_total",
		Help:      "Payment webhook deliveries by outcome.",
	}, []string{"outcome"})

	catalogWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edu",
		Subsystem: "catalog",
		Name:      "writes_total",
		Help:      "Catalog mutations by outcome.",
	}, []string{"outcome"})
)

// AuthEvent counts one auth operation (login, refresh, logout) and its outcome.
func AuthEvent(op, outcome string) { authEvents.WithLabelValues(op, outcome).Inc() }

// WebhookEvent counts one payment callback.
func WebhookEvent(outcome string) { webhookEvents.WithLabelValues(outcome).Inc() }

// CatalogWrite counts one catalog mutation attempt.
func CatalogWrite(outcome string) { catalogWrites.WithLabelValues(outcome).Inc() }
