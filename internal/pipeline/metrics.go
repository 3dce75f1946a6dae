package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edgegate",
		Subsystem: "pipeline",
		Name:      "dispatch_total",
		Help:      "Dispatched requests by outcome: route class, redirect, or invalid_host.",
	}, []string{"outcome"})

	rateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "edgegate",
		Subsystem: "pipeline",
		Name:      "ratelimit_rejections_total",
		Help:      "Total API requests rejected by the rate limiter.",
	})

	pipelineFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "edgegate",
		Subsystem: "pipeline",
		Name:      "failures_total",
		Help:      "Unexpected stage errors and panics converted to 500 responses.",
	})
)
