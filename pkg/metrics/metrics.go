// Package metrics holds the Prometheus collectors for wayfarer's external
// dependencies. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wayfarer"

// Status labels for RemoteOperations.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusRejected = "rejected"
)

// Collector holds all metrics for one process.
type Collector struct {
	registry *prometheus.Registry

	RemoteOperations     *prometheus.CounterVec
	RemoteFallbacks      prometheus.Counter
	ImageUploadFallbacks prometheus.Counter
}

// NewCollector creates the collectors on a private registry, so tests can
// build as many as they like.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	remoteOps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_operations_total",
			Help:      "Remote store calls by operation and outcome",
		},
		[]string{"operation", "status"},
	)
	remoteFallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_fallbacks_total",
			Help:      "Remote reads answered from the local store",
		},
	)
	imageFallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_upload_fallbacks_total",
			Help:      "Image uploads that fell back to inline data URLs",
		},
	)

	registry.MustRegister(remoteOps, remoteFallbacks, imageFallbacks)

	return &Collector{
		registry:             registry,
		RemoteOperations:     remoteOps,
		RemoteFallbacks:      remoteFallbacks,
		ImageUploadFallbacks: imageFallbacks,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveRemote(operation, status string) {
	if c == nil {
		return
	}
	c.RemoteOperations.WithLabelValues(operation, status).Inc()
}

func (c *Collector) RemoteFallback() {
	if c == nil {
		return
	}
	c.RemoteFallbacks.Inc()
}

func (c *Collector) ImageFallback() {
	if c == nil {
		return
	}
	c.ImageUploadFallbacks.Inc()
}
