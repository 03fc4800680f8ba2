// Package metrics exposes prometheus collectors for plugin traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks plugin channel traffic.
type Metrics struct {
	registry *prometheus.Registry

	messagesSent      *prometheus.CounterVec
	responses         *prometheus.CounterVec
	staleResponses    *prometheus.CounterVec
	unknownResponses  prometheus.Counter
	pluginsDiscovered prometheus.Gauge
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oxbow",
			Subsystem: "plugin",
			Name:      "messages_sent_total",
			Help:      "Messages sent to plugins, by message type.",
		}, []string{"type"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oxbow",
			Subsystem: "plugin",
			Name:      "responses_total",
			Help:      "Responses received from plugins, by response type.",
		}, []string{"type"}),
		staleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oxbow",
			Subsystem: "plugin",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because their origin event was superseded.",
		}, []string{"type"}),
		unknownResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oxbow",
			Subsystem: "plugin",
			Name:      "unknown_responses_total",
			Help:      "Responses with an unrecognized type.",
		}),
		pluginsDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oxbow",
			Subsystem: "plugin",
			Name:      "discovered",
			Help:      "Plugin directories discovered at startup.",
		}),
	}

	m.registry.MustRegister(
		m.messagesSent,
		m.responses,
		m.staleResponses,
		m.unknownResponses,
		m.pluginsDiscovered,
	)
	return m
}

// MessageSent records an outbound message.
func (m *Metrics) MessageSent(msgType string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(msgType).Inc()
}

// ResponseReceived records an inbound response.
func (m *Metrics) ResponseReceived(respType string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(respType).Inc()
}

// StaleResponse records a discarded stale response.
func (m *Metrics) StaleResponse(respType string) {
	if m == nil {
		return
	}
	m.staleResponses.WithLabelValues(respType).Inc()
}

// UnknownResponse records a response with an unrecognized type.
func (m *Metrics) UnknownResponse() {
	if m == nil {
		return
	}
	m.unknownResponses.Inc()
}

// PluginsDiscovered sets the number of discovered plugins.
func (m *Metrics) PluginsDiscovered(n int) {
	if m == nil {
		return
	}
	m.pluginsDiscovered.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metrics in text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
