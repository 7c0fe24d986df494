// Package metrics exposes the Prometheus instrumentation that
// pkg/connection increments (pkg/dnet itself records nothing): counters for
// packets sent/dropped, notify outcomes, established connections, and
// window back-pressure.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every counter/gauge this module increments. The zero
// value is not usable; construct with New, which also registers every
// metric against reg (pass prometheus.DefaultRegisterer for the common
// case, or a private registry in tests to avoid duplicate-registration
// panics across parallel test packages).
type Metrics struct {
	PacketsSent            prometheus.Counter
	PacketsDropped         prometheus.Counter
	NotifySuccessTotal     prometheus.Counter
	NotifyFailureTotal     prometheus.Counter
	ConnectionsEstablished prometheus.Counter
	WindowFullTotal        prometheus.Counter
	ActiveQueries          prometheus.Gauge
	BytesSent              prometheus.Counter
	BytesReceived          prometheus.Counter
}

// New builds and registers the metric set under reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dnet_packets_sent_total",
			Help: "Datagrams sent, out-of-band and raw DNet alike.",
		}),
		PacketsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dnet_packets_dropped_total",
			Help: "Raw DNet packets dropped for an out-of-window sequence.",
		}),
		NotifySuccessTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dnet_notify_success_total",
			Help: "Notify events reporting transmit_success=true.",
		}),
		NotifyFailureTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dnet_notify_failure_total",
			Help: "Notify events reporting transmit_success=false.",
		}),
		ConnectionsEstablished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dnet_connections_established_total",
			Help: "ConnectionEstablished events emitted.",
		}),
		WindowFullTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dnet_window_full_total",
			Help: "Times an outbound DataPacket was held back by a full send window.",
		}),
		ActiveQueries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dnet_master_active_queries",
			Help: "In-flight MasterClient queries awaiting a response.",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dnet_bytes_sent_total",
			Help: "Bytes written to the socket.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dnet_bytes_received_total",
			Help: "Bytes read from the socket.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.PacketsSent, m.PacketsDropped, m.NotifySuccessTotal, m.NotifyFailureTotal,
			m.ConnectionsEstablished, m.WindowFullTotal, m.ActiveQueries,
			m.BytesSent, m.BytesReceived,
		)
	}
	return m
}

// Noop returns a Metrics backed by unregistered collectors, usable as a
// default when a caller doesn't want a Prometheus registry at all.
func Noop() *Metrics {
	return New(nil)
}
