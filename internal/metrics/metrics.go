// Package metrics collects Prometheus metrics for the connector process:
// WebSocket connection state and IPC delivery, adapted from the teacher's
// websocket_metrics.go gauge/counter/histogram idiom.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Connector collects metrics for the market-data stream client and the
// inter-process event bus it feeds.
type Connector struct {
	// WebSocket connection metrics.
	activeConnections   prometheus.Gauge
	connectionTotal     prometheus.Counter
	reconnectTotal      prometheus.Counter
	connectionDurations prometheus.Histogram

	// Stream message metrics.
	messagesReceived prometheus.Counter
	messageErrors    prometheus.Counter
	messageLatency   prometheus.Histogram

	// IPC metrics.
	ipcMessagesSent  prometheus.Counter
	ipcSendFailures  prometheus.Counter
	fanInTimeouts    prometheus.Counter
	fanInReceiveSize prometheus.Histogram

	connectionStartTimes map[string]time.Time
	connectionMu         sync.RWMutex
}

// New builds a Connector and registers its collectors with registry.
func New(registry prometheus.Registerer) *Connector {
	m := &Connector{
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mdcore_stream_active_connections",
			Help: "Number of active exchange WebSocket connections",
		}),
		connectionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdcore_stream_connection_total",
			Help: "Total number of exchange WebSocket connections opened",
		}),
		reconnectTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdcore_stream_reconnect_total",
			Help: "Total number of exchange WebSocket reconnects",
		}),
		connectionDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mdcore_stream_connection_duration_seconds",
			Help:    "Duration of exchange WebSocket connections in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdcore_stream_messages_received_total",
			Help: "Total number of stream frames received",
		}),
		messageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdcore_stream_message_errors_total",
			Help: "Total number of malformed stream payloads",
		}),
		messageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mdcore_stream_message_latency_seconds",
			Help:    "Latency between exchange timestamp and local processing",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10),
		}),
		ipcMessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdcore_ipc_messages_sent_total",
			Help: "Total number of messages published to the event bus",
		}),
		ipcSendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdcore_ipc_send_failures_total",
			Help: "Total number of failed event bus publishes",
		}),
		fanInTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdcore_fanin_timeouts_total",
			Help: "Total number of fan-in receive timeouts",
		}),
		fanInReceiveSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mdcore_fanin_receive_wait_seconds",
			Help:    "Time spent waiting inside a single fan-in RecvTimeout call",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 10),
		}),
		connectionStartTimes: make(map[string]time.Time),
	}

	registry.MustRegister(
		m.activeConnections,
		m.connectionTotal,
		m.reconnectTotal,
		m.connectionDurations,
		m.messagesReceived,
		m.messageErrors,
		m.messageLatency,
		m.ipcMessagesSent,
		m.ipcSendFailures,
		m.fanInTimeouts,
		m.fanInReceiveSize,
	)

	return m
}

// RecordConnectionOpen records a WebSocket connection opening.
func (m *Connector) RecordConnectionOpen(connectionID string) {
	m.activeConnections.Inc()
	m.connectionTotal.Inc()

	m.connectionMu.Lock()
	m.connectionStartTimes[connectionID] = time.Now()
	m.connectionMu.Unlock()
}

// RecordConnectionClose records a WebSocket connection closing.
func (m *Connector) RecordConnectionClose(connectionID string) {
	m.activeConnections.Dec()

	m.connectionMu.Lock()
	startTime, ok := m.connectionStartTimes[connectionID]
	if ok {
		m.connectionDurations.Observe(time.Since(startTime).Seconds())
		delete(m.connectionStartTimes, connectionID)
	}
	m.connectionMu.Unlock()
}

// RecordReconnect records a WebSocket reconnect attempt.
func (m *Connector) RecordReconnect() {
	m.reconnectTotal.Inc()
}

// RecordMessageReceived records an inbound stream frame.
func (m *Connector) RecordMessageReceived() {
	m.messagesReceived.Inc()
}

// RecordMessageError records a malformed inbound stream payload.
func (m *Connector) RecordMessageError() {
	m.messageErrors.Inc()
}

// RecordMessageLatency records exchange-to-local processing latency.
func (m *Connector) RecordMessageLatency(latency time.Duration) {
	m.messageLatency.Observe(latency.Seconds())
}

// RecordIPCSend records a successful event bus publish.
func (m *Connector) RecordIPCSend() {
	m.ipcMessagesSent.Inc()
}

// RecordIPCSendFailure records a failed event bus publish.
func (m *Connector) RecordIPCSendFailure() {
	m.ipcSendFailures.Inc()
}

// RecordFanInTimeout records a fan-in RecvTimeout call that elapsed with
// no message delivered.
func (m *Connector) RecordFanInTimeout(waited time.Duration) {
	m.fanInTimeouts.Inc()
	m.fanInReceiveSize.Observe(waited.Seconds())
}

// RecordFanInReceive records a fan-in RecvTimeout call that delivered a
// message, along with how long it waited.
func (m *Connector) RecordFanInReceive(waited time.Duration) {
	m.fanInReceiveSize.Observe(waited.Seconds())
}

// GetActiveConnections returns the current active connection gauge value.
func (m *Connector) GetActiveConnections() float64 {
	return gaugeValue(m.activeConnections)
}

func gaugeValue(gauge prometheus.Gauge) float64 {
	ch := make(chan prometheus.Metric, 1)
	gauge.Collect(ch)
	metric := <-ch

	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}
