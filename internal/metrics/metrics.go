package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_notifications_total",
			Help: "Outbound notifications by kind and result",
		},
		[]string{"kind", "result"}, // VOICE|SMS , sent|failed|rejected
	)

	CallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_callbacks_total",
			Help: "Provider webhook callbacks buffered, by type",
		},
		[]string{"type"},
	)

	AckChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_ack_checks_total",
			Help: "ACKCHECK lookups by answer",
		},
		[]string{"result"}, // accepted|rejected|unresolved
	)

	StatusPollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_status_polls_total",
			Help: "STATUS polls served to the driver",
		},
	)

	InboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_inbox_depth",
			Help: "Callback records waiting for the next STATUS poll",
		},
	)

	InboxDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_inbox_dropped_total",
			Help: "Callback records evicted by the inbox size cap",
		},
	)

	DriverPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driver_polls_total",
			Help: "Driver STATUS polls by result",
		},
		[]string{"result"}, // ok|relay_error|transport_error|skipped
	)

	DriverAcksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driver_acks_total",
			Help: "Driver acknowledge attempts by result",
		},
		[]string{"result"}, // accepted|rejected|invalid
	)
)

var registerOnce sync.Once

// MustRegister registers every collector once; later calls are no-ops so the
// serve and driver commands can share a process in tests.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			NotificationsTotal,
			CallbacksTotal,
			AckChecksTotal,
			StatusPollsTotal,
			InboxDepth,
			InboxDroppedTotal,
			DriverPollsTotal,
			DriverAcksTotal,
		)
	})
}
