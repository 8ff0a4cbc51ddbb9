package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts relay outcomes. Silent drop paths are observable here even
// though they never surface to the sender.
type Metrics struct {
	Delivered         prometheus.Counter
	StoredOffline     prometheus.Counter
	DropUnknownSender prometheus.Counter
	DropUnauthorized  prometheus.Counter
	DropPersistence   prometheus.Counter
}

// NewMetrics constructs and registers relay counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courier_relay_delivered_total",
			Help: "Messages persisted and forwarded to a live recipient connection.",
		}),
		StoredOffline: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courier_relay_stored_offline_total",
			Help: "Messages persisted while the recipient had no live connection.",
		}),
		DropUnknownSender: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courier_relay_drop_unknown_sender_total",
			Help: "Sends dropped because the connection never announced an identity.",
		}),
		DropUnauthorized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courier_relay_drop_unauthorized_total",
			Help: "Sends dropped because the pair is not mutually friended.",
		}),
		DropPersistence: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courier_relay_drop_persistence_total",
			Help: "Sends dropped because the message could not be persisted.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Delivered, m.StoredOffline, m.DropUnknownSender, m.DropUnauthorized, m.DropPersistence)
	}
	return m
}
