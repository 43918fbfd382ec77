package signal

import "github.com/prometheus/client_golang/prometheus"

const namespace = "rtcmeet"

const (
	joinOk   = "ok"
	joinFull = "full"

	dropUnknownPeer = "unknown-peer"
	dropQueue       = "queue"
	dropMalformed   = "malformed"
)

type Metrics struct {
	joins   *prometheus.CounterVec
	relayed prometheus.Counter
	dropped *prometheus.CounterVec
}

// NewMetrics registers the signaling metrics in the reg.
// The rooms and connections gauges read their values from the functions.
func NewMetrics(reg prometheus.Registerer, rooms, connections func() int) *Metrics {
	m := Metrics{
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_joins_total",
			Help:      "Room join requests by the result.",
		}, []string{"result"}),
		relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_relayed_total",
			Help:      "Signals delivered to recipients.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_dropped_total",
			Help:      "Messages dropped by the reason.",
		}, []string{"reason"}),
	}
	if reg == nil {
		return &m
	}
	reg.MustRegister(
		m.joins,
		m.relayed,
		m.dropped,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms with members.",
		}, func() float64 { return float64(rooms()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open websocket connections.",
		}, func() float64 { return float64(connections()) }),
	)
	return &m
}
