package signal

import (
	"github.com/rtcmeet/rtcmeet/pkg/api"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
)

// Relay forwards signals between connections.
// It reads only the routing fields of a signal, the rest is passed as is.
type Relay struct {
	registry *Registry
	rooms    *Directory
	metrics  *Metrics
	log      *logger.Logger
}

func NewRelay(registry *Registry, rooms *Directory, metrics *Metrics, log *logger.Logger) *Relay {
	return &Relay{registry: registry, rooms: rooms, metrics: metrics, log: log}
}

// Relay delivers the raw signal to the connection holding the to identity,
// or to every member of the room except the sender when there is no to.
// It returns the number of recipients.
func (r *Relay) Relay(from *User, raw []byte) (int, error) {
	route, err := api.UnwrapChecked[api.SignalRoute](raw)
	if err != nil {
		r.metrics.dropped.WithLabelValues(dropMalformed).Inc()
		return 0, err
	}
	frame := api.Frame(api.Signal, raw)

	switch {
	case route.IsDirect():
		to, ok := r.registry.ByIdentity(route.To)
		if !ok {
			r.metrics.dropped.WithLabelValues(dropUnknownPeer).Inc()
			r.log.Debug().Str("from", route.From).Str("to", route.To).Msg("Signal to unknown peer dropped")
			return 0, nil
		}
		to.SendRaw(frame)
		r.metrics.relayed.Inc()
		return 1, nil
	case route.IsRoom():
		n := 0
		for _, m := range r.rooms.ListMembers(route.RoomId) {
			to, ok := r.registry.ByIdentity(m.Id)
			if !ok || to == from {
				continue
			}
			to.SendRaw(frame)
			n++
		}
		r.metrics.relayed.Add(float64(n))
		return n, nil
	default:
		r.metrics.dropped.WithLabelValues(dropMalformed).Inc()
		return 0, api.ErrMalformed
	}
}
