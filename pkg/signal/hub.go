package signal

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rtcmeet/rtcmeet/pkg/api"
	"github.com/rtcmeet/rtcmeet/pkg/com"
	"github.com/rtcmeet/rtcmeet/pkg/config"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
	"github.com/rtcmeet/rtcmeet/pkg/network/websocket"
)

// Hub holds all the connections of the signaling server.
type Hub struct {
	conf     config.Signal
	users    *com.Map[com.Uid, *User]
	registry *Registry
	rooms    *Directory
	relay    *Relay
	metrics  *Metrics
	upgrader *websocket.Upgrader
	log      *logger.Logger
}

func NewHub(conf config.Signal, reg prometheus.Registerer, log *logger.Logger) *Hub {
	h := &Hub{
		conf:     conf,
		users:    com.NewMap[com.Uid, *User](),
		registry: NewRegistry(),
		rooms:    NewDirectory(),
		upgrader: websocket.NewUpgrader(conf.Origins),
		log:      log,
	}
	h.upgrader.Queue = conf.SendQueue
	h.metrics = NewMetrics(reg, h.rooms.Count, h.users.Len)
	h.relay = NewRelay(h.registry, h.rooms, h.metrics, log)
	return h
}

func (h *Hub) handleUserConnection(w http.ResponseWriter, r *http.Request) {
	id := com.NewUid()
	log := h.log.Extend(h.log.With().Str(logger.ClientField, id.Short()))

	conn, err := h.upgrader.Upgrade(w, r, log)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	u := NewUser(id, conn, log)
	u.onDrop = func() { h.metrics.dropped.WithLabelValues(dropQueue).Inc() }
	h.users.Put(u.Id, u)
	log.Info().Str("addr", conn.RemoteAddr()).Msg("Connected")

	conn.OnMessage = func(m []byte) { h.handle(u, m) }
	conn.Listen()
	<-conn.Done()
	h.Disconnect(u)
}

// handle dispatches an incoming packet of the user.
func (h *Hub) handle(u *User, frame []byte) {
	in, err := api.Decode(frame)
	if err != nil {
		u.SendError(api.ErrCodeMalformed, err.Error(), "")
		return
	}
	switch in.T {
	case api.UserConnect:
		rq, err := api.UnwrapChecked[api.UserConnectRequest](in.Payload)
		if err != nil || rq.Id == "" {
			u.SendError(api.ErrCodeMalformed, "user-connect needs an id", "")
			return
		}
		h.Register(u, *rq)
	case api.JoinRoom:
		rq, err := api.UnwrapChecked[api.JoinRoomRequest](in.Payload)
		if err != nil || rq.RoomId == "" {
			u.SendError(api.ErrCodeMalformed, "join-room needs a roomId", "")
			return
		}
		err = h.JoinRoom(u, *rq)
		switch {
		case errors.Is(err, ErrRoomFull):
			u.SendError(api.ErrCodeRoomFull, err.Error(), rq.RoomId)
		case errors.Is(err, ErrUnregistered):
			u.SendError(api.ErrCodeUnregistered, err.Error(), rq.RoomId)
		}
	case api.LeaveRoom:
		roomId := ""
		if rq := api.Unwrap[api.LeaveRoomRequest](in.Payload); rq != nil {
			roomId = rq.RoomId
		}
		h.LeaveRoom(u, roomId)
	case api.Signal:
		if _, err := h.relay.Relay(u, in.Payload); err != nil {
			u.SendError(api.ErrCodeMalformed, "signal needs to or roomId", "")
		}
	default:
		u.log.Warn().Str("t", in.T.String()).Msg("Unknown packet")
	}
}

// Run is a no-op, the hub works off its connections.
func (h *Hub) Run() {}

// Shutdown closes all the connections.
func (h *Hub) Shutdown(context.Context) error {
	for _, u := range h.users.Values() {
		if c, ok := u.conn.(interface{ Close() }); ok {
			c.Close()
		}
		h.Disconnect(u)
	}
	return nil
}

func (h *Hub) String() string { return "hub" }

// Stats returns the numbers of rooms and registered users.
func (h *Hub) Stats() (rooms int, users int) { return h.rooms.Count(), h.registry.Count() }
