package signal

import (
	"errors"

	"github.com/rtcmeet/rtcmeet/pkg/api"
)

var ErrUnregistered = errors.New("no user identity, send user-connect first")

// Register declares the identity of the connection.
// Changing the identity while in a room moves the membership to the new identity.
func (h *Hub) Register(u *User, who api.User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return
	}
	h.registry.Register(u, who)
	u.log.Info().Str("uid", who.Id).Str("name", who.Username).Msg("User registered")
	if u.room != "" && u.as.Id != who.Id {
		room := u.room
		h.leave(u)
		if err := h.join(u, room, h.conf.Rooms.CapacityFor(0), who); err != nil {
			u.log.Warn().Err(err).Str("room", room).Msg("couldn't rejoin with the new identity")
		}
	}
}

// JoinRoom puts the connection into the room.
// The previous room of the connection is left only when the new room accepts it,
// a rejected join changes nothing, the identity of the request included.
// Between the two steps the identity is listed in both rooms.
func (h *Hub) JoinRoom(u *User, rq api.JoinRoomRequest) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	who, ok := h.registry.Lookup(u)
	if rq.UserId != "" {
		if !ok || who.Id != rq.UserId || rq.Username != "" {
			who.Username = rq.Username
		}
		who.Id, ok = rq.UserId, true
	}
	if !ok {
		return ErrUnregistered
	}

	prev, prevAs := u.room, u.as
	if err := h.join(u, rq.RoomId, h.conf.Rooms.CapacityFor(rq.MaxParticipants), who); err != nil {
		if errors.Is(err, ErrRoomFull) {
			h.metrics.joins.WithLabelValues(joinFull).Inc()
		}
		u.log.Info().Err(err).Str("room", rq.RoomId).Msg("Join rejected")
		return err
	}
	h.metrics.joins.WithLabelValues(joinOk).Inc()

	if prev != "" && (prev != rq.RoomId || prevAs.Id != who.Id) {
		h.removeMember(prev, prevAs)
	}
	return nil
}

// join adds the identity to the room and notifies everyone concerned.
// The identity is registered only once the room accepts it.
// Notifications go out under the room lock, so all members see the same order of changes.
func (h *Hub) join(u *User, roomId string, capacity int, who api.User) error {
	_, err := h.rooms.AddMember(roomId, capacity, who, func(room Room, added bool) {
		h.registry.Register(u, who)
		u.Send(api.RoomJoined, api.RoomJoinedResponse{
			Id:              room.Id,
			Name:            room.Name,
			Participants:    room.Members,
			MaxParticipants: room.Capacity,
		})
		if added {
			for _, m := range room.Members {
				if m.Id == who.Id {
					continue
				}
				if c, ok := h.registry.ByIdentity(m.Id); ok && c != u {
					c.Send(api.UserJoined, who)
				}
			}
		}
		u.Send(api.RoomParticipants, room.Members)
	})
	if err != nil {
		return err
	}
	u.room, u.as = roomId, who
	u.log.Info().Str("room", roomId).Str("uid", who.Id).Msg("Joined")
	return nil
}

// LeaveRoom takes the connection out of its room.
// A leave for some other room than the current one is ignored.
func (h *Hub) LeaveRoom(u *User, roomId string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.room == "" || (roomId != "" && roomId != u.room) {
		u.log.Debug().Str("room", roomId).Msg("Leave of a room the user is not in")
		return
	}
	h.leave(u)
}

func (h *Hub) leave(u *User) {
	if u.room == "" {
		return
	}
	h.removeMember(u.room, u.as)
	u.log.Info().Str("room", u.room).Msg("Left")
	u.room, u.as = "", api.User{}
}

func (h *Hub) removeMember(roomId string, who api.User) {
	h.rooms.RemoveMember(roomId, who.Id, func(room Room) {
		for _, m := range room.Members {
			if c, ok := h.registry.ByIdentity(m.Id); ok {
				c.Send(api.UserLeft, api.UserLeftResponse{UserId: who.Id})
				c.Send(api.RoomParticipants, room.Members)
			}
		}
	})
}

// Disconnect tears the connection down, only the first call has any effect.
func (h *Hub) Disconnect(u *User) {
	u.once.Do(func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.closed = true
		h.leave(u)
		h.registry.Unregister(u)
		h.users.RemoveByKey(u.Id)
		u.log.Info().Msg("Disconnected")
	})
}
