package signal

import (
	"errors"
	"slices"
	"sync"

	"github.com/rtcmeet/rtcmeet/pkg/api"
	"github.com/rtcmeet/rtcmeet/pkg/com"
)

var ErrRoomFull = errors.New("room is full")

// Room is a copy of a room state.
type Room struct {
	Id       string
	Name     string
	Capacity int
	Members  []api.User
}

func (r Room) Has(id string) bool {
	return slices.ContainsFunc(r.Members, func(u api.User) bool { return u.Id == id })
}

type room struct {
	Room

	mu sync.Mutex
	// closed is set when the room is removed from the directory,
	// a stale pointer to it must not be used anymore.
	closed bool
}

func newRoom(id string, capacity int) *room {
	name := id
	if len(name) > 8 {
		name = name[:8]
	}
	return &room{Room: Room{Id: id, Name: "Room " + name, Capacity: max(capacity, 0)}}
}

func (r *room) index(id string) int {
	return slices.IndexFunc(r.Members, func(u api.User) bool { return u.Id == id })
}

func (r *room) snapshot() Room {
	s := r.Room
	s.Members = append(make([]api.User, 0, len(r.Members)), r.Members...)
	return s
}

// Directory is the set of live rooms.
// A room exists while it has members.
type Directory struct {
	rooms *com.Map[string, *room]
}

func NewDirectory() *Directory { return &Directory{rooms: com.NewMap[string, *room]()} }

func (d *Directory) open(id string, capacity int) *room {
	r, _ := d.rooms.GetOrPut(id, func() *room { return newRoom(id, capacity) })
	return r
}

// GetOrCreate returns the room or makes an empty one with the given capacity,
// the capacity of an existing room is not changed.
// An empty room is removed only by RemoveMember, so it should be joined right away.
func (d *Directory) GetOrCreate(id string, capacity int) Room {
	for {
		r := d.open(id, capacity)
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			continue
		}
		s := r.snapshot()
		r.mu.Unlock()
		return s
	}
}

// AddMember adds the identity to the room creating it if needed.
// It is a no-op for members and fails with ErrRoomFull when the room has no space.
// The fn callback is called under the room lock with the resulting state,
// added is false when the identity already was a member.
func (d *Directory) AddMember(id string, capacity int, who api.User, fn func(room Room, added bool)) (Room, error) {
	for {
		r := d.open(id, capacity)
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			continue
		}
		added := false
		if r.index(who.Id) < 0 {
			if r.Capacity > 0 && len(r.Members) >= r.Capacity {
				s := r.snapshot()
				r.mu.Unlock()
				return s, ErrRoomFull
			}
			r.Members = append(r.Members, who)
			added = true
		}
		s := r.snapshot()
		if fn != nil {
			fn(s, added)
		}
		r.mu.Unlock()
		return s, nil
	}
}

// RemoveMember removes the identity from the room and deletes the room when
// nobody is left. The fn callback is called under the room lock with the
// remaining members only when something was removed.
func (d *Directory) RemoveMember(id string, userId string, fn func(room Room)) bool {
	r, err := d.rooms.Find(id)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	i := r.index(userId)
	if i < 0 {
		return false
	}
	r.Members = slices.Delete(r.Members, i, i+1)
	if len(r.Members) == 0 {
		r.closed = true
		d.rooms.RemoveIf(id, func(v *room) bool { return v == r })
	}
	if fn != nil {
		fn(r.snapshot())
	}
	return true
}

// ListMembers returns members in the order they joined, empty for unknown rooms.
func (d *Directory) ListMembers(id string) []api.User {
	r, err := d.rooms.Find(id)
	if err != nil {
		return []api.User{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return []api.User{}
	}
	return r.snapshot().Members
}

func (d *Directory) Exists(id string) bool { return d.rooms.Has(id) }
func (d *Directory) Count() int            { return d.rooms.Len() }
