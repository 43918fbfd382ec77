package peer

import (
	"sync"

	"github.com/rtcmeet/rtcmeet/pkg/api"
)

type EventKind string

const (
	RoomJoined          EventKind = "room-joined"
	ParticipantsUpdated EventKind = "participants-updated"
	PeerJoined          EventKind = "user-joined"
	PeerLeft            EventKind = "user-left"
	StreamAdded         EventKind = "stream"
	SessionState        EventKind = "session-state"
	PeerRemoved         EventKind = "peer-removed"
	Failed              EventKind = "failed"
	ServerError         EventKind = "error"
	Disconnected        EventKind = "disconnected"
)

// Event is what the engine reports to its listeners.
// Only the fields of the event kind are set.
type Event struct {
	Kind         EventKind
	PeerId       string
	State        State
	Room         *api.RoomJoinedResponse
	Participants []api.User
	Track        *RemoteTrack
	Err          error
}

type Listener func(Event)

// Subscription identifies one listener, it is used to remove exactly that listener.
type Subscription struct {
	kind EventKind
	id   uint64
}

type listener struct {
	id uint64
	fn Listener
}

// events is a set of listeners by the event kind.
// Listeners are called from the engine goroutines, so they must not block.
type events struct {
	mu        sync.Mutex
	next      uint64
	listeners map[EventKind][]listener
}

// On adds the listener of the event kind.
func (e *events) On(kind EventKind, fn Listener) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = map[EventKind][]listener{}
	}
	e.next++
	e.listeners[kind] = append(e.listeners[kind], listener{id: e.next, fn: fn})
	return Subscription{kind: kind, id: e.next}
}

// Off removes the listener of the subscription, false if it was not there.
func (e *events) Off(sub Subscription) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ll := e.listeners[sub.kind]
	for i, l := range ll {
		if l.id == sub.id {
			e.listeners[sub.kind] = append(ll[:i:i], ll[i+1:]...)
			return true
		}
	}
	return false
}

func (e *events) emit(ev Event) {
	e.mu.Lock()
	ll := append([]listener(nil), e.listeners[ev.Kind]...)
	e.mu.Unlock()
	for _, l := range ll {
		l.fn(ev)
	}
}
