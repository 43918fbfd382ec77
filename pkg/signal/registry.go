package signal

import (
	"sync"

	"github.com/rtcmeet/rtcmeet/pkg/api"
)

// Registry keeps identities declared by connections.
// Identities are not unique, the same id may be declared by many connections,
// the last one to declare it receives directed signals.
type Registry struct {
	mu      sync.Mutex
	byConn  map[*User]api.User
	holders map[string]*User
}

func NewRegistry() *Registry {
	return &Registry{byConn: map[*User]api.User{}, holders: map[string]*User{}}
}

// Register associates the identity with the connection,
// a previous identity of the connection is replaced.
func (r *Registry) Register(u *User, who api.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byConn[u]; ok && old.Id != who.Id && r.holders[old.Id] == u {
		delete(r.holders, old.Id)
	}
	r.byConn[u] = who
	r.holders[who.Id] = u
}

func (r *Registry) Lookup(u *User) (api.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	who, ok := r.byConn[u]
	return who, ok
}

// ByIdentity returns the connection currently holding the identity.
func (r *Registry) ByIdentity(id string) (*User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.holders[id]
	return u, ok
}

// Unregister removes the connection, it is safe to call for unknown connections.
func (r *Registry) Unregister(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	who, ok := r.byConn[u]
	if !ok {
		return
	}
	delete(r.byConn, u)
	if r.holders[who.Id] == u {
		delete(r.holders, who.Id)
	}
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}
