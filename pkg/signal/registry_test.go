package signal

import (
	"testing"

	"github.com/rtcmeet/rtcmeet/pkg/api"
	"github.com/rtcmeet/rtcmeet/pkg/com"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
)

func newTestUser() (*User, *sink) {
	s := &sink{}
	return NewUser(com.NewUid(), s, logger.Nop()), s
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, _ := newTestUser()
	b, _ := newTestUser()

	r.Unregister(a)
	if _, ok := r.Lookup(a); ok {
		t.Fatalf("unknown connection found")
	}

	r.Register(a, api.User{Id: "1", Username: "A"})
	r.Register(a, api.User{Id: "2", Username: "A2"})
	if who, _ := r.Lookup(a); who.Id != "2" {
		t.Errorf("re-register should overwrite, got %v", who)
	}
	if _, ok := r.ByIdentity("1"); ok {
		t.Errorf("old identity should be released")
	}

	r.Register(b, api.User{Id: "2", Username: "B"})
	if c, _ := r.ByIdentity("2"); c != b {
		t.Errorf("identity should point to the last registrant")
	}
	if r.Count() != 2 {
		t.Errorf("expected 2 connections, got %v", r.Count())
	}

	r.Unregister(a)
	if c, ok := r.ByIdentity("2"); !ok || c != b {
		t.Errorf("unregister of a stale holder should keep the identity of b")
	}
	r.Unregister(b)
	r.Unregister(b)
	if _, ok := r.ByIdentity("2"); ok || r.Count() != 0 {
		t.Errorf("registry should be empty, has %v", r.Count())
	}
}
