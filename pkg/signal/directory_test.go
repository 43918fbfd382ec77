package signal

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rtcmeet/rtcmeet/pkg/api"
)

func user(id string) api.User { return api.User{Id: id, Username: "user " + id} }

func ids(users []api.User) (out []string) {
	for _, u := range users {
		out = append(out, u.Id)
	}
	return
}

func TestDirectoryRoomLifecycle(t *testing.T) {
	d := NewDirectory()

	room, err := d.AddMember("2b6c1a90-77", 0, user("a"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if room.Name != "Room 2b6c1a90" {
		t.Errorf("unexpected default name %v", room.Name)
	}
	if _, err = d.AddMember("2b6c1a90-77", 0, user("a"), nil); err != nil {
		t.Fatal(err)
	}
	_, _ = d.AddMember("2b6c1a90-77", 0, user("b"), nil)
	if got := fmt.Sprint(ids(d.ListMembers("2b6c1a90-77"))); got != "[a b]" {
		t.Errorf("members %v, want [a b]", got)
	}

	if d.RemoveMember("2b6c1a90-77", "x", nil) {
		t.Errorf("removed a non-member")
	}
	d.RemoveMember("2b6c1a90-77", "a", nil)
	if !d.Exists("2b6c1a90-77") {
		t.Errorf("room with a member should exist")
	}
	d.RemoveMember("2b6c1a90-77", "b", nil)
	if d.Exists("2b6c1a90-77") || d.Count() != 0 {
		t.Errorf("empty room should be deleted")
	}
	if members := d.ListMembers("2b6c1a90-77"); members == nil || len(members) != 0 {
		t.Errorf("unknown room should have no members, got %v", members)
	}

	room, _ = d.AddMember("2b6c1a90-77", 3, user("c"), nil)
	if room.Capacity != 3 || len(room.Members) != 1 {
		t.Errorf("expected a fresh room, got %+v", room)
	}
}

func TestDirectoryShortName(t *testing.T) {
	d := NewDirectory()
	if r := d.GetOrCreate("r1", 0); r.Name != "Room r1" {
		t.Errorf("unexpected name %v", r.Name)
	}
}

func TestDirectoryCapacity(t *testing.T) {
	d := NewDirectory()
	_, _ = d.AddMember("r1", 2, user("a"), nil)
	_, _ = d.AddMember("r1", 10, user("c"), nil)

	called := false
	room, err := d.AddMember("r1", 2, user("b"), func(Room, bool) { called = true })
	if !errors.Is(err, ErrRoomFull) {
		t.Errorf("expected room full, got %v", err)
	}
	if called {
		t.Errorf("callback for a rejected join")
	}
	if got := fmt.Sprint(ids(room.Members)); got != "[a c]" {
		t.Errorf("members %v, want [a c]", got)
	}
	// a member can repeat the join of a full room
	if _, err = d.AddMember("r1", 2, user("a"), nil); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestDirectoryConcurrentCreate(t *testing.T) {
	d := NewDirectory()
	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, _ = d.AddMember("r1", 0, user(fmt.Sprint(i)), nil)
		}(i)
	}
	wg.Wait()
	if d.Count() != 1 || len(d.ListMembers("r1")) != n {
		t.Errorf("expected one room with %v members, got %v rooms %v members", n, d.Count(), len(d.ListMembers("r1")))
	}
}

func TestDirectoryConcurrentJoinLeave(t *testing.T) {
	d := NewDirectory()
	const n = 20
	const capacity = 5
	var wg sync.WaitGroup
	var mu sync.Mutex
	peak := 0
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := d.AddMember("r1", capacity, user(id), func(room Room, _ bool) {
					mu.Lock()
					peak = max(peak, len(room.Members))
					mu.Unlock()
				})
				if err == nil {
					d.RemoveMember("r1", id, nil)
				}
			}
		}(fmt.Sprint(i))
	}
	wg.Wait()
	if d.Exists("r1") {
		t.Errorf("room should be gone, has %v", d.ListMembers("r1"))
	}
	if peak > capacity {
		t.Errorf("room had %v members over the capacity %v", peak, capacity)
	}
}
