package peer

import "testing"

func TestEventsOnOff(t *testing.T) {
	var e events
	var got []string
	first := e.On(Failed, func(Event) { got = append(got, "first") })
	e.On(Failed, func(Event) { got = append(got, "second") })
	e.On(Disconnected, func(Event) { got = append(got, "other") })

	e.emit(Event{Kind: Failed})
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("calls %v", got)
	}

	if !e.Off(first) {
		t.Errorf("the listener should be removed")
	}
	if e.Off(first) {
		t.Errorf("the second removal should do nothing")
	}
	got = nil
	e.emit(Event{Kind: Failed})
	if len(got) != 1 || got[0] != "second" {
		t.Errorf("calls %v", got)
	}
}

func TestEventsListenerCanUnsubscribe(t *testing.T) {
	var e events
	calls := 0
	var sub Subscription
	sub = e.On(PeerLeft, func(Event) { calls++; e.Off(sub) })

	e.emit(Event{Kind: PeerLeft})
	e.emit(Event{Kind: PeerLeft})
	if calls != 1 {
		t.Errorf("calls %v", calls)
	}
}
