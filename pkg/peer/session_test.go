package peer

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "idle"},
		{OfferSent, "offer-sent"},
		{OfferReceived, "offer-received"},
		{Answered, "answered"},
		{Connected, "connected"},
		{Closed, "closed"},
		{State(42), "state(42)"},
	}
	for _, test := range tests {
		if got := test.state.String(); got != test.want {
			t.Errorf("%d: %v, want %v", int(test.state), got, test.want)
		}
	}
}

func TestSessionCloseOnce(t *testing.T) {
	e, _, _ := newTestEngine(t, "a", false)
	events := collect(e)
	c := &fakeConn{id: "a"}
	s := newSession(e, "b", c)

	s.Close()
	s.Close()
	s.Offer(nil)

	if !c.isClosed() || s.State() != Closed {
		t.Errorf("session should be closed")
	}
	if got := events.of(SessionState); len(got) != 1 || got[0].State != Closed {
		t.Errorf("state events %+v", got)
	}
}
