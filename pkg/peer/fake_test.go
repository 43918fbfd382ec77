package peer

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
	"github.com/rtcmeet/rtcmeet/pkg/api"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
)

// fakeConn pretends to connect as soon as it has both descriptions and a remote candidate.
type fakeConn struct {
	id string

	mu         sync.Mutex
	local      *webrtc.SessionDescription
	remote     *webrtc.SessionDescription
	candidates []webrtc.ICECandidateInit
	tracks     int
	closed     bool
	connected  bool
	failRemote error
	// gate holds SetRemoteDescription until closed
	gate    chan struct{}
	entered bool

	onICE   func(*webrtc.ICECandidateInit)
	onTrack func(RemoteTrack)
	onState func(webrtc.PeerConnectionState)
}

func (c *fakeConn) AddTracks(stream *LocalStream) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks += len(stream.Tracks())
	return nil
}

func (c *fakeConn) describe(t webrtc.SDPType) (webrtc.SessionDescription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return webrtc.SessionDescription{}, errors.New("closed")
	}
	sdp := webrtc.SessionDescription{Type: t, SDP: t.String() + " from " + c.id}
	c.local = &sdp
	onICE := c.onICE
	c.mu.Unlock()
	go func() {
		onICE(&webrtc.ICECandidateInit{Candidate: "candidate:" + c.id})
		onICE(nil)
	}()
	c.maybeConnect()
	return sdp, nil
}

func (c *fakeConn) CreateOffer() (webrtc.SessionDescription, error) {
	return c.describe(webrtc.SDPTypeOffer)
}

func (c *fakeConn) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.describe(webrtc.SDPTypeAnswer)
}

func (c *fakeConn) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	c.mu.Lock()
	c.entered = true
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("peer connection closed")
	}
	if c.failRemote != nil {
		c.mu.Unlock()
		return c.failRemote
	}
	c.remote = &sdp
	c.mu.Unlock()
	c.maybeConnect()
	return nil
}

func (c *fakeConn) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	c.mu.Lock()
	c.candidates = append(c.candidates, candidate)
	c.mu.Unlock()
	c.maybeConnect()
	return nil
}

func (c *fakeConn) maybeConnect() {
	c.mu.Lock()
	if c.connected || c.closed || c.local == nil || c.remote == nil || len(c.candidates) == 0 {
		c.mu.Unlock()
		return
	}
	c.connected = true
	onState := c.onState
	c.mu.Unlock()
	go onState(webrtc.PeerConnectionStateConnected)
}

func (c *fakeConn) OnICECandidate(fn func(*webrtc.ICECandidateInit)) { c.onICE = fn }
func (c *fakeConn) OnTrack(fn func(RemoteTrack))                     { c.onTrack = fn }
func (c *fakeConn) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	c.onState = fn
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) inRemote() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entered
}

func (c *fakeConn) trackCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracks
}

func (c *fakeConn) remoteSDP() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remote == nil {
		return ""
	}
	return c.remote.SDP
}

func (c *fakeConn) remoteCandidates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.candidates)
}

// fakeNet makes fake connections and remembers them.
type fakeNet struct {
	id         string
	failRemote error
	gate       chan struct{}

	mu    sync.Mutex
	conns []*fakeConn
}

func (n *fakeNet) newConn() (Conn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := &fakeConn{id: n.id, failRemote: n.failRemote, gate: n.gate}
	n.conns = append(n.conns, c)
	return c, nil
}

func (n *fakeNet) all() []*fakeConn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.conns)
}

func (n *fakeNet) last() *fakeConn {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.conns) == 0 {
		return nil
	}
	return n.conns[len(n.conns)-1]
}

// recorder is a Signaler that keeps everything sent.
type recorder struct {
	mu  sync.Mutex
	out []api.Out
}

func (r *recorder) Send(t api.PT, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, api.Out{T: t, Payload: payload})
	return nil
}

func (r *recorder) packets(t api.PT) (out []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.out {
		if o.T == t {
			out = append(out, o.Payload)
		}
	}
	return
}

func (r *recorder) signals(typ api.SignalType) (out []api.SignalRequest) {
	for _, p := range r.packets(api.Signal) {
		if rq := p.(api.SignalRequest); rq.Type == typ {
			out = append(out, rq)
		}
	}
	return
}

// collector keeps the engine events.
type collector struct {
	mu     sync.Mutex
	events []Event
}

var allKinds = []EventKind{RoomJoined, ParticipantsUpdated, PeerJoined, PeerLeft, StreamAdded,
	SessionState, PeerRemoved, Failed, ServerError, Disconnected}

func collect(e *Engine) *collector {
	c := &collector{}
	for _, k := range allKinds {
		e.On(k, func(ev Event) {
			c.mu.Lock()
			c.events = append(c.events, ev)
			c.mu.Unlock()
		})
	}
	return c
}

func (c *collector) of(kind EventKind) (out []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range c.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return
}

func in(t api.PT, payload any) api.In {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return api.In{T: t, Payload: raw}
}

func sdp(t webrtc.SDPType, text string) json.RawMessage {
	raw, _ := json.Marshal(webrtc.SessionDescription{Type: t, SDP: text})
	return raw
}

func candidate(text string) json.RawMessage {
	raw, _ := json.Marshal(webrtc.ICECandidateInit{Candidate: text})
	return raw
}

func users(ids ...string) []api.User {
	out := make([]api.User, len(ids))
	for i, id := range ids {
		out[i] = api.User{Id: id, Username: "user " + id}
	}
	return out
}

func eventually(t *testing.T, what string, fn func() bool) {
	t.Helper()
	for i := 0; i < 150; i++ {
		if fn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timeout: %v", what)
}

func newTestEngine(t *testing.T, id string, publish bool, mod ...func(*Options)) (*Engine, *recorder, *fakeNet) {
	t.Helper()
	var stream *LocalStream
	if publish {
		s, err := NewLocalStream("stream-" + id)
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		stream = s
	}
	net := &fakeNet{id: id}
	rec := &recorder{}
	opts := Options{
		Self:    api.User{Id: id, Username: "user " + id},
		Stream:  stream,
		NewConn: net.newConn,
		Log:     logger.Nop(),
	}
	for _, m := range mod {
		m(&opts)
	}
	e := New(rec, opts)
	t.Cleanup(e.Close)
	return e, rec, net
}
