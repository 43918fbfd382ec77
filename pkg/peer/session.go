package peer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rtcmeet/rtcmeet/pkg/api"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
)

// ErrNegotiation marks failures of the native connection.
// A failed session is closed and never retried.
var ErrNegotiation = errors.New("negotiation failure")

type State int

const (
	Idle State = iota
	OfferSent
	OfferReceived
	Answered
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case OfferSent:
		return "offer-sent"
	case OfferReceived:
		return "offer-received"
	case Answered:
		return "answered"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is the negotiation with one remote peer.
// All its negotiation steps run one by one on its own queue.
type Session struct {
	PeerId string

	conn   Conn
	engine *Engine
	q      *queue

	mu      sync.Mutex
	state   State
	remote  bool // a remote description is set
	pending []webrtc.ICECandidateInit

	once sync.Once
	log  *logger.Logger
}

func newSession(e *Engine, peerId string, conn Conn) *Session {
	s := &Session{
		PeerId: peerId,
		conn:   conn,
		engine: e,
		q:      newQueue(),
		log:    e.log.Extend(e.log.With().Str("peer", peerId)),
	}
	conn.OnICECandidate(s.handleICECandidate)
	conn.OnTrack(s.handleTrack)
	conn.OnConnectionStateChange(s.handleConnectionState)
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves the session into the state when it is in one of the from states.
func (s *Session) transition(to State, from ...State) bool {
	s.mu.Lock()
	ok := false
	for _, f := range from {
		if s.state == f {
			ok = true
			break
		}
	}
	if ok {
		s.state = to
	}
	s.mu.Unlock()
	if ok {
		s.log.Debug().Str("state", to.String()).Msg("Session")
		s.engine.emit(Event{Kind: SessionState, PeerId: s.PeerId, State: to})
	}
	return ok
}

func (s *Session) closed() bool { return s.State() == Closed }

// Offer attaches the local media and sends an offer to the peer.
func (s *Session) Offer(stream *LocalStream) {
	s.q.push(func() {
		if s.State() != Idle {
			return
		}
		if stream != nil {
			if err := s.conn.AddTracks(stream); err != nil {
				s.fail(fmt.Errorf("%w: add tracks: %w", ErrNegotiation, err))
				return
			}
		}
		offer, err := s.conn.CreateOffer()
		if s.closed() {
			return
		}
		if err != nil {
			s.fail(fmt.Errorf("%w: create offer: %w", ErrNegotiation, err))
			return
		}
		if !s.transition(OfferSent, Idle) {
			return
		}
		if err = s.engine.signal(s.PeerId, api.Offer, offer); err != nil {
			s.fail(fmt.Errorf("%w: send offer: %w", ErrNegotiation, err))
		}
	})
}

// Answer applies the remote offer and sends back an answer.
func (s *Session) Answer(offer webrtc.SessionDescription, stream *LocalStream) {
	s.q.push(func() {
		if !s.transition(OfferReceived, Idle) {
			s.log.Warn().Str("state", s.State().String()).Msg("Offer in a wrong state, skipped")
			return
		}
		if err := s.setRemote(offer); err != nil {
			s.fail(err)
			return
		}
		if stream != nil {
			if err := s.conn.AddTracks(stream); err != nil {
				s.fail(fmt.Errorf("%w: add tracks: %w", ErrNegotiation, err))
				return
			}
		}
		answer, err := s.conn.CreateAnswer()
		if s.closed() {
			return
		}
		if err != nil {
			s.fail(fmt.Errorf("%w: create answer: %w", ErrNegotiation, err))
			return
		}
		if !s.transition(Answered, OfferReceived) {
			return
		}
		if err = s.engine.signal(s.PeerId, api.Answer, answer); err != nil {
			s.fail(fmt.Errorf("%w: send answer: %w", ErrNegotiation, err))
		}
	})
}

// Accept applies the remote answer to the offer sent before.
func (s *Session) Accept(answer webrtc.SessionDescription) {
	s.q.push(func() {
		if s.State() != OfferSent {
			s.log.Warn().Str("state", s.State().String()).Msg("Answer in a wrong state, skipped")
			return
		}
		if err := s.setRemote(answer); err != nil {
			s.fail(err)
			return
		}
		s.transition(Connected, OfferSent)
	})
}

// AddCandidate applies a remote candidate,
// it waits in the session until there is a remote description.
func (s *Session) AddCandidate(candidate webrtc.ICECandidateInit) {
	s.q.push(func() {
		s.mu.Lock()
		if s.state == Closed {
			s.mu.Unlock()
			return
		}
		if !s.remote {
			s.pending = append(s.pending, candidate)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		if err := s.conn.AddICECandidate(candidate); err != nil && !s.closed() {
			s.fail(fmt.Errorf("%w: add candidate: %w", ErrNegotiation, err))
		}
	})
}

func (s *Session) setRemote(sdp webrtc.SessionDescription) error {
	if err := s.conn.SetRemoteDescription(sdp); err != nil {
		return fmt.Errorf("%w: set remote %v: %w", ErrNegotiation, sdp.Type, err)
	}
	s.mu.Lock()
	s.remote = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, c := range pending {
		if err := s.conn.AddICECandidate(c); err != nil {
			return fmt.Errorf("%w: add candidate: %w", ErrNegotiation, err)
		}
	}
	return nil
}

func (s *Session) handleICECandidate(candidate *webrtc.ICECandidateInit) {
	if candidate == nil || s.closed() {
		return
	}
	if err := s.engine.signal(s.PeerId, api.Candidate, candidate); err != nil {
		s.log.Warn().Err(err).Msg("Candidate was not sent")
	}
}

func (s *Session) handleTrack(track RemoteTrack) {
	if s.closed() {
		return
	}
	s.log.Info().Str("kind", track.Kind.String()).Str("codec", track.Codec).Msg("Remote track")
	s.engine.emit(Event{Kind: StreamAdded, PeerId: s.PeerId, Track: &track})
	s.transition(Connected, OfferSent, Answered)
}

func (s *Session) handleConnectionState(state webrtc.PeerConnectionState) {
	s.log.Debug().Str("native", state.String()).Msg("Session")
	switch state {
	case webrtc.PeerConnectionStateConnected:
		s.transition(Connected, OfferSent, Answered)
	case webrtc.PeerConnectionStateFailed:
		if !s.closed() {
			s.fail(fmt.Errorf("%w: connection failed", ErrNegotiation))
		}
	}
}

// fail closes the session as unreachable.
// Errors of a session closed meanwhile are dropped.
func (s *Session) fail(err error) {
	if s.closed() {
		s.log.Debug().Err(err).Msg("Session error after close")
		return
	}
	s.log.Error().Err(err).Msg("Session failed")
	s.engine.emit(Event{Kind: Failed, PeerId: s.PeerId, Err: err})
	s.engine.drop(s)
}

// Close releases the native connection, only the first call has any effect.
// Tasks still waiting in the queue are dropped and the running one finishes as a no-op.
func (s *Session) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.state = Closed
		s.pending = nil
		s.mu.Unlock()
		s.q.close()
		if err := s.conn.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Close of the native connection")
		}
		s.log.Debug().Str("state", Closed.String()).Msg("Session")
		s.engine.emit(Event{Kind: SessionState, PeerId: s.PeerId, State: Closed})
	})
}
