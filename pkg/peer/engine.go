// Package peer is the client side of rtcmeet.
// The engine follows room membership events from the signaling server
// and runs one negotiation session with every remote participant.
//
// The newcomer of a room offers to everyone already there,
// the members answer. When two offers cross, the peer with
// the greater id drops its offer and answers.
package peer

import (
	"errors"
	"slices"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
	"github.com/rtcmeet/rtcmeet/pkg/api"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
)

var ErrNoRoom = errors.New("not in a room")

// Signaler sends packets to the signaling server.
type Signaler interface {
	Send(t api.PT, payload any) error
}

type Options struct {
	Self api.User
	// Stream is the local media, a peer without it never offers.
	Stream  *LocalStream
	NewConn ConnFactory
	// DropEarlyCandidates discards candidates from peers without a session,
	// they are held until the session appears otherwise.
	DropEarlyCandidates  bool
	MaxPendingCandidates int
	Log                  *logger.Logger
}

type Engine struct {
	events

	self     api.User
	stream   *LocalStream
	newConn  ConnFactory
	signaler Signaler
	opts     Options

	mu           sync.Mutex
	room         string
	participants []api.User
	sessions     map[string]*Session
	early        map[string][]webrtc.ICECandidateInit

	log *logger.Logger
}

func New(signaler Signaler, opts Options) *Engine {
	if opts.Log == nil {
		opts.Log = logger.Default()
	}
	if opts.MaxPendingCandidates <= 0 {
		opts.MaxPendingCandidates = 64
	}
	return &Engine{
		self:     opts.Self,
		stream:   opts.Stream,
		newConn:  opts.NewConn,
		signaler: signaler,
		opts:     opts,
		sessions: map[string]*Session{},
		early:    map[string][]webrtc.ICECandidateInit{},
		log:      opts.Log.Extend(opts.Log.With().Str(logger.ModuleField, "peer")),
	}
}

// Connect declares the identity to the server.
func (e *Engine) Connect() error { return e.signaler.Send(api.UserConnect, e.self) }

func (e *Engine) Join(roomId string) error {
	return e.signaler.Send(api.JoinRoom, api.JoinRoomRequest{
		RoomId:   roomId,
		UserId:   e.self.Id,
		Username: e.self.Username,
	})
}

// Leave closes all the sessions and leaves the current room.
func (e *Engine) Leave() error {
	e.mu.Lock()
	room := e.room
	e.room, e.participants = "", nil
	e.mu.Unlock()
	e.closeAll()
	if room == "" {
		return ErrNoRoom
	}
	return e.signaler.Send(api.LeaveRoom, api.LeaveRoomRequest{RoomId: room})
}

// HangUp ends the session with the peer and tells the peer about it.
func (e *Engine) HangUp(peerId string) {
	if err := e.signal(peerId, api.Hangup, nil); err != nil {
		e.log.Warn().Err(err).Str("peer", peerId).Msg("Hangup was not sent")
	}
	e.removePeer(peerId)
}

func (e *Engine) SetAudioEnabled(v bool) {
	if e.stream != nil {
		e.stream.SetAudioEnabled(v)
	}
}

func (e *Engine) SetVideoEnabled(v bool) {
	if e.stream != nil {
		e.stream.SetVideoEnabled(v)
	}
}

func (e *Engine) Self() api.User { return e.self }

func (e *Engine) Room() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room
}

// Participants returns the last known members of the room.
func (e *Engine) Participants() []api.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.participants)
}

// SessionState returns the state of the session with the peer.
func (e *Engine) SessionState(peerId string) (State, bool) {
	e.mu.Lock()
	s, ok := e.sessions[peerId]
	e.mu.Unlock()
	if !ok {
		return Idle, false
	}
	return s.State(), true
}

// Close ends everything when the server connection is lost.
func (e *Engine) Close() {
	e.mu.Lock()
	e.room, e.participants = "", nil
	e.mu.Unlock()
	e.closeAll()
	e.emit(Event{Kind: Disconnected})
}

// Handle processes a packet from the signaling server.
func (e *Engine) Handle(in api.In) {
	switch in.T {
	case api.RoomJoined:
		if rs := api.Unwrap[api.RoomJoinedResponse](in.Payload); rs != nil {
			e.onRoomJoined(*rs)
		}
	case api.RoomParticipants:
		if rs := api.Unwrap[api.RoomParticipantsResponse](in.Payload); rs != nil {
			e.setParticipants(*rs)
		}
	case api.UserJoined:
		if rs := api.Unwrap[api.UserJoinedResponse](in.Payload); rs != nil && rs.Id != e.self.Id {
			e.mu.Lock()
			if !slices.ContainsFunc(e.participants, func(u api.User) bool { return u.Id == rs.Id }) {
				e.participants = append(e.participants, *rs)
			}
			participants := slices.Clone(e.participants)
			e.mu.Unlock()
			e.emit(Event{Kind: PeerJoined, PeerId: rs.Id})
			e.emit(Event{Kind: ParticipantsUpdated, Participants: participants})
		}
	case api.UserLeft:
		if rs := api.Unwrap[api.UserLeftResponse](in.Payload); rs != nil {
			e.mu.Lock()
			e.participants = slices.DeleteFunc(e.participants, func(u api.User) bool { return u.Id == rs.UserId })
			e.mu.Unlock()
			e.emit(Event{Kind: PeerLeft, PeerId: rs.UserId})
			e.removePeer(rs.UserId)
		}
	case api.Signal:
		if rq := api.Unwrap[api.SignalRequest](in.Payload); rq != nil {
			e.onSignal(*rq)
		} else {
			e.log.Warn().Bytes("p", in.Payload).Msg("Malformed signal")
		}
	case api.Error:
		if rs := api.Unwrap[api.ErrorResponse](in.Payload); rs != nil {
			e.log.Warn().Str("code", string(rs.Code)).Str("room", rs.RoomId).Msg(rs.Message)
			e.emit(Event{Kind: ServerError, Err: &Error{Code: rs.Code, Message: rs.Message, RoomId: rs.RoomId}})
		}
	default:
		e.log.Warn().Str("t", in.T.String()).Msg("Unknown packet")
	}
}

func (e *Engine) onRoomJoined(room api.RoomJoinedResponse) {
	e.mu.Lock()
	prev := e.room
	e.room = room.Id
	e.participants = slices.Clone(room.Participants)
	e.mu.Unlock()
	if prev != "" && prev != room.Id {
		e.closeAll()
	}
	e.log.Info().Str("room", room.Id).Int("participants", len(room.Participants)).Msg("Joined")
	e.emit(Event{Kind: RoomJoined, Room: &room})

	if e.stream == nil {
		return
	}
	for _, p := range room.Participants {
		if p.Id == e.self.Id {
			continue
		}
		if s, created := e.session(p.Id); created {
			s.Offer(e.stream)
		}
	}
}

func (e *Engine) setParticipants(participants []api.User) {
	e.mu.Lock()
	e.participants = slices.Clone(participants)
	e.mu.Unlock()
	e.emit(Event{Kind: ParticipantsUpdated, Participants: participants})
}

func (e *Engine) onSignal(rq api.SignalRequest) {
	if rq.From == "" || rq.From == e.self.Id || (rq.To != "" && rq.To != e.self.Id) {
		return
	}
	switch rq.Type {
	case api.Offer:
		var offer webrtc.SessionDescription
		if err := json.Unmarshal(rq.Data, &offer); err != nil {
			e.log.Warn().Err(err).Msg("Malformed offer")
			return
		}
		e.onOffer(rq.From, offer)
	case api.Answer:
		var answer webrtc.SessionDescription
		if err := json.Unmarshal(rq.Data, &answer); err != nil {
			e.log.Warn().Err(err).Msg("Malformed answer")
			return
		}
		e.mu.Lock()
		s, ok := e.sessions[rq.From]
		e.mu.Unlock()
		if ok {
			s.Accept(answer)
		}
	case api.Candidate:
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal(rq.Data, &candidate); err != nil {
			e.log.Warn().Err(err).Msg("Malformed candidate")
			return
		}
		e.onCandidate(rq.From, candidate)
	case api.Hangup:
		e.removePeer(rq.From)
	}
}

func (e *Engine) onOffer(from string, offer webrtc.SessionDescription) {
	e.mu.Lock()
	s, ok := e.sessions[from]
	e.mu.Unlock()
	if ok {
		switch st := s.State(); {
		case st == OfferSent && e.self.Id < from:
			// the other side yields
			e.log.Debug().Str("peer", from).Msg("Offer glare, keeping ours")
			return
		case st == OfferSent || st == Idle:
			e.log.Debug().Str("peer", from).Msg("Offer glare, taking theirs")
			e.drop(s)
		default:
			e.log.Warn().Str("peer", from).Str("state", st.String()).Msg("Offer for a negotiated session, skipped")
			return
		}
	}
	s, _ = e.session(from)
	if s != nil {
		s.Answer(offer, e.stream)
	}
}

func (e *Engine) onCandidate(from string, candidate webrtc.ICECandidateInit) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[from]; ok {
		s.AddCandidate(candidate)
		return
	}
	if e.opts.DropEarlyCandidates {
		e.log.Debug().Str("peer", from).Msg("Candidate without a session dropped")
		return
	}
	if len(e.early[from]) >= e.opts.MaxPendingCandidates {
		e.log.Warn().Str("peer", from).Msg("Too many early candidates, dropped")
		return
	}
	e.early[from] = append(e.early[from], candidate)
}

// session returns the session with the peer making a new one if needed.
func (e *Engine) session(peerId string) (s *Session, created bool) {
	e.mu.Lock()
	if s, ok := e.sessions[peerId]; ok {
		e.mu.Unlock()
		return s, false
	}
	conn, err := e.newConn()
	if err != nil {
		e.mu.Unlock()
		err = errors.Join(ErrNegotiation, err)
		e.log.Error().Err(err).Str("peer", peerId).Msg("No native connection")
		e.emit(Event{Kind: Failed, PeerId: peerId, Err: err})
		return nil, false
	}
	s = newSession(e, peerId, conn)
	e.sessions[peerId] = s
	early := e.early[peerId]
	delete(e.early, peerId)
	for _, c := range early {
		s.AddCandidate(c)
	}
	e.mu.Unlock()
	e.log.Debug().Str("peer", peerId).Int("early", len(early)).Msg("New session")
	return s, true
}

// drop closes the session and forgets it.
func (e *Engine) drop(s *Session) {
	e.mu.Lock()
	if e.sessions[s.PeerId] == s {
		delete(e.sessions, s.PeerId)
	}
	e.mu.Unlock()
	s.Close()
}

func (e *Engine) removePeer(peerId string) {
	e.mu.Lock()
	s, ok := e.sessions[peerId]
	delete(e.sessions, peerId)
	delete(e.early, peerId)
	e.mu.Unlock()
	if ok {
		s.Close()
		e.emit(Event{Kind: PeerRemoved, PeerId: peerId})
	}
}

func (e *Engine) closeAll() {
	e.mu.Lock()
	sessions := e.sessions
	e.sessions = map[string]*Session{}
	e.early = map[string][]webrtc.ICECandidateInit{}
	e.mu.Unlock()
	for id, s := range sessions {
		s.Close()
		e.emit(Event{Kind: PeerRemoved, PeerId: id})
	}
}

// signal sends a negotiation message to the peer.
func (e *Engine) signal(to string, t api.SignalType, data any) error {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = b
	}
	return e.signaler.Send(api.Signal, api.SignalRequest{
		Type:   t,
		From:   e.self.Id,
		To:     to,
		RoomId: e.Room(),
		Data:   raw,
	})
}

// Error is an error reported by the signaling server.
type Error struct {
	Code    api.ErrCode
	Message string
	RoomId  string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }
