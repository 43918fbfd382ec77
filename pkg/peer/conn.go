package peer

import (
	"github.com/pion/webrtc/v4"
)

// Conn is the native peer connection of a session.
// CreateOffer and CreateAnswer also apply the result as the local description.
type Conn interface {
	AddTracks(stream *LocalStream) error
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetRemoteDescription(sdp webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	// OnICECandidate gets nil when the gathering is complete.
	OnICECandidate(fn func(candidate *webrtc.ICECandidateInit))
	OnTrack(fn func(track RemoteTrack))
	OnConnectionStateChange(fn func(state webrtc.PeerConnectionState))
	Close() error
}

// ConnFactory makes a new native connection for each session.
type ConnFactory func() (Conn, error)

// RemoteTrack describes incoming media of a remote peer.
type RemoteTrack struct {
	Id       string
	StreamId string
	Kind     webrtc.RTPCodecType
	Codec    string
}

// pionConn is a Conn over a pion peer connection.
type pionConn struct {
	pc *webrtc.PeerConnection
}

func (c *pionConn) AddTracks(stream *LocalStream) error {
	for _, track := range stream.Tracks() {
		sender, err := c.pc.AddTrack(track)
		if err != nil {
			return err
		}
		// Read incoming RTCP packets
		go func() {
			rtcpBuf := make([]byte, 1500)
			for {
				if _, _, err := sender.Read(rtcpBuf); err != nil {
					return
				}
			}
		}()
	}
	return nil
}

func (c *pionConn) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return offer, err
	}
	return offer, c.pc.SetLocalDescription(offer)
}

func (c *pionConn) CreateAnswer() (webrtc.SessionDescription, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return answer, err
	}
	return answer, c.pc.SetLocalDescription(answer)
}

func (c *pionConn) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(sdp)
}

func (c *pionConn) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(candidate)
}

func (c *pionConn) OnICECandidate(fn func(*webrtc.ICECandidateInit)) {
	c.pc.OnICECandidate(func(ice *webrtc.ICECandidate) {
		// ICE gathering finish condition
		if ice == nil {
			fn(nil)
			return
		}
		candidate := ice.ToJSON()
		fn(&candidate)
	})
}

func (c *pionConn) OnTrack(fn func(RemoteTrack)) {
	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		fn(RemoteTrack{
			Id:       track.ID(),
			StreamId: track.StreamID(),
			Kind:     track.Kind(),
			Codec:    track.Codec().MimeType,
		})
		// nobody plays the media, it is read out so the buffers don't fill up
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := track.Read(buf); err != nil {
					return
				}
			}
		}()
	})
}

func (c *pionConn) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(fn)
}

func (c *pionConn) Close() error {
	if c.pc.ConnectionState() == webrtc.PeerConnectionStateClosed {
		return nil
	}
	return c.pc.Close()
}
