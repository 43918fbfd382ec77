package peer

import (
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// Track is a local track with the enable switch.
// Samples written to a disabled track are dropped, the track stays negotiated.
type Track struct {
	*webrtc.TrackLocalStaticSample

	enabled atomic.Bool
}

func newTrack(mime string, id string, streamId string) (*Track, error) {
	t, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: mime}, id, streamId)
	if err != nil {
		return nil, err
	}
	track := Track{TrackLocalStaticSample: t}
	track.enabled.Store(true)
	return &track, nil
}

func (t *Track) WriteSample(s media.Sample) error {
	if !t.enabled.Load() {
		return nil
	}
	return t.TrackLocalStaticSample.WriteSample(s)
}

func (t *Track) Enabled() bool     { return t.enabled.Load() }
func (t *Track) SetEnabled(v bool) { t.enabled.Store(v) }

// LocalStream is the local media attached to every session.
// Capturing media is up to the owner, it writes samples into the tracks.
type LocalStream struct {
	Id    string
	Audio *Track
	Video *Track
}

// NewLocalStream makes a stream with an Opus audio and a VP8 video track.
func NewLocalStream(id string) (*LocalStream, error) {
	audio, err := newTrack(webrtc.MimeTypeOpus, "audio", id)
	if err != nil {
		return nil, err
	}
	video, err := newTrack(webrtc.MimeTypeVP8, "video", id)
	if err != nil {
		return nil, err
	}
	return &LocalStream{Id: id, Audio: audio, Video: video}, nil
}

func (s *LocalStream) Tracks() []webrtc.TrackLocal {
	var tracks []webrtc.TrackLocal
	if s.Audio != nil {
		tracks = append(tracks, s.Audio)
	}
	if s.Video != nil {
		tracks = append(tracks, s.Video)
	}
	return tracks
}

func (s *LocalStream) SetAudioEnabled(v bool) {
	if s.Audio != nil {
		s.Audio.SetEnabled(v)
	}
}

func (s *LocalStream) SetVideoEnabled(v bool) {
	if s.Video != nil {
		s.Video.SetEnabled(v)
	}
}
