package config

import "github.com/gofrs/uuid"

type PeerConfig struct {
	Peer Peer
}

type Peer struct {
	Debug bool
	// Server is the websocket address of the signaling server.
	Server string `default:"ws://localhost:8000/ws"`
	Room   string
	User   struct {
		Id       string
		Username string
	}
	// Publish attaches local tracks, a peer without them only answers.
	Publish     bool
	Negotiation Negotiation
	Webrtc      Webrtc
}

type Negotiation struct {
	// DropEarlyCandidates discards the candidates that arrive before
	// any session with their sender exists instead of holding them.
	DropEarlyCandidates  bool `fig:"dropEarlyCandidates"`
	MaxPendingCandidates int  `fig:"maxPendingCandidates" default:"64"`
}

func NewPeerConfig(path string) (conf PeerConfig, err error) {
	if err = LoadConfig(&conf, path); err != nil {
		return
	}
	if conf.Peer.User.Id == "" {
		conf.Peer.User.Id = uuid.Must(uuid.NewV4()).String()
	}
	if conf.Peer.User.Username == "" {
		id := conf.Peer.User.Id
		conf.Peer.User.Username = "peer-" + id[:min(8, len(id))]
	}
	err = conf.Peer.Webrtc.Validate()
	return
}
