package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/rtcmeet/rtcmeet/pkg/api"
	"github.com/rtcmeet/rtcmeet/pkg/config"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
	xos "github.com/rtcmeet/rtcmeet/pkg/os"
	"github.com/rtcmeet/rtcmeet/pkg/peer"
	"github.com/spf13/cobra"
)

var Version = "?"

func main() {
	conf, err := config.NewPeerConfig(config.ConfigPath(os.Args[1:]))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err = rootCmd(&conf).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd(conf *config.PeerConfig) *cobra.Command {
	c := &conf.Peer
	cmd := &cobra.Command{
		Use:     "peer [room]",
		Short:   "Joins a room and negotiates media sessions with everyone in it",
		Version: Version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				c.Room = args[0]
			}
			if c.Room == "" {
				return fmt.Errorf("no room")
			}
			return run(cmd.Context(), conf)
		},
		SilenceUsage: true,
	}
	fs := cmd.Flags()
	fs.StringP("config", "c", "", "Config file path")
	fs.StringVarP(&c.Server, "server", "s", c.Server, "Signaling server websocket address")
	fs.StringVarP(&c.Room, "room", "r", c.Room, "Room to join")
	fs.StringVar(&c.User.Id, "id", c.User.Id, "User id")
	fs.StringVarP(&c.User.Username, "name", "n", c.User.Username, "User name")
	fs.BoolVar(&c.Publish, "publish", c.Publish, "Attach local audio and video tracks")
	fs.BoolVarP(&c.Debug, "debug", "d", c.Debug, "Debug logs")
	fs.BoolVar(&c.Negotiation.DropEarlyCandidates, "dropEarlyCandidates", c.Negotiation.DropEarlyCandidates,
		"Drop candidates that arrive before the offer")
	return cmd
}

func run(ctx context.Context, conf *config.PeerConfig) error {
	c := conf.Peer
	log := logger.NewConsole(c.Debug, "p", false)
	log.Info().Msgf("version %s", Version)

	if u, err := url.Parse(c.Server); err == nil {
		c.Webrtc.IceServers = c.Webrtc.IceServersWith(config.Replacement{From: config.ServerPlaceholder, To: u.Hostname()})
	}
	factory, err := peer.NewApiFactory(c.Webrtc, log, nil)
	if err != nil {
		return fmt.Errorf("webrtc: %w", err)
	}
	var stream *peer.LocalStream
	if c.Publish {
		if stream, err = peer.NewLocalStream(c.User.Id); err != nil {
			return fmt.Errorf("local media: %w", err)
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := peer.Dial(dialCtx, c.Server, log)
	if err != nil {
		return fmt.Errorf("signaling server: %w", err)
	}
	defer client.Close()

	engine := peer.New(client, peer.Options{
		Self:                 api.User{Id: c.User.Id, Username: c.User.Username},
		Stream:               stream,
		NewConn:              factory.NewConn,
		DropEarlyCandidates:  c.Negotiation.DropEarlyCandidates,
		MaxPendingCandidates: c.Negotiation.MaxPendingCandidates,
		Log:                  log,
	})
	engine.On(peer.ParticipantsUpdated, func(e peer.Event) {
		log.Info().Int("count", len(e.Participants)).Msg("Participants")
	})
	engine.On(peer.SessionState, func(e peer.Event) {
		log.Info().Str("peer", e.PeerId).Str("state", e.State.String()).Msg("Session")
	})
	engine.On(peer.StreamAdded, func(e peer.Event) {
		log.Info().Str("peer", e.PeerId).Str("codec", e.Track.Codec).Msg("Remote stream")
	})
	engine.On(peer.Failed, func(e peer.Event) {
		log.Error().Err(e.Err).Str("peer", e.PeerId).Msg("Session failed")
	})
	engine.On(peer.ServerError, func(e peer.Event) {
		log.Error().Err(e.Err).Msg("Server error")
	})
	engine.Bind(client)

	if err = engine.Connect(); err != nil {
		return err
	}
	if err = engine.Join(c.Room); err != nil {
		return err
	}

	select {
	case <-xos.ExpectTermination():
		_ = engine.Leave()
		// let the leave packet out
		time.Sleep(100 * time.Millisecond)
	case <-client.Done():
		return fmt.Errorf("signaling server connection lost")
	}
	return nil
}
