package peer

import (
	"context"
	"errors"
	"net/url"

	"github.com/rtcmeet/rtcmeet/pkg/api"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
	"github.com/rtcmeet/rtcmeet/pkg/network/websocket"
)

var ErrNotConnected = errors.New("not connected")

// Client is a websocket connection to the signaling server.
type Client struct {
	conn *websocket.Connection
	log  *logger.Logger
}

func Dial(ctx context.Context, address string, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.Default()
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, err
	}
	conn, err := websocket.Dial(ctx, *u, websocket.DefaultQueue, log)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, log: log}, nil
}

// Listen starts reading packets, fn is called for each one by one.
func (c *Client) Listen(fn func(api.In)) {
	c.conn.OnMessage = func(m []byte) {
		in, err := api.Decode(m)
		if err != nil {
			c.log.Warn().Err(err).Msg("Malformed packet")
			return
		}
		fn(in)
	}
	c.conn.Listen()
}

func (c *Client) Send(t api.PT, payload any) error {
	frame, err := api.Encode(t, payload)
	if err != nil {
		return err
	}
	if !c.conn.Write(frame) {
		return ErrNotConnected
	}
	return nil
}

func (c *Client) Done() <-chan struct{} { return c.conn.Done() }

func (c *Client) Close() { c.conn.Close() }

// Bind connects the engine to the client.
// The engine is closed when the connection is lost.
func (e *Engine) Bind(c *Client) {
	c.Listen(e.Handle)
	go func() {
		<-c.Done()
		e.Close()
	}()
}
