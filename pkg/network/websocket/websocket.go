package websocket

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
)

const (
	maxMessageSize = 64 * 1024
	pingTime       = pongTime * 9 / 10
	pongTime       = 60 * time.Second
	writeWait      = 10 * time.Second

	DefaultQueue = 64
)

// Connection is a websocket with a single reader and a single writer pump.
// Writes never block, a message that doesn't fit into the send queue is dropped.
type Connection struct {
	conn *websocket.Conn
	send chan []byte

	OnMessage MessageHandler

	pingPong bool
	once     sync.Once
	done     chan struct{}
	log      *logger.Logger
}

type MessageHandler func(message []byte)

type Upgrader struct {
	websocket.Upgrader

	Queue int
}

// NewUpgrader makes an upgrader that accepts only the listed origins.
// Any origin is accepted with the empty list.
func NewUpgrader(origins []string) *Upgrader {
	u := Upgrader{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			WriteBufferPool: &sync.Pool{},
		},
		Queue: DefaultQueue,
	}
	if len(origins) > 0 {
		u.CheckOrigin = func(r *http.Request) bool { return AllowedOrigin(r.Header.Get("Origin"), origins) }
	} else {
		u.CheckOrigin = func(*http.Request) bool { return true }
	}
	return &u
}

// AllowedOrigin checks the origin against the allowed list.
// Requests without the Origin header don't come from browsers and pass.
func AllowedOrigin(origin string, origins []string) bool {
	if origin == "" {
		return true
	}
	for _, o := range origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// Upgrade turns an HTTP request into a server-side websocket connection.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request, log *logger.Logger) (*Connection, error) {
	conn, err := u.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newConnection(conn, true, u.Queue, log), nil
}

// Dial opens a client-side websocket connection.
func Dial(ctx context.Context, address url.URL, queue int, log *logger.Logger) (*Connection, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, address.String(), nil)
	if err != nil {
		return nil, err
	}
	return newConnection(conn, false, queue, log), nil
}

func newConnection(conn *websocket.Conn, pingPong bool, queue int, log *logger.Logger) *Connection {
	if queue <= 0 {
		queue = DefaultQueue
	}
	if log == nil {
		log = logger.Default()
	}
	return &Connection{
		conn:     conn,
		send:     make(chan []byte, queue),
		pingPong: pingPong,
		done:     make(chan struct{}),
		log:      log,
	}
}

// Listen starts the pumps. OnMessage should be set before.
func (c *Connection) Listen() {
	go c.writer()
	go c.reader()
}

// reader pumps messages from the websocket connection to the OnMessage callback.
// Blocking, must be called as goroutine. Serializes all websocket reads.
func (c *Connection) reader() {
	defer c.shutdown()

	c.conn.SetReadLimit(maxMessageSize)
	if c.pingPong {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongTime))
		c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongTime)) })
	}
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error().Err(err).Msg("WebSocket read fail")
			}
			return
		}
		c.log.Debug().Str(logger.DirectionField, logger.MarkIn).Bytes("msg", message).Msg("")
		if c.OnMessage != nil {
			c.OnMessage(message)
		}
	}
}

// writer pumps messages from the send queue to the websocket connection.
// Blocking, must be called as goroutine. Serializes all websocket writes.
func (c *Connection) writer() {
	var tick <-chan time.Time
	if c.pingPong {
		ticker := time.NewTicker(pingTime)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.shutdown()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.log.Debug().Str(logger.DirectionField, logger.MarkOut).Bytes("msg", message).Msg("")
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.log.Error().Err(err).Msg("WebSocket write fail")
				return
			}
		case <-tick:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Error().Err(err).Msg("WebSocket ping fail")
				return
			}
		}
	}
}

func (c *Connection) write(t int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(t, data)
}

// Write enqueues a message, false when it was dropped.
func (c *Connection) Write(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close sends the close frame and stops the connection.
func (c *Connection) Close() {
	select {
	case <-c.done:
		return
	default:
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.shutdown()
}

func (c *Connection) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Done is closed when the connection stops.
func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) RemoteAddr() string { return c.conn.RemoteAddr().String() }
