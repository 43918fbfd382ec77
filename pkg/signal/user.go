package signal

import (
	"sync"

	"github.com/rtcmeet/rtcmeet/pkg/api"
	"github.com/rtcmeet/rtcmeet/pkg/com"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
)

// Sender is the outgoing side of a connection.
// Write must not block, false means the message was dropped.
type Sender interface {
	Write(data []byte) bool
}

// User is a client connection of the signaling server.
type User struct {
	Id   com.Uid
	conn Sender

	// mu serializes room changes of the connection
	mu     sync.Mutex
	room   string
	as     api.User // identity used in the room
	closed bool
	once   sync.Once

	onDrop func()
	log    *logger.Logger
}

func NewUser(id com.Uid, conn Sender, log *logger.Logger) *User {
	return &User{Id: id, conn: conn, log: log}
}

func (u *User) Send(t api.PT, payload any) {
	frame, err := api.Encode(t, payload)
	if err != nil {
		u.log.Error().Err(err).Str("t", t.String()).Msg("couldn't encode a packet")
		return
	}
	u.SendRaw(frame)
}

// SendRaw enqueues an encoded packet.
func (u *User) SendRaw(frame []byte) {
	if u.conn.Write(frame) {
		return
	}
	u.log.Warn().Msg("send queue is full or closed, message dropped")
	if u.onDrop != nil {
		u.onDrop()
	}
}

func (u *User) SendError(code api.ErrCode, message string, roomId string) {
	u.Send(api.Error, api.ErrorResponse{Code: code, Message: message, RoomId: roomId})
}

// Room returns the current room of the connection.
func (u *User) Room() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.room
}

func (u *User) String() string { return u.Id.String() }
