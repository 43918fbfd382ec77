package api

type (
	// User is an identity declared by a client. It is not verified.
	User struct {
		Id       string `json:"id"`
		Username string `json:"username"`
	}
	UserConnectRequest = User
	JoinRoomRequest    struct {
		RoomId          string `json:"roomId"`
		UserId          string `json:"userId,omitempty"`
		Username        string `json:"username,omitempty"`
		MaxParticipants int    `json:"maxParticipants,omitempty"`
	}
	LeaveRoomRequest struct {
		RoomId string `json:"roomId"`
	}
)

type (
	RoomJoinedResponse struct {
		Id              string `json:"id"`
		Name            string `json:"name"`
		Participants    []User `json:"participants"`
		MaxParticipants int    `json:"maxParticipants,omitempty"`
	}
	UserJoinedResponse = User
	UserLeftResponse   struct {
		UserId string `json:"userId"`
	}
	RoomParticipantsResponse = []User
	ErrorResponse            struct {
		Code    ErrCode `json:"code"`
		Message string  `json:"message,omitempty"`
		RoomId  string  `json:"roomId,omitempty"`
	}
)

type ErrCode string

const (
	ErrCodeRoomFull     ErrCode = "room-full"
	ErrCodeUnregistered ErrCode = "unregistered"
	ErrCodeMalformed    ErrCode = "malformed"
)
