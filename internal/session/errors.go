package session

import "errors"

// ErrCodeSpaceExhausted means code generation kept colliding past the retry
// cap, which only happens when the random source is broken.
var ErrCodeSpaceExhausted = errors.New("room code generation exhausted retries")

// Fault is a session-layer error delivered only to the requesting
// connection, never broadcast. Message is the user-facing wire text.
type Fault struct {
	Code    string
	Message string
}

func (f *Fault) Error() string {
	if f.Message != "" {
		return f.Message
	}
	return f.Code
}

var (
	ErrRoomNotFound  = &Fault{Code: "room_not_found", Message: "Room not found"}
	ErrNameTaken     = &Fault{Code: "name_collision", Message: "Name is already taken in this room"}
	ErrAlreadySeated = &Fault{Code: "already_seated", Message: "You are already seated. Stand up first."}
	ErrNotInRoom     = &Fault{Code: "not_in_room", Message: "You are not in the room"}

	ErrWhiteSeatTaken = &Fault{Code: "seat_taken", Message: "White seat is taken"}
	ErrBlackSeatTaken = &Fault{Code: "seat_taken", Message: "Black seat is taken"}
)
