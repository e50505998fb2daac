package session

import "github.com/TeaChoco/react-chess-ai/pkg/wire"

// Sender delivers one server event to a single connection. Implementations
// must not block; the registry invokes them inline from its dispatch loop.
type Sender func(event string, data any)

// Command is an inbound session event. Commands are processed one at a time,
// to completion, by the registry's dispatch goroutine.
type Command interface{ isCommand() }

// Attach registers a connection's outbox. Must precede any other command for
// that connection.
type Attach struct {
	ConnID string
	Send   Sender
}

// Detach runs the leave-room path for the connection (channel loss and
// explicit close are the same thing) and unregisters its outbox.
type Detach struct{ ConnID string }

type CreateRoom struct {
	ConnID string
	Name   string
	Public bool
}

type JoinRoom struct {
	ConnID string
	Code   string
	Name   string
}

type ClaimSeat struct {
	ConnID string
	Color  wire.Color
}

type LeaveSeat struct{ ConnID string }

type RelayMove struct {
	ConnID string
	Move   wire.Move
}

type UpdateFEN struct {
	ConnID string
	FEN    string
}

type LeaveRoom struct{ ConnID string }

type GetRooms struct{ ConnID string }

// PublicRooms is a synchronous query used by the HTTP lobby endpoint.
type PublicRooms struct{ Reply chan []wire.RoomInfo }

// InspectRoom reflects a room's current view without racing the dispatch
// loop. Reply carries nil when the code is unknown.
type InspectRoom struct {
	Code  string
	Reply chan *wire.RoomState
}

// Inspect reports registry-wide counters, for tests and ops.
type Inspect struct{ Reply chan View }

type View struct {
	Rooms       int
	Connections int
}

type Shutdown struct{}

func (Attach) isCommand()      {}
func (Detach) isCommand()      {}
func (CreateRoom) isCommand()  {}
func (JoinRoom) isCommand()    {}
func (ClaimSeat) isCommand()   {}
func (LeaveSeat) isCommand()   {}
func (RelayMove) isCommand()   {}
func (UpdateFEN) isCommand()   {}
func (LeaveRoom) isCommand()   {}
func (GetRooms) isCommand()    {}
func (PublicRooms) isCommand() {}
func (InspectRoom) isCommand() {}
func (Inspect) isCommand()     {}
func (Shutdown) isCommand()    {}
