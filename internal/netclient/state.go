package netclient

import "context"

// ConnState tracks the websocket connection lifecycle.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// EventCallback receives every decoded envelope from the relay.
type EventCallback func(event string, data []byte)

// StateCallback fires on every connection state transition.
type StateCallback func(state ConnState)

// Conn is the relay-facing websocket surface used by the game client.
type Conn interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, event string, data any) error
	OnEvent(cb EventCallback) int
	RemoveEventCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	State() ConnState
	Close(ctx context.Context) error
}
