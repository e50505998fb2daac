package wire

import (
	"encoding/json"
	"fmt"
)

// Envelope is the single frame type on the websocket: an event name plus an
// event-specific JSON payload. Events without a body (leave-seat, leave-room,
// get-rooms) omit Data entirely.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into an Envelope. A nil data produces a bare
// event frame.
func NewEnvelope(event string, data any) (Envelope, error) {
	env := Envelope{Event: event}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	env.Data = raw
	return env, nil
}

// Bind unmarshals the envelope payload into out.
func (e Envelope) Bind(out any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Event, err)
	}
	return nil
}
