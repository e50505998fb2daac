package session

import (
	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

// StartFEN is the initial position a room's board resets to whenever a seat
// is vacated.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Participant is one live connection inside a room. Color is set only while
// the participant holds a seat.
type Participant struct {
	ConnID string
	Name   string
	Color  wire.Color
}

// Room is an ephemeral session keyed by a short code. A connection appears in
// at most one of the two seats or the spectator list, and the registry
// destroys the room the moment all three are empty.
type Room struct {
	Code       string
	White      *Participant
	Black      *Participant
	Spectators []*Participant
	FEN        string
	Public     bool
}

func newRoom(code string, public bool) *Room {
	return &Room{
		Code:   code,
		FEN:    StartFEN,
		Public: public,
	}
}

func (r *Room) seatedCount() int {
	n := 0
	if r.White != nil {
		n++
	}
	if r.Black != nil {
		n++
	}
	return n
}

func (r *Room) empty() bool {
	return r.White == nil && r.Black == nil && len(r.Spectators) == 0
}

func (r *Room) hasName(name string) bool {
	if r.White != nil && r.White.Name == name {
		return true
	}
	if r.Black != nil && r.Black.Name == name {
		return true
	}
	for _, s := range r.Spectators {
		if s.Name == name {
			return true
		}
	}
	return false
}

func (r *Room) occupant(c wire.Color) *Participant {
	if c == wire.White {
		return r.White
	}
	return r.Black
}

func (r *Room) setSeat(c wire.Color, p *Participant) {
	if c == wire.White {
		r.White = p
	} else {
		r.Black = p
	}
}

func (r *Room) seatOf(connID string) (wire.Color, bool) {
	if r.White != nil && r.White.ConnID == connID {
		return wire.White, true
	}
	if r.Black != nil && r.Black.ConnID == connID {
		return wire.Black, true
	}
	return "", false
}

// removeSpectator takes the participant out of the spectator list, preserving
// insertion order of the rest.
func (r *Room) removeSpectator(connID string) *Participant {
	for i, s := range r.Spectators {
		if s.ConnID == connID {
			r.Spectators = append(r.Spectators[:i], r.Spectators[i+1:]...)
			return s
		}
	}
	return nil
}

// vacateSeat empties whichever seat connID holds and returns the former
// occupant with its color cleared.
func (r *Room) vacateSeat(connID string) (*Participant, wire.Color, bool) {
	color, ok := r.seatOf(connID)
	if !ok {
		return nil, "", false
	}
	p := r.occupant(color)
	r.setSeat(color, nil)
	p.Color = ""
	return p, color, true
}

// memberIDs lists every connection in the room, seats first, spectators in
// display order.
func (r *Room) memberIDs() []string {
	ids := make([]string, 0, 2+len(r.Spectators))
	if r.White != nil {
		ids = append(ids, r.White.ConnID)
	}
	if r.Black != nil {
		ids = append(ids, r.Black.ConnID)
	}
	for _, s := range r.Spectators {
		ids = append(ids, s.ConnID)
	}
	return ids
}

// State builds the room view broadcast to members.
func (r *Room) State() wire.RoomState {
	st := wire.RoomState{
		RoomID:     r.Code,
		FEN:        r.FEN,
		Spectators: make([]wire.Spectator, 0, len(r.Spectators)),
	}
	if r.White != nil {
		st.WhitePlayer = &wire.Player{ID: r.White.ConnID, Name: r.White.Name, Color: wire.White}
	}
	if r.Black != nil {
		st.BlackPlayer = &wire.Player{ID: r.Black.ConnID, Name: r.Black.Name, Color: wire.Black}
	}
	for _, s := range r.Spectators {
		st.Spectators = append(st.Spectators, wire.Spectator{ID: s.ConnID, Name: s.Name})
	}
	return st
}

// Info builds the lobby-browser entry for this room.
func (r *Room) Info() wire.RoomInfo {
	return wire.RoomInfo{
		ID:         r.Code,
		Players:    r.seatedCount(),
		Spectators: len(r.Spectators),
		FEN:        r.FEN,
	}
}
