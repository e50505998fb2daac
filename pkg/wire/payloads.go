package wire

// Color is a seat color in wire form: "w" or "b".
type Color string

const (
	White Color = "w"
	Black Color = "b"
)

func (c Color) Valid() bool { return c == White || c == Black }

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Player describes a seated participant as shown to clients.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// Spectator is a room participant without a seat.
type Spectator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Move is the relayed move tuple. The server forwards it verbatim; only the
// receiving client's rules engine judges legality.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// UCI renders the move in long algebraic form, e.g. "e2e4" or "e7e8q".
func (m Move) UCI() string { return m.From + m.To + m.Promotion }

// CreateRoom is the payload of a create-room event.
type CreateRoom struct {
	IsPublic bool   `json:"isPublic"`
	Name     string `json:"name"`
}

// JoinRoom is the payload of a join-room event.
type JoinRoom struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// ClaimSeat is the payload of a claim-seat event.
type ClaimSeat struct {
	Color Color `json:"color"`
}

// UpdateFEN is the payload of an update-fen event.
type UpdateFEN struct {
	FEN string `json:"fen"`
}

// RoomState is the room view broadcast on membership changes.
type RoomState struct {
	RoomID      string      `json:"roomId"`
	FEN         string      `json:"fen"`
	WhitePlayer *Player     `json:"whitePlayer"`
	BlackPlayer *Player     `json:"blackPlayer"`
	Spectators  []Spectator `json:"spectators"`
}

// RoomJoined is the reply to create-room and join-room. MyColor is nil while
// the participant spectates.
type RoomJoined struct {
	RoomState
	MyColor     *Color `json:"myColor"`
	IsSpectator bool   `json:"isSpectator"`
}

// SeatClaimed is the reply to a successful claim-seat.
type SeatClaimed struct {
	Color Color `json:"color"`
}

// RoomInfo is one entry of a rooms-list payload: public rooms with an open
// seat, for lobby browsing.
type RoomInfo struct {
	ID         string `json:"id"`
	Players    int    `json:"players"`
	Spectators int    `json:"spectators"`
	FEN        string `json:"fen"`
}
