package gamesync

import (
	"errors"
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"

	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

// ErrOnlineAuthority rejects history actions (undo, new game) while an online
// room is active: the relay owns the game state, not local history.
var ErrOnlineAuthority = errors.New("action is disabled while an online room is active")

// MoveOutcome classifies what AttemptMove did with the input.
type MoveOutcome int

const (
	// MoveRejected: illegal on own turn, or a no-op (spectating, foreign
	// piece, game over).
	MoveRejected MoveOutcome = iota
	// MoveApplied: applied to the local mirror immediately (and pushed to
	// the relay when online).
	MoveApplied
	// MoveQueued: captured as the pending premove.
	MoveQueued
)

// MoveSender pushes a locally applied move to the relay, together with the
// position after the move so the room snapshot stays current for late
// joiners. Must not block.
type MoveSender func(m wire.Move, fen string)

// Premove is the single queued move replayed when the turn arrives.
// Assignment always replaces wholesale; there is no queue.
type Premove struct {
	From      string
	To        string
	Promotion string
}

// State is the rules-engine view of the mirrored game.
type State struct {
	FEN       string
	Turn      wire.Color
	Checkmate bool
	Stalemate bool
	Draw      bool
	GameOver  bool
	MovesUCI  []string
	MovesSAN  []string
}

// Session is the client-side reconciliation engine. It owns the authoritative
// local mirror of one game, gates move attempts by turn, and holds the
// single-slot premove. Incoming relayed moves drive premove replay.
//
// Methods are safe for concurrent use: the network listener and the UI (or
// the engine think timer in local mode) run on different goroutines.
type Session struct {
	mu sync.Mutex

	game  *chesslib.Game
	moves []string // long algebraic, as applied
	sans  []string

	myColor    wire.Color
	spectating bool
	online     bool

	premove  *Premove
	selected string
	options  map[string]bool

	send MoveSender
}

// NewLocal creates a session for offline play; moves are never pushed
// anywhere.
func NewLocal(myColor wire.Color) *Session {
	return &Session{
		game:    chesslib.NewGame(),
		myColor: myColor,
	}
}

// NewOnline creates a session bound to a room. The participant starts as a
// spectator until a seat is claimed.
func NewOnline(send MoveSender) *Session {
	return &Session{
		game:       chesslib.NewGame(),
		spectating: true,
		online:     true,
		send:       send,
	}
}

// SetSeat is called on seat-claimed: the participant becomes a playing side.
func (s *Session) SetSeat(color wire.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.myColor = color
	s.spectating = false
	s.premove = nil
	s.clearSelection()
}

// ClearSeat is called on seat-left: back to spectating.
func (s *Session) ClearSeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.myColor = ""
	s.spectating = true
	s.premove = nil
	s.clearSelection()
}

// LoadFEN replaces the mirror with a mid-game position, e.g. the snapshot a
// spectator receives in room-joined. Move history restarts from the snapshot.
func (s *Session) LoadFEN(fen string) error {
	option, err := chesslib.FEN(strings.TrimSpace(fen))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.game = chesslib.NewGame(option)
	s.moves = nil
	s.sans = nil
	s.premove = nil
	s.clearSelection()
	return nil
}

// AttemptMove classifies a local move attempt:
//   - own turn and legal: applied immediately, pushed to the relay online;
//   - off-turn with an own piece: captured as the premove, replacing any
//     prior one;
//   - anything else: rejected without side effects.
func (s *Session) AttemptMove(from, to, promotion string) MoveOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spectating || s.gameOver() {
		return MoveRejected
	}

	if s.turn() == s.myColor {
		if !s.apply(from, to, promotion) {
			return MoveRejected
		}
		s.premove = nil
		s.clearSelection()
		s.push(from, to, promotion)
		return MoveApplied
	}

	// Premove capture requires the moved piece to be ours; a premove from an
	// opponent or empty square is a pure no-op.
	if s.pieceColorAt(from) != s.myColor {
		return MoveRejected
	}
	s.premove = &Premove{From: from, To: to, Promotion: promotion}
	s.clearSelection()
	return MoveQueued
}

// ApplyRemote folds a relayed move into the mirror and, when the turn has
// advanced to this client, replays the pending premove. An illegal premove is
// discarded silently; premove failure is expected, not exceptional.
func (s *Session) ApplyRemote(m wire.Move) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.apply(m.From, m.To, m.Promotion) {
		return false
	}
	s.clearSelection()
	s.replayPremoveLocked()
	return true
}

func (s *Session) replayPremoveLocked() {
	if s.premove == nil || s.spectating || s.turn() != s.myColor || s.gameOver() {
		return
	}
	pm := *s.premove
	s.premove = nil
	if s.apply(pm.From, pm.To, pm.Promotion) {
		s.push(pm.From, pm.To, pm.Promotion)
	}
}

// HandleSquareClick drives click-to-move selection. A pending premove is
// cancelled outright before the click is evaluated. The returned outcome is
// that of the attempted move, or MoveRejected when the click only changed
// the selection.
func (s *Session) HandleSquareClick(square string) MoveOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.premove = nil

	if s.spectating || s.gameOver() {
		s.clearSelection()
		return MoveRejected
	}

	if s.selected != "" && s.selected != square {
		from := s.selected
		s.clearSelection()
		if s.turn() == s.myColor && s.apply(from, square, "") {
			s.push(from, square, "")
			return MoveApplied
		}
		// fall through: the click may be picking a new piece
	}

	if s.turn() == s.myColor {
		targets := s.legalTargets(square)
		if len(targets) > 0 {
			s.selected = square
			s.options = targets
			return MoveRejected
		}
	}
	s.clearSelection()
	return MoveRejected
}

// ApplyReset reacts to a reset-game broadcast: fresh game, premove and
// selection dropped. The relay is the authority, so this works regardless of
// mode.
func (s *Session) ApplyReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Reset starts a new game. Refused online; there the board only resets on a
// reset-game broadcast.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.online {
		return ErrOnlineAuthority
	}
	s.resetLocked()
	return nil
}

// Undo takes back a full move pair so the same side is to move again.
// Refused online.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.online {
		return ErrOnlineAuthority
	}
	if len(s.moves) < 2 {
		return errors.New("no moves available to undo")
	}
	return s.replayLocked(s.moves[:len(s.moves)-2])
}

// State snapshots the mirror.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		FEN:       s.game.FEN(),
		Turn:      s.turn(),
		Checkmate: s.game.Method() == chesslib.Checkmate,
		Stalemate: s.game.Method() == chesslib.Stalemate,
		Draw:      s.game.Outcome() == chesslib.Draw,
		GameOver:  s.gameOver(),
		MovesUCI:  append([]string(nil), s.moves...),
		MovesSAN:  append([]string(nil), s.sans...),
	}
}

// PendingPremove reports the queued premove, if any.
func (s *Session) PendingPremove() *Premove {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.premove == nil {
		return nil
	}
	pm := *s.premove
	return &pm
}

// OptionSquares is the highlight map for the current selection: legal target
// squares of the selected piece.
func (s *Session) OptionSquares() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.options))
	for sq := range s.options {
		out[sq] = true
	}
	return out
}

// SelectedSquare reports the current selection, empty when none.
func (s *Session) SelectedSquare() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *Session) Spectating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spectating
}

func (s *Session) MyColor() wire.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.myColor
}

// --- internals; callers hold s.mu ---

func (s *Session) resetLocked() {
	s.game = chesslib.NewGame()
	s.moves = nil
	s.sans = nil
	s.premove = nil
	s.clearSelection()
}

func (s *Session) replayLocked(moves []string) error {
	game := chesslib.NewGame()
	sans := make([]string, 0, len(moves))
	for _, mv := range moves {
		pos := game.Position()
		decoded, err := chesslib.UCINotation{}.Decode(pos, mv)
		if err != nil {
			return err
		}
		san := chesslib.AlgebraicNotation{}.Encode(pos, decoded)
		if err := game.Move(decoded, nil); err != nil {
			return err
		}
		sans = append(sans, san)
	}
	s.game = game
	s.moves = append([]string(nil), moves...)
	s.sans = sans
	s.clearSelection()
	return nil
}

// apply validates the tuple against the rules engine and advances the mirror.
// A bare pawn push onto the last rank promotes to a queen, matching what the
// board UI sends.
func (s *Session) apply(from, to, promotion string) bool {
	uci := strings.ToLower(strings.TrimSpace(from + to + promotion))
	pos := s.game.Position()

	mv, err := chesslib.UCINotation{}.Decode(pos, uci)
	if err != nil && promotion == "" {
		mv, err = chesslib.UCINotation{}.Decode(pos, uci+"q")
	}
	if err != nil {
		return false
	}
	san := chesslib.AlgebraicNotation{}.Encode(pos, mv)
	if err := s.game.Move(mv, nil); err != nil {
		return false
	}
	s.moves = append(s.moves, mv.String())
	s.sans = append(s.sans, san)
	return true
}

func (s *Session) push(from, to, promotion string) {
	if s.send == nil {
		return
	}
	s.send(wire.Move{From: from, To: to, Promotion: promotion}, s.game.FEN())
}

func (s *Session) turn() wire.Color {
	if s.game.Position().Turn() == chesslib.White {
		return wire.White
	}
	return wire.Black
}

func (s *Session) gameOver() bool {
	return s.game.Outcome() != chesslib.NoOutcome
}

func (s *Session) pieceColorAt(square string) wire.Color {
	sq, ok := parseSquare(square)
	if !ok {
		return ""
	}
	piece := s.game.Position().Board().Piece(sq)
	if piece == chesslib.NoPiece {
		return ""
	}
	if piece.Color() == chesslib.White {
		return wire.White
	}
	return wire.Black
}

// legalTargets probes every destination for a legal move from square.
func (s *Session) legalTargets(square string) map[string]bool {
	if _, ok := parseSquare(square); !ok {
		return nil
	}
	targets := make(map[string]bool)
	pos := s.game.Position()
	for file := chesslib.FileA; file <= chesslib.FileH; file++ {
		for rank := chesslib.Rank1; rank <= chesslib.Rank8; rank++ {
			to := chesslib.NewSquare(file, rank).String()
			if to == square {
				continue
			}
			uci := square + to
			mv, err := chesslib.UCINotation{}.Decode(pos, uci)
			if err != nil {
				mv, err = chesslib.UCINotation{}.Decode(pos, uci+"q")
				if err != nil {
					continue
				}
			}
			if clone := s.game.Clone(); clone.Move(mv, nil) == nil {
				targets[to] = true
			}
		}
	}
	if len(targets) == 0 {
		return nil
	}
	return targets
}

func (s *Session) clearSelection() {
	s.selected = ""
	s.options = nil
}

func parseSquare(square string) (chesslib.Square, bool) {
	if len(square) != 2 {
		return 0, false
	}
	f, r := square[0], square[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return 0, false
	}
	file := chesslib.FileA + chesslib.File(f-'a')
	rank := chesslib.Rank1 + chesslib.Rank(r-'1')
	return chesslib.NewSquare(file, rank), true
}
