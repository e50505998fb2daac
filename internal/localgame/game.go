package localgame

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/TeaChoco/react-chess-ai/internal/gamesync"
	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

// BestMover suggests a move for the side to play, in long algebraic form.
// An empty move with a nil error means there is nothing to play.
type BestMover interface {
	BestMove(ctx context.Context, fen string, moves []string) (string, error)
}

const defaultThinkDelay = 500 * time.Millisecond

// Game runs one offline match between the human and an engine. The human
// plays through the embedded mirror; engine replies are scheduled after a
// short think delay so they read as deliberate rather than instantaneous.
//
// A generation counter guards the think timer: reset and undo bump it, and a
// reply computed for a stale generation is thrown away.
type Game struct {
	mu sync.Mutex

	session    *gamesync.Session
	engine     BestMover
	humanColor wire.Color
	thinkDelay time.Duration
	generation uint64

	onUpdate func()

	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

type Option func(*Game)

func WithThinkDelay(d time.Duration) Option {
	return func(g *Game) {
		if d >= 0 {
			g.thinkDelay = d
		}
	}
}

// WithOnUpdate registers a hook fired after every engine move lands, so the
// caller can redraw.
func WithOnUpdate(fn func()) Option {
	return func(g *Game) { g.onUpdate = fn }
}

func New(parent context.Context, engine BestMover, humanColor wire.Color, log *zap.Logger, opts ...Option) *Game {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	g := &Game{
		session:    gamesync.NewLocal(humanColor),
		engine:     engine,
		humanColor: humanColor,
		thinkDelay: defaultThinkDelay,
		ctx:        ctx,
		cancel:     cancel,
		log:        log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start schedules the opening engine move when the human plays black.
func (g *Game) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maybeScheduleEngineLocked()
}

// Play applies a human move. MoveApplied triggers the engine reply;
// off-turn attempts become premoves exactly as in online play.
func (g *Game) Play(from, to, promotion string) gamesync.MoveOutcome {
	outcome := g.session.AttemptMove(from, to, promotion)
	if outcome == gamesync.MoveApplied {
		g.mu.Lock()
		g.maybeScheduleEngineLocked()
		g.mu.Unlock()
	}
	return outcome
}

// ClickSquare drives click-to-move selection; a landed move triggers the
// engine reply.
func (g *Game) ClickSquare(square string) gamesync.MoveOutcome {
	outcome := g.session.HandleSquareClick(square)
	if outcome == gamesync.MoveApplied {
		g.mu.Lock()
		g.maybeScheduleEngineLocked()
		g.mu.Unlock()
	}
	return outcome
}

// Undo takes back the last engine and human moves together, cancelling any
// pending engine reply.
func (g *Game) Undo() error {
	g.mu.Lock()
	g.generation++
	g.mu.Unlock()

	if err := g.session.Undo(); err != nil {
		return err
	}

	g.mu.Lock()
	g.maybeScheduleEngineLocked()
	g.mu.Unlock()
	return nil
}

// Reset starts a fresh game, cancelling any pending engine reply.
func (g *Game) Reset() error {
	g.mu.Lock()
	g.generation++
	g.mu.Unlock()

	if err := g.session.Reset(); err != nil {
		return err
	}

	g.mu.Lock()
	g.maybeScheduleEngineLocked()
	g.mu.Unlock()
	return nil
}

// State snapshots the board.
func (g *Game) State() gamesync.State { return g.session.State() }

// Session exposes the mirror for selection highlighting.
func (g *Game) Session() *gamesync.Session { return g.session }

// Close stops any in-flight engine think.
func (g *Game) Close() { g.cancel() }

func (g *Game) maybeScheduleEngineLocked() {
	st := g.session.State()
	if st.GameOver || st.Turn == g.humanColor {
		return
	}
	gen := g.generation
	go g.engineTurn(gen, st.MovesUCI)
}

func (g *Game) engineTurn(gen uint64, moves []string) {
	timer := time.NewTimer(g.thinkDelay)
	defer timer.Stop()
	select {
	case <-g.ctx.Done():
		return
	case <-timer.C:
	}

	if g.stale(gen) {
		return
	}

	best, err := g.engine.BestMove(g.ctx, "startpos", moves)
	if err != nil {
		g.log.Warn("engine_move_failed", zap.Error(err))
		return
	}
	if len(best) < 4 {
		return
	}

	g.mu.Lock()
	if gen != g.generation {
		g.mu.Unlock()
		g.log.Debug("engine_move_stale", zap.String("move", best))
		return
	}
	applied := g.session.ApplyRemote(wire.Move{
		From:      best[:2],
		To:        best[2:4],
		Promotion: best[4:],
	})
	if applied {
		// a replayed premove may have handed the turn straight back
		g.maybeScheduleEngineLocked()
	}
	g.mu.Unlock()

	if !applied {
		g.log.Warn("engine_move_rejected", zap.String("move", best))
		return
	}
	if g.onUpdate != nil {
		g.onUpdate()
	}
}

func (g *Game) stale(gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return gen != g.generation
}
