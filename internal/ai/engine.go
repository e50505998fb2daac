package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/TeaChoco/react-chess-ai/internal/uci"
)

// Engine turns a difficulty preset into best-move searches against a pooled
// engine subprocess.
type Engine struct {
	pool   *uci.Pool
	opt    uci.Options
	limits uci.Limits
	log    *zap.Logger
}

func NewEngine(pool *uci.Pool, preset Preset, threads, hashMB int, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if threads <= 0 {
		threads = 1
	}
	if hashMB <= 0 {
		hashMB = 64
	}
	return &Engine{
		pool: pool,
		opt: uci.Options{
			Threads:    threads,
			SkillLevel: preset.SkillLevel,
			HashMB:     hashMB,
		},
		limits: uci.Limits{
			Depth:          preset.Depth,
			MoveTimeMillis: preset.MoveTimeMillis,
		},
		log: log,
	}
}

// BestMove searches the position given by fen plus moves and returns the
// engine's choice in long algebraic form. An empty string means the engine
// sees no move, i.e. the game is over.
func (e *Engine) BestMove(ctx context.Context, fen string, moves []string) (string, error) {
	session, err := e.pool.Acquire(ctx, e.opt)
	if err != nil {
		return "", err
	}
	best, err := session.Search(ctx, uci.SearchRequest{
		FEN:    fen,
		Moves:  moves,
		Limits: e.limits,
	})
	e.pool.Release(session, err)
	if err != nil {
		e.log.Warn("engine_search_failed", zap.Error(err))
		return "", err
	}
	e.log.Debug("engine_best_move",
		zap.String("move", best),
		zap.Int("depth", e.limits.Depth),
		zap.Int("skill", e.opt.SkillLevel))
	return best, nil
}
