package uci

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine answers the handshake and always suggests the same move.
const stubEngine = `#!/bin/sh
while read line; do
  case "$line" in
    uci) echo "id name stub"; echo "uciok";;
    isready) echo "readyok";;
    ucinewgame) ;;
    go*) echo "info depth 1 score cp 10 pv e2e4"; echo "bestmove e2e4";;
    quit) exit 0;;
  esac
done
`

func writeStubEngine(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub engine script requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "stubfish")
	require.NoError(t, os.WriteFile(path, []byte(stubEngine), 0o755))
	return path
}

func TestSession_HandshakeAndSearch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewSession(ctx, writeStubEngine(t), Options{Threads: 1, SkillLevel: 5, HashMB: 16})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.NewGame(ctx))

	best, err := s.Search(ctx, SearchRequest{FEN: "startpos", Limits: Limits{Depth: 1}})
	require.NoError(t, err)
	assert.Equal(t, "e2e4", best)
}

func TestPool_ReusesSessionsPerOptions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := NewPool(PoolConfig{BinaryPath: writeStubEngine(t), PerOptionsCapacity: 1})
	require.NoError(t, err)
	defer pool.Close()

	opt := Options{Threads: 1, SkillLevel: 3, HashMB: 16}
	first, err := pool.Acquire(ctx, opt)
	require.NoError(t, err)
	pool.Release(first, nil)

	second, err := pool.Acquire(ctx, opt)
	require.NoError(t, err)
	assert.Same(t, first, second, "a clean release must put the session back in the bucket")
	pool.Release(second, nil)
}

func TestPool_DiscardsSessionOnError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := NewPool(PoolConfig{BinaryPath: writeStubEngine(t), PerOptionsCapacity: 1})
	require.NoError(t, err)
	defer pool.Close()

	opt := Options{Threads: 1, SkillLevel: 3, HashMB: 16}
	first, err := pool.Acquire(ctx, opt)
	require.NoError(t, err)
	pool.Release(first, assert.AnError)

	second, err := pool.Acquire(ctx, opt)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	pool.Release(second, nil)
}

func TestNewPool_RejectsMissingBinary(t *testing.T) {
	_, err := NewPool(PoolConfig{BinaryPath: "/nonexistent/stockfish"})
	assert.Error(t, err)
}

func TestValidateOptions(t *testing.T) {
	assert.NoError(t, validateOptions(Options{SkillLevel: 0, HashMB: 16}))
	assert.NoError(t, validateOptions(Options{SkillLevel: 20, HashMB: 16}))
	assert.Error(t, validateOptions(Options{SkillLevel: 21, HashMB: 16}))
	assert.Error(t, validateOptions(Options{SkillLevel: -1, HashMB: 16}))
	assert.Error(t, validateOptions(Options{SkillLevel: 5, HashMB: 0}))
}

func TestBuildPositionCommand(t *testing.T) {
	assert.Equal(t, "position startpos\n", buildPositionCommand("", nil))
	assert.Equal(t, "position startpos\n", buildPositionCommand("startpos", nil))
	assert.Equal(t, "position startpos moves e2e4 e7e5\n",
		buildPositionCommand("startpos", []string{"e2e4", "e7e5"}))
	assert.Equal(t, "position fen 8/8/8/8/8/8/8/K6k w - - 0 1\n",
		buildPositionCommand("8/8/8/8/8/8/8/K6k w - - 0 1", nil))
}

func TestBuildGoTokens(t *testing.T) {
	tokens, err := buildGoTokens(Limits{Depth: 8})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "depth", "8"}, tokens)

	tokens, err = buildGoTokens(Limits{MoveTimeMillis: 250})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "movetime", "250"}, tokens)

	_, err = buildGoTokens(Limits{})
	assert.Error(t, err)
}

func TestOptionsKey_DistinguishesStrengths(t *testing.T) {
	a := optionsKey(Options{Threads: 1, SkillLevel: 0, HashMB: 64})
	b := optionsKey(Options{Threads: 1, SkillLevel: 12, HashMB: 64})
	assert.NotEqual(t, a, b)
}
