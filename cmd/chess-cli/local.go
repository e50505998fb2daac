package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/TeaChoco/react-chess-ai/internal/ai"
	appcfg "github.com/TeaChoco/react-chess-ai/internal/config"
	"github.com/TeaChoco/react-chess-ai/internal/gamesync"
	"github.com/TeaChoco/react-chess-ai/internal/localgame"
	"github.com/TeaChoco/react-chess-ai/internal/obslog"
	"github.com/TeaChoco/react-chess-ai/internal/uci"
	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

func runLocal(cfg *appcfg.AppConfig, humanColor wire.Color) {
	if !humanColor.Valid() {
		log.Fatalf("invalid color %q, want w or b", humanColor)
	}
	if cfg.StockfishPath == "" {
		log.Fatal("STOCKFISH_PATH is required for local mode")
	}

	catalog, err := ai.NewCatalog(cfg.AIPresetOverride)
	if err != nil {
		log.Fatalf("preset catalog error: %v", err)
	}
	preset, err := catalog.Lookup(cfg.AIPreset)
	if err != nil {
		log.Fatalf("preset error: %v", err)
	}

	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath:         cfg.StockfishPath,
		PerOptionsCapacity: cfg.EnginePoolPerOpts,
	})
	if err != nil {
		log.Fatalf("engine pool error: %v", err)
	}
	defer pool.Close()

	engine := ai.NewEngine(pool, preset, cfg.EngineThreads, cfg.EngineHashMB, obslog.L())

	redraw := make(chan struct{}, 1)
	game := localgame.New(context.Background(), engine, humanColor, obslog.L(),
		localgame.WithThinkDelay(cfg.AIThinkDelay),
		localgame.WithOnUpdate(func() {
			select {
			case redraw <- struct{}{}:
			default:
			}
		}))
	defer game.Close()

	fmt.Printf("Local game vs %s engine. You play %s.\n", preset.Name, sideName(humanColor))
	fmt.Println("Commands: <move e2e4>, undo, new, board, quit")
	game.Start()
	printBoard(game.State())

	lines := make(chan string)
	go readLines(lines)

	for {
		select {
		case <-redraw:
			printBoard(game.State())
		case line, open := <-lines:
			if !open {
				return
			}
			if !handleLocalCommand(game, line) {
				return
			}
		}
	}
}

func handleLocalCommand(game *localgame.Game, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return false
	case "board":
		printBoard(game.State())
	case "undo":
		if err := game.Undo(); err != nil {
			fmt.Println("undo:", err)
			return true
		}
		printBoard(game.State())
	case "new":
		if err := game.Reset(); err != nil {
			fmt.Println("new:", err)
			return true
		}
		game.Start()
		printBoard(game.State())
	default:
		from, to, promotion, ok := parseMove(fields)
		if !ok {
			fmt.Println("unrecognized command; try e2e4, undo, new, board, quit")
			return true
		}
		switch game.Play(from, to, promotion) {
		case gamesync.MoveApplied:
			printBoard(game.State())
		case gamesync.MoveQueued:
			fmt.Printf("premove queued: %s%s\n", from, to)
		default:
			fmt.Println("illegal move")
		}
	}
	return true
}

func sideName(c wire.Color) string {
	if c == wire.Black {
		return "black"
	}
	return "white"
}
