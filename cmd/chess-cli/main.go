package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	appcfg "github.com/TeaChoco/react-chess-ai/internal/config"
	"github.com/TeaChoco/react-chess-ai/internal/gamesync"
	"github.com/TeaChoco/react-chess-ai/internal/obslog"
	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

func main() {
	_ = godotenv.Load()

	local := flag.Bool("local", false, "play offline against the engine")
	color := flag.String("color", "w", "side to play in local mode (w|b)")
	preset := flag.String("preset", "", "difficulty preset in local mode (overrides AI_PRESET)")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	if *local {
		if *preset != "" {
			cfg.AIPreset = *preset
		}
		runLocal(cfg, wire.Color(strings.ToLower(*color)))
		return
	}
	runOnline(cfg)
}

func readLines(out chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	close(out)
}

// parseMove splits "e2e4", "e2 e4" or "e7e8q" into its parts.
func parseMove(args []string) (from, to, promotion string, ok bool) {
	joined := strings.ToLower(strings.Join(args, ""))
	if len(joined) < 4 || len(joined) > 5 {
		return "", "", "", false
	}
	return joined[:2], joined[2:4], joined[4:], true
}

func printBoard(st gamesync.State) {
	fields := strings.Fields(st.FEN)
	if len(fields) == 0 {
		return
	}
	fmt.Println("  +-----------------+")
	for i, rank := range strings.Split(fields[0], "/") {
		fmt.Printf("%d | ", 8-i)
		for _, c := range rank {
			if c >= '1' && c <= '8' {
				fmt.Print(strings.Repeat(". ", int(c-'0')))
				continue
			}
			fmt.Printf("%c ", c)
		}
		fmt.Println("|")
	}
	fmt.Println("  +-----------------+")
	fmt.Println("    a b c d e f g h")

	switch {
	case st.Checkmate:
		fmt.Println("Checkmate.")
	case st.Stalemate:
		fmt.Println("Stalemate.")
	case st.Draw:
		fmt.Println("Draw.")
	default:
		side := "white"
		if st.Turn == wire.Black {
			side = "black"
		}
		fmt.Printf("%s to move.\n", side)
	}
	if len(st.MovesSAN) > 0 {
		fmt.Printf("moves: %s\n", strings.Join(st.MovesSAN, " "))
	}
}
