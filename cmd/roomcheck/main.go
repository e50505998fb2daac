package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	appcfg "github.com/TeaChoco/react-chess-ai/internal/config"
	"github.com/TeaChoco/react-chess-ai/internal/netclient"
)

// roomcheck probes a running relay: HTTP health, room directory, and a short
// websocket observation window.
func main() {
	_ = godotenv.Load()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	client := netclient.NewClient(cfg.ServerBaseURL, netclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Healthz(ctx); err != nil {
		log.Printf("/healthz error: %v", err)
	} else {
		log.Println("/healthz ok")
	}

	rooms, err := client.Rooms(ctx)
	if err != nil {
		log.Printf("/rooms error: %v", err)
	} else {
		log.Printf("/rooms ok: %d public room(s)", len(rooms))
		for _, room := range rooms {
			log.Printf("  %s players=%d spectators=%d", room.ID, room.Players, room.Spectators)
		}
	}

	ws := netclient.NewWebSocket(cfg.ServerWSURL, 5, zap.NewNop())
	ws.OnStateChange(func(state netclient.ConnState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnEvent(func(event string, data []byte) {
		fmt.Printf("WS event=%s payload=%s\n", event, string(data))
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}
