package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	appcfg "github.com/TeaChoco/react-chess-ai/internal/config"
	"github.com/TeaChoco/react-chess-ai/internal/gamesync"
	"github.com/TeaChoco/react-chess-ai/internal/netclient"
	"github.com/TeaChoco/react-chess-ai/internal/obslog"
	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

func runOnline(cfg *appcfg.AppConfig) {
	conn := netclient.NewWebSocket(cfg.ServerWSURL, 5, obslog.L())
	conn.OnStateChange(func(state netclient.ConnState) {
		fmt.Printf("[connection: %s]\n", state)
	})

	client := netclient.NewRoomClient(conn, obslog.L())
	client.OnError(func(message string) {
		fmt.Println("server error:", message)
	})
	client.OnRoomsList(func(rooms []wire.RoomInfo) {
		printRooms(rooms)
	})
	client.OnSync(func() {
		printBoard(client.Game().State())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := conn.Connect(ctx); err != nil {
		cancel()
		log.Fatalf("connect %s: %v", cfg.ServerWSURL, err)
	}
	cancel()
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer closeCancel()
		_ = conn.Close(closeCtx)
	}()

	fmt.Printf("Connected to %s.\n", cfg.ServerWSURL)
	fmt.Println("Commands: rooms, create <name> [public], join <code> <name>, seat w|b, stand, <move e2e4>, board, leave, quit")

	lines := make(chan string)
	go readLines(lines)
	for line := range lines {
		if !handleOnlineCommand(client, line) {
			return
		}
	}
}

func handleOnlineCommand(client *netclient.RoomClient, line string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return false
	case "rooms":
		if err := client.RequestRooms(ctx); err != nil {
			fmt.Println("rooms:", err)
		}
	case "create":
		if len(fields) < 2 {
			fmt.Println("usage: create <name> [public]")
			return true
		}
		public := len(fields) >= 3 && strings.EqualFold(fields[2], "public")
		if err := client.CreateRoom(ctx, fields[1], public); err != nil {
			fmt.Println("create:", err)
		}
	case "join":
		if len(fields) < 3 {
			fmt.Println("usage: join <code> <name>")
			return true
		}
		if err := client.JoinRoom(ctx, strings.ToUpper(fields[1]), fields[2]); err != nil {
			fmt.Println("join:", err)
		}
	case "seat":
		if len(fields) < 2 {
			fmt.Println("usage: seat w|b")
			return true
		}
		color := wire.Color(strings.ToLower(fields[1]))
		if !color.Valid() {
			fmt.Println("usage: seat w|b")
			return true
		}
		if err := client.ClaimSeat(ctx, color); err != nil {
			fmt.Println("seat:", err)
		}
	case "stand":
		if err := client.LeaveSeat(ctx); err != nil {
			fmt.Println("stand:", err)
		}
	case "leave":
		if err := client.LeaveRoom(ctx); err != nil {
			fmt.Println("leave:", err)
		}
	case "board":
		printBoard(client.Game().State())
		printRoomState(client.RoomState())
	default:
		from, to, promotion, ok := parseMove(fields)
		if !ok {
			fmt.Println("unrecognized command; try rooms, create, join, seat, stand, e2e4, board, leave, quit")
			return true
		}
		switch client.Game().AttemptMove(from, to, promotion) {
		case gamesync.MoveApplied:
			printBoard(client.Game().State())
		case gamesync.MoveQueued:
			fmt.Printf("premove queued: %s%s\n", from, to)
		default:
			fmt.Println("move rejected")
		}
	}
	return true
}

func printRooms(rooms []wire.RoomInfo) {
	if len(rooms) == 0 {
		fmt.Println("no public rooms")
		return
	}
	for _, room := range rooms {
		fmt.Printf("%s  players=%d spectators=%d\n", room.ID, room.Players, room.Spectators)
	}
}

func printRoomState(state wire.RoomState) {
	if state.RoomID == "" {
		return
	}
	white, black := "-", "-"
	if state.WhitePlayer != nil {
		white = state.WhitePlayer.Name
	}
	if state.BlackPlayer != nil {
		black = state.BlackPlayer.Name
	}
	fmt.Printf("room %s  white=%s black=%s spectators=%d\n",
		state.RoomID, white, black, len(state.Spectators))
}
