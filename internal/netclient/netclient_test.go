package netclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TeaChoco/react-chess-ai/internal/gamesync"
	"github.com/TeaChoco/react-chess-ai/internal/httpapi"
	"github.com/TeaChoco/react-chess-ai/internal/netclient"
	"github.com/TeaChoco/react-chess-ai/internal/session"
	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

func startRelay(t *testing.T) (*httptest.Server, *session.Registry) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	reg := session.NewRegistry(ctx, zap.NewNop())
	srv := httptest.NewServer(httpapi.SetupRoutes(reg, zap.NewNop()))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, reg
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func dialRoomClient(t *testing.T, srv *httptest.Server) *netclient.RoomClient {
	t.Helper()
	conn := netclient.NewWebSocket(wsURL(srv), 0, zap.NewNop())
	rc := netclient.NewRoomClient(conn, zap.NewNop())
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = conn.Close(ctx)
	})
	return rc
}

func TestHealthzAndRooms_AgainstLiveRelay(t *testing.T) {
	srv, reg := startRelay(t)
	client := netclient.NewClient(srv.URL)

	require.NoError(t, client.Healthz(context.Background()))

	rooms, err := client.Rooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rooms)

	reg.Dispatch(session.Attach{ConnID: "probe", Send: func(string, any) {}})
	reg.Dispatch(session.CreateRoom{ConnID: "probe", Name: "host", Public: true})

	waitFor(t, "public room in directory", func() bool {
		rooms, err := client.Rooms(context.Background())
		return err == nil && len(rooms) == 1
	})
}

func TestClient_RetriesTransientServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := netclient.NewClient(srv.URL, netclient.WithRetry(3))
	rooms, err := client.Rooms(context.Background())

	require.NoError(t, err)
	assert.Empty(t, rooms)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_HonorsRetryBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := netclient.NewClient(srv.URL, netclient.WithRetry(2))
	_, err := client.Rooms(context.Background())
	assert.Error(t, err)
}

func TestRoomClient_CreateClaimAndRelayMove(t *testing.T) {
	srv, _ := startRelay(t)

	host := dialRoomClient(t, srv)
	require.NoError(t, host.CreateRoom(context.Background(), "alice", true))
	waitFor(t, "host room-joined", func() bool { return host.RoomID() != "" })
	assert.True(t, host.Game().Spectating(), "the creator starts as a spectator")

	require.NoError(t, host.ClaimSeat(context.Background(), wire.White))
	waitFor(t, "host seat-claimed", func() bool { return !host.Game().Spectating() })
	assert.Equal(t, wire.White, host.Game().MyColor())

	guest := dialRoomClient(t, srv)
	require.NoError(t, guest.JoinRoom(context.Background(), host.RoomID(), "bob"))
	waitFor(t, "guest room-joined", func() bool { return guest.RoomID() == host.RoomID() })

	require.NoError(t, guest.ClaimSeat(context.Background(), wire.Black))
	waitFor(t, "guest seat-claimed", func() bool { return !guest.Game().Spectating() })

	require.Equal(t, gamesync.MoveApplied, host.Game().AttemptMove("e2", "e4", ""))
	waitFor(t, "move relayed to guest", func() bool {
		st := guest.Game().State()
		return len(st.MovesUCI) == 1 && st.MovesUCI[0] == "e2e4"
	})
	assert.Equal(t, wire.Black, guest.Game().State().Turn)

	// a late joiner gets the post-move snapshot, not the start position
	late := dialRoomClient(t, srv)
	require.NoError(t, late.JoinRoom(context.Background(), host.RoomID(), "carol"))
	waitFor(t, "late spectator sees the live position", func() bool {
		return late.RoomID() != "" && late.Game().State().Turn == wire.Black
	})
}

func TestRoomClient_SeatConflictSurfacesError(t *testing.T) {
	srv, _ := startRelay(t)

	host := dialRoomClient(t, srv)
	require.NoError(t, host.CreateRoom(context.Background(), "alice", false))
	waitFor(t, "host room-joined", func() bool { return host.RoomID() != "" })
	require.NoError(t, host.ClaimSeat(context.Background(), wire.White))
	waitFor(t, "host seated", func() bool { return !host.Game().Spectating() })

	guest := dialRoomClient(t, srv)
	var guestErr atomic.Value
	guest.OnError(func(message string) { guestErr.Store(message) })
	require.NoError(t, guest.JoinRoom(context.Background(), host.RoomID(), "bob"))
	waitFor(t, "guest room-joined", func() bool { return guest.RoomID() != "" })

	require.NoError(t, guest.ClaimSeat(context.Background(), wire.White))
	waitFor(t, "seat conflict error", func() bool { return guestErr.Load() != nil })
	assert.Equal(t, "White seat is taken", guestErr.Load())
	assert.True(t, guest.Game().Spectating())
}

func TestRoomClient_SeatLeaveResetsBoardEverywhere(t *testing.T) {
	srv, _ := startRelay(t)

	host := dialRoomClient(t, srv)
	require.NoError(t, host.CreateRoom(context.Background(), "alice", false))
	waitFor(t, "host room-joined", func() bool { return host.RoomID() != "" })
	require.NoError(t, host.ClaimSeat(context.Background(), wire.White))
	waitFor(t, "host seated", func() bool { return !host.Game().Spectating() })

	guest := dialRoomClient(t, srv)
	require.NoError(t, guest.JoinRoom(context.Background(), host.RoomID(), "bob"))
	waitFor(t, "guest room-joined", func() bool { return guest.RoomID() != "" })
	require.NoError(t, guest.ClaimSeat(context.Background(), wire.Black))
	waitFor(t, "guest seated", func() bool { return !guest.Game().Spectating() })

	host.Game().AttemptMove("e2", "e4", "")
	waitFor(t, "move relayed", func() bool { return len(guest.Game().State().MovesUCI) == 1 })

	require.NoError(t, host.LeaveSeat(context.Background()))
	waitFor(t, "host back to spectating", func() bool { return host.Game().Spectating() })
	waitFor(t, "guest board reset", func() bool { return len(guest.Game().State().MovesUCI) == 0 })
	assert.Equal(t, wire.White, guest.Game().State().Turn)
}

func TestWebSocket_StateTransitions(t *testing.T) {
	srv, _ := startRelay(t)

	conn := netclient.NewWebSocket(wsURL(srv), 0, zap.NewNop())
	var states []netclient.ConnState
	conn.OnStateChange(func(s netclient.ConnState) { states = append(states, s) })

	require.NoError(t, conn.Connect(context.Background()))
	require.Equal(t, netclient.StateConnected, conn.State())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Close(ctx))

	require.GreaterOrEqual(t, len(states), 2)
	assert.Equal(t, netclient.StateConnecting, states[0])
	assert.Equal(t, netclient.StateConnected, states[1])
}

func TestWebSocket_SendSafeDuringClose(t *testing.T) {
	srv, _ := startRelay(t)

	conn := netclient.NewWebSocket(wsURL(srv), 0, zap.NewNop())
	require.NoError(t, conn.Connect(context.Background()))

	// Senders keep writing while the connection tears down; every call must
	// either deliver or return an error, never touch a half-detached conn.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = conn.Send(context.Background(), wire.EventGetRooms, nil)
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Close(ctx))
	wg.Wait()

	assert.Error(t, conn.Send(context.Background(), wire.EventGetRooms, nil))
}

func TestWebSocket_DialFailureWithoutRetryEndsFailed(t *testing.T) {
	conn := netclient.NewWebSocket("ws://127.0.0.1:1/ws", 0, zap.NewNop())
	err := conn.Connect(context.Background())

	require.Error(t, err)
	assert.Equal(t, netclient.StateFailed, conn.State())
}

func TestWebSocket_SendRequiresConnection(t *testing.T) {
	conn := netclient.NewWebSocket("ws://127.0.0.1:1/ws", 0, zap.NewNop())
	err := conn.Send(context.Background(), wire.EventGetRooms, nil)
	assert.Error(t, err)
}
