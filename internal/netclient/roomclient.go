package netclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/TeaChoco/react-chess-ai/internal/gamesync"
	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

// RoomClient binds one websocket connection to one game mirror. Relay events
// drive the mirror; local move attempts flow back out through the connection.
type RoomClient struct {
	conn Conn
	log  *zap.Logger
	game *gamesync.Session

	mu        sync.Mutex
	roomID    string
	roomState wire.RoomState
	roomsList []wire.RoomInfo

	onError func(message string)
	onRooms func([]wire.RoomInfo)
	onSync  func()
}

func NewRoomClient(conn Conn, log *zap.Logger) *RoomClient {
	if log == nil {
		log = zap.NewNop()
	}
	rc := &RoomClient{conn: conn, log: log}
	rc.game = gamesync.NewOnline(rc.sendMove)
	conn.OnEvent(rc.dispatch)
	return rc
}

// Game exposes the mirror for move input and board rendering.
func (rc *RoomClient) Game() *gamesync.Session { return rc.game }

// OnError registers a handler for relay error events.
func (rc *RoomClient) OnError(cb func(message string)) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.onError = cb
}

// OnRoomsList registers a handler for directory refreshes.
func (rc *RoomClient) OnRoomsList(cb func([]wire.RoomInfo)) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.onRooms = cb
}

// OnSync registers a handler fired after any event that changed room or
// board state.
func (rc *RoomClient) OnSync(cb func()) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.onSync = cb
}

func (rc *RoomClient) CreateRoom(ctx context.Context, name string, public bool) error {
	return rc.conn.Send(ctx, wire.EventCreateRoom, wire.CreateRoom{IsPublic: public, Name: name})
}

func (rc *RoomClient) JoinRoom(ctx context.Context, code, name string) error {
	return rc.conn.Send(ctx, wire.EventJoinRoom, wire.JoinRoom{RoomID: code, Name: name})
}

func (rc *RoomClient) ClaimSeat(ctx context.Context, color wire.Color) error {
	return rc.conn.Send(ctx, wire.EventClaimSeat, wire.ClaimSeat{Color: color})
}

func (rc *RoomClient) LeaveSeat(ctx context.Context) error {
	return rc.conn.Send(ctx, wire.EventLeaveSeat, nil)
}

func (rc *RoomClient) LeaveRoom(ctx context.Context) error {
	rc.mu.Lock()
	rc.roomID = ""
	rc.roomState = wire.RoomState{}
	rc.mu.Unlock()
	rc.game.ClearSeat()
	return rc.conn.Send(ctx, wire.EventLeaveRoom, nil)
}

func (rc *RoomClient) RequestRooms(ctx context.Context) error {
	return rc.conn.Send(ctx, wire.EventGetRooms, nil)
}

// RoomID is empty until a room-joined event arrives.
func (rc *RoomClient) RoomID() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.roomID
}

// RoomState is the latest seat and spectator snapshot from the relay.
func (rc *RoomClient) RoomState() wire.RoomState {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.roomState
}

// RoomsList is the latest public room directory received.
func (rc *RoomClient) RoomsList() []wire.RoomInfo {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]wire.RoomInfo(nil), rc.roomsList...)
}

// sendMove pushes an applied move plus the resulting snapshot, so the relay
// can hand an accurate board to anyone who joins mid-game.
func (rc *RoomClient) sendMove(m wire.Move, fen string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.conn.Send(ctx, wire.EventMove, m); err != nil {
		rc.log.Warn("move_send_failed", zap.Error(err))
		return
	}
	if err := rc.conn.Send(ctx, wire.EventUpdateFEN, wire.UpdateFEN{FEN: fen}); err != nil {
		rc.log.Debug("fen_send_failed", zap.Error(err))
	}
}

func (rc *RoomClient) dispatch(event string, data []byte) {
	switch event {
	case wire.EventRoomJoined:
		var payload wire.RoomJoined
		if !rc.bind(event, data, &payload) {
			return
		}
		rc.mu.Lock()
		rc.roomID = payload.RoomID
		rc.roomState = payload.RoomState
		rc.mu.Unlock()
		if err := rc.game.LoadFEN(payload.FEN); err != nil {
			rc.log.Warn("room_fen_rejected", zap.String("room_id", payload.RoomID), zap.Error(err))
		}
		if payload.MyColor != nil && !payload.IsSpectator {
			rc.game.SetSeat(*payload.MyColor)
		} else {
			rc.game.ClearSeat()
		}
		rc.notifySync()

	case wire.EventRoomUpdated:
		var payload wire.RoomState
		if !rc.bind(event, data, &payload) {
			return
		}
		rc.mu.Lock()
		rc.roomState = payload
		rc.mu.Unlock()
		rc.notifySync()

	case wire.EventSeatClaimed:
		var payload wire.SeatClaimed
		if !rc.bind(event, data, &payload) {
			return
		}
		rc.game.SetSeat(payload.Color)
		rc.notifySync()

	case wire.EventSeatLeft:
		rc.game.ClearSeat()
		rc.notifySync()

	case wire.EventMove:
		var payload wire.Move
		if !rc.bind(event, data, &payload) {
			return
		}
		if !rc.game.ApplyRemote(payload) {
			rc.log.Warn("remote_move_rejected",
				zap.String("from", payload.From), zap.String("to", payload.To))
		}
		rc.notifySync()

	case wire.EventResetGame:
		rc.game.ApplyReset()
		rc.notifySync()

	case wire.EventRoomsList:
		var payload []wire.RoomInfo
		if !rc.bind(event, data, &payload) {
			return
		}
		rc.mu.Lock()
		rc.roomsList = payload
		cb := rc.onRooms
		rc.mu.Unlock()
		if cb != nil {
			cb(payload)
		}

	case wire.EventError:
		var message string
		if err := json.Unmarshal(data, &message); err != nil {
			message = string(data)
		}
		rc.mu.Lock()
		cb := rc.onError
		rc.mu.Unlock()
		if cb != nil {
			cb(message)
		}

	default:
		rc.log.Debug("event_unhandled", zap.String("event", event))
	}
}

func (rc *RoomClient) bind(event string, data []byte, out any) bool {
	if err := json.Unmarshal(data, out); err != nil {
		rc.log.Warn("event_payload_invalid", zap.String("event", event), zap.Error(err))
		return false
	}
	return true
}

func (rc *RoomClient) notifySync() {
	rc.mu.Lock()
	cb := rc.onSync
	rc.mu.Unlock()
	if cb != nil {
		cb()
	}
}
