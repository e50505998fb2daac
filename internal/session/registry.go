package session

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

// Registry owns every room and the connection-to-room index. All state lives
// behind a single dispatch goroutine: commands are applied one at a time, so
// no two events interleave their effects and no locking is needed. Handlers
// do pure map mutation plus fan-out, which keeps the serialization point
// cheap.
type Registry struct {
	inbox   chan Command
	rooms   map[string]*Room
	byConn  map[string]string // connection id -> room code
	senders map[string]Sender // every attached connection, roomed or not

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRegistry(parent context.Context, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:   make(chan Command, 64),
		rooms:   make(map[string]*Room),
		byConn:  make(map[string]string),
		senders: make(map[string]Sender),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

// Dispatch queues a command for the dispatch loop. Commands from a single
// connection are applied in the order they were sent.
func (r *Registry) Dispatch(cmd Command) {
	select {
	case r.inbox <- cmd:
	case <-r.ctx.Done():
	}
}

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case m := <-r.inbox:
			switch cmd := m.(type) {
			case Attach:
				r.senders[cmd.ConnID] = cmd.Send
			case Detach:
				r.handleLeaveRoom(cmd.ConnID)
				delete(r.senders, cmd.ConnID)
			case CreateRoom:
				r.handleCreateRoom(cmd)
			case JoinRoom:
				r.handleJoinRoom(cmd)
			case ClaimSeat:
				r.handleClaimSeat(cmd)
			case LeaveSeat:
				r.handleLeaveSeat(cmd.ConnID)
			case RelayMove:
				r.handleRelayMove(cmd)
			case UpdateFEN:
				r.handleUpdateFEN(cmd)
			case LeaveRoom:
				r.handleLeaveRoom(cmd.ConnID)
			case GetRooms:
				r.sendTo(cmd.ConnID, wire.EventRoomsList, r.publicRooms())
			case PublicRooms:
				cmd.Reply <- r.publicRooms()
			case InspectRoom:
				if room, ok := r.rooms[cmd.Code]; ok {
					st := room.State()
					cmd.Reply <- &st
				} else {
					cmd.Reply <- nil
				}
			case Inspect:
				cmd.Reply <- View{Rooms: len(r.rooms), Connections: len(r.senders)}
			case Shutdown:
				r.cancel()
				return
			}
		}
	}
}

func (r *Registry) handleCreateRoom(cmd CreateRoom) {
	// A connection belongs to at most one room, so entering a new one
	// implies leaving the old one first.
	r.handleLeaveRoom(cmd.ConnID)

	code, err := r.newCode()
	if err != nil {
		r.log.Error("room_code_exhausted", zap.Error(err))
		r.sendError(cmd.ConnID, "Failed to create room")
		return
	}

	room := newRoom(code, cmd.Public)
	room.Spectators = append(room.Spectators, &Participant{ConnID: cmd.ConnID, Name: cmd.Name})
	r.rooms[code] = room
	r.byConn[cmd.ConnID] = code

	r.sendTo(cmd.ConnID, wire.EventRoomJoined, wire.RoomJoined{
		RoomState:   room.State(),
		MyColor:     nil,
		IsSpectator: true,
	})
	r.broadcastRoomsList()

	r.log.Info("room_create",
		zap.String("code", code),
		zap.String("conn_id", cmd.ConnID),
		zap.String("name", cmd.Name),
		zap.Bool("public", cmd.Public),
	)
}

func (r *Registry) handleJoinRoom(cmd JoinRoom) {
	room, ok := r.rooms[strings.ToUpper(strings.TrimSpace(cmd.Code))]
	if !ok {
		r.sendFault(cmd.ConnID, ErrRoomNotFound)
		return
	}
	if r.byConn[cmd.ConnID] == room.Code {
		// Rejoining the current room resends the snapshot without churning
		// membership.
		color, seated := room.seatOf(cmd.ConnID)
		var my *wire.Color
		if seated {
			my = &color
		}
		r.sendTo(cmd.ConnID, wire.EventRoomJoined, wire.RoomJoined{
			RoomState:   room.State(),
			MyColor:     my,
			IsSpectator: !seated,
		})
		return
	}
	if room.hasName(cmd.Name) {
		r.sendFault(cmd.ConnID, ErrNameTaken)
		return
	}

	// A connection belongs to at most one room, so joining implies leaving
	// any previous one first. A rejected join leaves membership untouched.
	r.handleLeaveRoom(cmd.ConnID)

	room.Spectators = append(room.Spectators, &Participant{ConnID: cmd.ConnID, Name: cmd.Name})
	r.byConn[cmd.ConnID] = room.Code

	r.sendTo(cmd.ConnID, wire.EventRoomJoined, wire.RoomJoined{
		RoomState:   room.State(),
		MyColor:     nil,
		IsSpectator: true,
	})
	r.publish(room, wire.EventRoomUpdated, room.State())

	r.log.Info("room_join",
		zap.String("code", room.Code),
		zap.String("conn_id", cmd.ConnID),
		zap.String("name", cmd.Name),
	)
}

func (r *Registry) handleClaimSeat(cmd ClaimSeat) {
	room := r.roomOf(cmd.ConnID)
	if room == nil || !cmd.Color.Valid() {
		r.log.Debug("seat_claim_ignored", zap.String("conn_id", cmd.ConnID))
		return
	}

	if room.occupant(cmd.Color) != nil {
		if cmd.Color == wire.White {
			r.sendFault(cmd.ConnID, ErrWhiteSeatTaken)
		} else {
			r.sendFault(cmd.ConnID, ErrBlackSeatTaken)
		}
		return
	}

	p := room.removeSpectator(cmd.ConnID)
	if p == nil {
		// Not a spectator: either already seated or a stale connection.
		if _, seated := room.seatOf(cmd.ConnID); seated {
			r.sendFault(cmd.ConnID, ErrAlreadySeated)
		} else {
			r.sendFault(cmd.ConnID, ErrNotInRoom)
		}
		return
	}

	p.Color = cmd.Color
	room.setSeat(cmd.Color, p)

	r.sendTo(cmd.ConnID, wire.EventSeatClaimed, wire.SeatClaimed{Color: cmd.Color})
	r.publish(room, wire.EventRoomUpdated, room.State())
	r.broadcastRoomsList()

	r.log.Info("seat_claim",
		zap.String("code", room.Code),
		zap.String("conn_id", cmd.ConnID),
		zap.String("color", string(cmd.Color)),
	)
}

func (r *Registry) handleLeaveSeat(connID string) {
	room := r.roomOf(connID)
	if room == nil {
		return
	}
	p, color, ok := room.vacateSeat(connID)
	if !ok {
		// Standing while unseated is a no-op, not an error.
		return
	}

	// A game cannot continue with a vacant seat, so the board resets for
	// everyone rather than waiting on a player who may never come back.
	room.FEN = StartFEN
	r.publish(room, wire.EventResetGame, nil)

	room.Spectators = append(room.Spectators, p)

	r.sendTo(connID, wire.EventSeatLeft, nil)
	r.publish(room, wire.EventRoomUpdated, room.State())
	r.broadcastRoomsList()

	r.log.Info("seat_leave",
		zap.String("code", room.Code),
		zap.String("conn_id", connID),
		zap.String("color", string(color)),
	)
}

func (r *Registry) handleRelayMove(cmd RelayMove) {
	room := r.roomOf(cmd.ConnID)
	if room == nil {
		return
	}
	if _, seated := room.seatOf(cmd.ConnID); !seated {
		// Dropped without an error reply; the log line keeps it observable.
		r.log.Debug("move_unauthorized",
			zap.String("code", room.Code),
			zap.String("conn_id", cmd.ConnID),
		)
		return
	}

	r.publish(room, wire.EventMove, cmd.Move, cmd.ConnID)

	r.log.Debug("move_relay",
		zap.String("code", room.Code),
		zap.String("from", cmd.Move.From),
		zap.String("to", cmd.Move.To),
	)
}

func (r *Registry) handleUpdateFEN(cmd UpdateFEN) {
	room := r.roomOf(cmd.ConnID)
	if room == nil {
		return
	}
	if _, seated := room.seatOf(cmd.ConnID); !seated {
		return
	}
	room.FEN = cmd.FEN
}

func (r *Registry) handleLeaveRoom(connID string) {
	code, ok := r.byConn[connID]
	if !ok {
		return
	}
	room := r.rooms[code]
	delete(r.byConn, connID)
	if room == nil {
		return
	}

	if _, _, wasSeated := room.vacateSeat(connID); wasSeated {
		room.FEN = StartFEN
		r.publish(room, wire.EventResetGame, nil)
	} else {
		room.removeSpectator(connID)
	}

	if room.empty() {
		delete(r.rooms, code)
		r.log.Info("room_destroy", zap.String("code", code))
	} else {
		r.publish(room, wire.EventRoomUpdated, room.State())
	}
	r.broadcastRoomsList()

	r.log.Info("room_leave",
		zap.String("code", code),
		zap.String("conn_id", connID),
	)
}

func (r *Registry) roomOf(connID string) *Room {
	code, ok := r.byConn[connID]
	if !ok {
		return nil
	}
	return r.rooms[code]
}

func (r *Registry) newCode() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, exists := r.rooms[code]; !exists {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func (r *Registry) publicRooms() []wire.RoomInfo {
	list := make([]wire.RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		if room.Public && room.seatedCount() < 2 {
			list = append(list, room.Info())
		}
	}
	return list
}

// publish fans one event out to every member of the room except the excluded
// connections.
func (r *Registry) publish(room *Room, event string, data any, excluding ...string) {
	for _, id := range room.memberIDs() {
		if contains(excluding, id) {
			continue
		}
		r.sendTo(id, event, data)
	}
}

// broadcastRoomsList refreshes the lobby view on every attached connection,
// not just roomed ones.
func (r *Registry) broadcastRoomsList() {
	list := r.publicRooms()
	for _, send := range r.senders {
		send(wire.EventRoomsList, list)
	}
}

func (r *Registry) sendTo(connID, event string, data any) {
	if send, ok := r.senders[connID]; ok {
		send(event, data)
	}
}

func (r *Registry) sendFault(connID string, f *Fault) {
	r.sendError(connID, f.Message)
}

func (r *Registry) sendError(connID, message string) {
	r.sendTo(connID, wire.EventError, message)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
