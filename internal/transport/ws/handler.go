package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/TeaChoco/react-chess-ai/internal/session"
	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

const (
	outboxSize   = 32
	writeTimeout = 3 * time.Second
)

// Handler upgrades the connection and bridges it to the registry: a reader
// loop turning envelopes into commands, and a writer goroutine draining the
// per-connection outbox. The registry never touches the socket directly.
func Handler(reg *session.Registry, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			log.Warn("ws_accept_error", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		outbox := make(chan wire.Envelope, outboxSize)

		// Invoked inline by the dispatch loop; must never block it. A full
		// outbox means the client stopped reading, so the event is dropped.
		send := func(event string, data any) {
			env, err := wire.NewEnvelope(event, data)
			if err != nil {
				log.Error("ws_encode_error", zap.String("conn_id", connID), zap.Error(err))
				return
			}
			select {
			case outbox <- env:
			default:
				log.Warn("ws_outbox_full",
					zap.String("conn_id", connID),
					zap.String("event", event),
				)
			}
		}

		reg.Dispatch(session.Attach{ConnID: connID, Send: send})
		defer reg.Dispatch(session.Detach{ConnID: connID})

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case env := <-outbox:
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := wsjson.Write(ctx, conn, env)
					cancel()
					if err != nil {
						return
					}
				}
			}
		}()

		log.Info("ws_connect", zap.String("conn_id", connID))

		for {
			var env wire.Envelope
			if err := wsjson.Read(r.Context(), conn, &env); err != nil {
				log.Info("ws_disconnect",
					zap.String("conn_id", connID),
					zap.Int("close_status", int(websocket.CloseStatus(err))),
				)
				return
			}
			handleEnvelope(reg, connID, env, send, log)
		}
	}
}

func handleEnvelope(reg *session.Registry, connID string, env wire.Envelope, send session.Sender, log *zap.Logger) {
	switch env.Event {
	case wire.EventCreateRoom:
		var p wire.CreateRoom
		if env.Bind(&p) != nil {
			send(wire.EventError, "Invalid payload")
			return
		}
		reg.Dispatch(session.CreateRoom{ConnID: connID, Name: p.Name, Public: p.IsPublic})
	case wire.EventJoinRoom:
		var p wire.JoinRoom
		if env.Bind(&p) != nil {
			send(wire.EventError, "Invalid payload")
			return
		}
		reg.Dispatch(session.JoinRoom{ConnID: connID, Code: p.RoomID, Name: p.Name})
	case wire.EventClaimSeat:
		var p wire.ClaimSeat
		if env.Bind(&p) != nil {
			send(wire.EventError, "Invalid payload")
			return
		}
		reg.Dispatch(session.ClaimSeat{ConnID: connID, Color: p.Color})
	case wire.EventLeaveSeat:
		reg.Dispatch(session.LeaveSeat{ConnID: connID})
	case wire.EventMove:
		var p wire.Move
		if env.Bind(&p) != nil {
			// Same policy as an unauthorized move: dropped, not surfaced.
			return
		}
		reg.Dispatch(session.RelayMove{ConnID: connID, Move: p})
	case wire.EventUpdateFEN:
		var p wire.UpdateFEN
		if env.Bind(&p) != nil {
			return
		}
		reg.Dispatch(session.UpdateFEN{ConnID: connID, FEN: p.FEN})
	case wire.EventLeaveRoom:
		reg.Dispatch(session.LeaveRoom{ConnID: connID})
	case wire.EventGetRooms:
		reg.Dispatch(session.GetRooms{ConnID: connID})
	default:
		log.Debug("ws_unknown_event",
			zap.String("conn_id", connID),
			zap.String("event", env.Event),
		)
	}
}
