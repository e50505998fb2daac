package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/TeaChoco/react-chess-ai/internal/session"
	"github.com/TeaChoco/react-chess-ai/internal/transport/ws"
)

// SetupRoutes builds the server's HTTP surface with the registry injected:
// the websocket endpoint plus the plain-HTTP lobby and health probes.
func SetupRoutes(reg *session.Registry, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/rooms", ListRooms(reg))
	r.Get("/ws", ws.Handler(reg, log))
	return r
}
