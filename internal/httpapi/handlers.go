package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/TeaChoco/react-chess-ai/internal/session"
	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

// ListRooms serves the same payload as the rooms-list event over plain HTTP,
// for lobby pages that poll before opening a websocket and for the roomcheck
// probe.
func ListRooms(reg *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []wire.RoomInfo, 1)
		reg.Dispatch(session.PublicRooms{Reply: reply})

		select {
		case list := <-reply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(list)
		case <-r.Context().Done():
			http.Error(w, "request cancelled", http.StatusServiceUnavailable)
		}
	}
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
