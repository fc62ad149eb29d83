package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/Averyy/bridge-up/internal/fanout"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// CheckOrigin is permissive: this gateway is a public read-only feed,
	// gated by rate limiting rather than origin, per spec.md §4.9.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve upgrades GET /ws and registers the resulting client with the hub.
// No data is pushed until the client sends a subscribe action (spec.md §4.8).
func (h *Handlers) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := fanout.NewClient(h.hub, conn, h.source)
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}
