package relay

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// LAN-oriented design, trusted peers.
		return true
	},
}

// HandleWS upgrades an HTTP request and hands the connection to the hub.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}
	h.Serve(conn)
}

// Router mounts the relay's HTTP surface.
func (h *Hub) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	r.Get("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		peers, bytesRelayed := h.DiagnosticsSnapshot()
		payload := struct {
			Status       string            `json:"status"`
			ServerTime   int64             `json:"serverTime"`
			Peers        []DiagnosticsPeer `json:"peers"`
			Capacity     int               `json:"capacity"`
			BytesRelayed uint64            `json:"bytesRelayed"`
		}{
			Status:       "ok",
			ServerTime:   time.Now().UnixMilli(),
			Peers:        peers,
			Capacity:     h.cfg.Capacity,
			BytesRelayed: bytesRelayed,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	r.Get("/ws", h.HandleWS)

	return r
}
