package ws

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 32 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

// Handler handles WebSocket connections for real-time alerts
type Handler struct {
	hub *AlertHub
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *AlertHub) *Handler {
	return &Handler{hub: hub}
}

// ServeHTTP handles WebSocket upgrade requests.
// URL format: /ws/alerts for all cameras, /ws/alerts/{camera_id} for one.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cameraID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws/alerts"), "/")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	h.hub.Register(cameraID, conn)

	// Reader loop: we ignore client payloads, but reading detects closes.
	go func() {
		defer func() {
			h.hub.Unregister(cameraID, conn)
			conn.Close()
		}()

		conn.SetReadLimit(1024)
		conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			return nil
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
