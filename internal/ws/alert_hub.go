package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sisa/internal/pipeline"
)

// AlertHub manages WebSocket connections for real-time alert streaming.
// Clients subscribe per camera; the empty camera ID subscribes to all.
type AlertHub struct {
	// clients maps camera_id -> set of connections
	clients map[string]map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewAlertHub creates a new alert hub
func NewAlertHub() *AlertHub {
	return &AlertHub{
		clients: make(map[string]map[*websocket.Conn]bool),
	}
}

// Register adds a connection for a specific camera ("" for all cameras).
func (h *AlertHub) Register(cameraID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[cameraID] == nil {
		h.clients[cameraID] = make(map[*websocket.Conn]bool)
	}
	h.clients[cameraID][conn] = true
	log.Printf("[WS] Client registered for camera %q (total: %d)", cameraID, len(h.clients[cameraID]))
}

// Unregister removes a connection.
func (h *AlertHub) Unregister(cameraID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[cameraID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, cameraID)
		}
	}
}

// HasClients returns true if any client would receive messages for a camera.
func (h *AlertHub) HasClients(cameraID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if conns, ok := h.clients[""]; ok && len(conns) > 0 {
		return true
	}
	conns, ok := h.clients[cameraID]
	return ok && len(conns) > 0
}

// ClientCount returns the total number of connected clients
func (h *AlertHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, conns := range h.clients {
		count += len(conns)
	}
	return count
}

// broadcast sends a message to subscribers of cameraID and to all-camera
// subscribers.
func (h *AlertHub) broadcast(cameraID string, message []byte) {
	h.mu.RLock()
	targets := make([]*websocket.Conn, 0)
	keys := make([]string, 0, 2)
	for conn := range h.clients[cameraID] {
		targets = append(targets, conn)
		keys = append(keys, cameraID)
	}
	if cameraID != "" {
		for conn := range h.clients[""] {
			targets = append(targets, conn)
			keys = append(keys, "")
		}
	}
	h.mu.RUnlock()

	for i, conn := range targets {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("[WS] Error sending to client: %v", err)
			h.Unregister(keys[i], conn)
			conn.Close()
		}
	}
}

// OnAlert implements pipeline.AlertHandler: alert events fan out to clients.
func (h *AlertHub) OnAlert(event *pipeline.AlertEvent) {
	if !h.HasClients(event.CameraID) {
		return
	}

	data, err := json.Marshal(NewAlertMessage(event))
	if err != nil {
		log.Printf("[WS] Error marshaling alert message: %v", err)
		return
	}
	h.broadcast(event.CameraID, data)
}

// OnDetectionUpdate implements pipeline.DetectionHandler: per-tick boxes
// fan out to clients for display.
func (h *AlertHub) OnDetectionUpdate(update *pipeline.DetectionUpdate) {
	if !h.HasClients(update.CameraID) {
		return
	}

	data, err := json.Marshal(NewDetectionMessage(update))
	if err != nil {
		log.Printf("[WS] Error marshaling detection message: %v", err)
		return
	}
	h.broadcast(update.CameraID, data)
}

// Ensure AlertHub observes the pipeline through its public handler contracts
var (
	_ pipeline.AlertHandler     = (*AlertHub)(nil)
	_ pipeline.DetectionHandler = (*AlertHub)(nil)
)
