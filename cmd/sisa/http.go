package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"sisa/internal/auth"
	"sisa/internal/config"
	"sisa/internal/database"
	"sisa/internal/metrics"
	"sisa/internal/middleware"
	"sisa/internal/ws"
)

// startHTTPServer mounts the observer surface and serves it in the
// background, reporting a fatal listen error on errc.
func startHTTPServer(cfg *config.Config, db *database.Database, hub *ws.AlertHub, authenticator *auth.Authenticator, m *metrics.Metrics, errc chan<- error, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/ws/alerts", middleware.RequireAuth(authenticator, ws.NewHandler(hub)))
	mux.Handle("/ws/alerts/", middleware.RequireAuth(authenticator, ws.NewHandler(hub)))
	mux.Handle("GET /events", middleware.RequireAuth(authenticator, handleListEvents(db)))
	mux.Handle("GET /events/{id}/image", middleware.RequireAuth(authenticator, handleEventImage(db)))
	mux.Handle("POST /login", handleLogin(authenticator))
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Printf("HTTP server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	return server
}

type eventJSON struct {
	ID          string    `json:"id"`
	CameraID    string    `json:"camera_id"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	ImagePath   string    `json:"image_path,omitempty"`
}

// handleListEvents serves recorded alert events, newest first.
// Query parameters: camera_id, since (RFC3339), limit (default 100).
func handleListEvents(db *database.Database) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cameraID := r.URL.Query().Get("camera_id")

		var since *time.Time
		if s := r.URL.Query().Get("since"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid since timestamp", http.StatusBadRequest)
				return
			}
			since = &t
		}

		limit := 100
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		records, err := db.ListEvents(cameraID, since, limit)
		if err != nil {
			http.Error(w, "failed to list events", http.StatusInternalServerError)
			return
		}

		events := make([]eventJSON, 0, len(records))
		for _, rec := range records {
			events = append(events, eventJSON{
				ID:          rec.ID,
				CameraID:    rec.CameraID,
				Timestamp:   rec.Timestamp,
				Description: rec.Description,
				ImagePath:   rec.ImagePath,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(events)
	})
}

// handleEventImage serves the snapshot captured for an event.
func handleEventImage(db *database.Database) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event, err := db.GetEvent(r.PathValue("id"))
		if err != nil {
			http.Error(w, "failed to get event", http.StatusInternalServerError)
			return
		}
		if event == nil || event.ImagePath == "" {
			http.Error(w, "event image not found", http.StatusNotFound)
			return
		}
		http.ServeFile(w, r, event.ImagePath)
	})
}

// handleLogin exchanges operator credentials for a bearer token.
func handleLogin(authenticator *auth.Authenticator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		token, err := authenticator.Login(req.Username, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrAuthDisabled) {
				http.Error(w, "authentication is disabled", http.StatusNotFound)
				return
			}
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
}
