package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Database handles SQLite database operations
type Database struct {
	db *sql.DB
}

// CameraRecord represents a camera stored in the database
type CameraRecord struct {
	ID         string
	Name       string
	Host       string
	Port       int
	Username   string
	Password   string
	StreamPath string
	CreatedAt  time.Time
}

// EventRecord represents a persisted alert event.
// Records are immutable once created; they are removed only when their
// owning camera is deleted.
type EventRecord struct {
	ID          string
	CameraID    string
	Timestamp   time.Time
	Description string
	ImagePath   string
}

// New creates a new database connection. WAL mode and foreign keys are set
// through the DSN so every pooled connection gets them.
func New(dbPath string) (*Database, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate runs database migrations
func (d *Database) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS cameras (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			host TEXT NOT NULL,
			port INTEGER DEFAULT 554,
			username TEXT,
			password TEXT,
			stream_path TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			camera_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			description TEXT NOT NULL,
			image_path TEXT,
			FOREIGN KEY (camera_id) REFERENCES cameras(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_camera_time ON events(camera_id, timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_events_time ON events(timestamp DESC)`,
	}

	for _, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveCamera saves or updates a camera
func (d *Database) SaveCamera(cam *CameraRecord) error {
	query := `INSERT INTO cameras (id, name, host, port, username, password, stream_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			host = excluded.host,
			port = excluded.port,
			username = excluded.username,
			password = excluded.password,
			stream_path = excluded.stream_path`

	_, err := d.db.Exec(query, cam.ID, cam.Name, cam.Host, cam.Port, cam.Username, cam.Password, cam.StreamPath, cam.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save camera: %w", err)
	}
	return nil
}

// GetCamera retrieves a camera by ID
func (d *Database) GetCamera(id string) (*CameraRecord, error) {
	query := `SELECT id, name, host, port, username, password, stream_path, created_at FROM cameras WHERE id = ?`

	var cam CameraRecord
	err := d.db.QueryRow(query, id).Scan(&cam.ID, &cam.Name, &cam.Host, &cam.Port, &cam.Username, &cam.Password, &cam.StreamPath, &cam.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}
	return &cam, nil
}

// ListCameras returns all cameras
func (d *Database) ListCameras() ([]*CameraRecord, error) {
	query := `SELECT id, name, host, port, username, password, stream_path, created_at FROM cameras ORDER BY created_at DESC`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	defer rows.Close()

	var cameras []*CameraRecord
	for rows.Next() {
		var cam CameraRecord
		if err := rows.Scan(&cam.ID, &cam.Name, &cam.Host, &cam.Port, &cam.Username, &cam.Password, &cam.StreamPath, &cam.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		cameras = append(cameras, &cam)
	}
	return cameras, nil
}

// DeleteCamera deletes a camera by ID. Its events cascade.
func (d *Database) DeleteCamera(id string) error {
	_, err := d.db.Exec("DELETE FROM cameras WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete camera: %w", err)
	}
	return nil
}

// AddEvent inserts an alert event and returns its ID.
func (d *Database) AddEvent(event *EventRecord) (string, error) {
	query := `INSERT INTO events (id, camera_id, timestamp, description, image_path)
		VALUES (?, ?, ?, ?, ?)`

	_, err := d.db.Exec(query, event.ID, event.CameraID, event.Timestamp, event.Description, event.ImagePath)
	if err != nil {
		return "", fmt.Errorf("failed to save event: %w", err)
	}
	return event.ID, nil
}

// GetEvent retrieves an event by ID
func (d *Database) GetEvent(id string) (*EventRecord, error) {
	query := `SELECT id, camera_id, timestamp, description, image_path FROM events WHERE id = ?`

	var event EventRecord
	err := d.db.QueryRow(query, id).Scan(&event.ID, &event.CameraID, &event.Timestamp, &event.Description, &event.ImagePath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// ListEvents returns events with optional filtering
func (d *Database) ListEvents(cameraID string, since *time.Time, limit int) ([]*EventRecord, error) {
	query := `SELECT id, camera_id, timestamp, description, image_path FROM events WHERE 1=1`
	args := []interface{}{}

	if cameraID != "" {
		query += " AND camera_id = ?"
		args = append(args, cameraID)
	}

	if since != nil {
		query += " AND timestamp >= ?"
		args = append(args, *since)
	}

	query += " ORDER BY timestamp DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*EventRecord
	for rows.Next() {
		var event EventRecord
		if err := rows.Scan(&event.ID, &event.CameraID, &event.Timestamp, &event.Description, &event.ImagePath); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &event)
	}
	return events, nil
}

// DeleteOldEvents deletes events older than the specified time
func (d *Database) DeleteOldEvents(before time.Time) (int64, error) {
	result, err := d.db.Exec("DELETE FROM events WHERE timestamp < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", err)
	}
	return result.RowsAffected()
}
