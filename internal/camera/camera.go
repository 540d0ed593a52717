package camera

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"sisa/internal/database"
)

// Camera describes a configured surveillance camera.
// Descriptors are created and edited elsewhere; the detection pipeline
// treats them as read-only.
type Camera struct {
	ID         string
	Name       string
	Host       string
	Port       int
	Username   string
	Password   string
	StreamPath string
	CreatedAt  time.Time
}

// DefaultRTSPPort is used when a descriptor has no port set.
const DefaultRTSPPort = 554

// StreamURL builds the RTSP locator for the camera.
// Local cameras resolve to a device index understood by the capture layer.
func (c *Camera) StreamURL() string {
	if c.IsLocal() {
		return "0"
	}
	port := c.Port
	if port <= 0 {
		port = DefaultRTSPPort
	}
	u := url.URL{
		Scheme: "rtsp",
		Host:   fmt.Sprintf("%s:%d", c.Host, port),
		Path:   "/" + strings.TrimPrefix(c.StreamPath, "/"),
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

// IsLocal reports whether the camera is a local device (built-in webcam or
// demo source). Local cameras are never monitored by the background
// supervisor.
func (c *Camera) IsLocal() bool {
	host := strings.ToLower(strings.TrimSpace(c.Host))
	name := strings.ToLower(strings.TrimSpace(c.Name))
	switch {
	case host == "":
		return true
	case host == "demo" || name == "cam demo":
		return true
	case host == "localhost" || host == "127.0.0.1":
		return true
	case strings.HasPrefix(host, "/dev/"):
		return true
	}
	return false
}

// Validate checks the descriptor fields the monitor loop depends on.
func (c *Camera) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("camera has no id")
	}
	if c.Name == "" {
		return fmt.Errorf("camera %s has no name", c.ID)
	}
	if !c.IsLocal() && c.Username == "" {
		return fmt.Errorf("camera %s (%s) has no username for its stream", c.Name, c.Host)
	}
	return nil
}

// Registry holds the cameras known at startup, loaded from the database.
type Registry struct {
	cameras map[string]*Camera
	mu      sync.RWMutex
}

// NewRegistry loads all camera descriptors from the store.
func NewRegistry(db *database.Database) (*Registry, error) {
	records, err := db.ListCameras()
	if err != nil {
		return nil, fmt.Errorf("failed to load cameras: %w", err)
	}

	r := &Registry{cameras: make(map[string]*Camera, len(records))}
	for _, rec := range records {
		r.cameras[rec.ID] = fromRecord(rec)
	}
	return r, nil
}

func fromRecord(rec *database.CameraRecord) *Camera {
	return &Camera{
		ID:         rec.ID,
		Name:       rec.Name,
		Host:       rec.Host,
		Port:       rec.Port,
		Username:   rec.Username,
		Password:   rec.Password,
		StreamPath: rec.StreamPath,
		CreatedAt:  rec.CreatedAt,
	}
}

// Get retrieves a camera by ID.
func (r *Registry) Get(id string) (*Camera, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cam, ok := r.cameras[id]
	return cam, ok
}

// List returns all cameras.
func (r *Registry) List() []*Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cameras := make([]*Camera, 0, len(r.cameras))
	for _, cam := range r.cameras {
		cameras = append(cameras, cam)
	}
	return cameras
}

// Monitored returns the cameras the background supervisor should watch:
// every valid non-local camera.
func (r *Registry) Monitored() []*Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cameras := make([]*Camera, 0, len(r.cameras))
	for _, cam := range r.cameras {
		if cam.IsLocal() {
			continue
		}
		cameras = append(cameras, cam)
	}
	return cameras
}
