package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sisa/internal/camera"
	"sisa/internal/capture"
	"sisa/internal/database"
)

// ErrSuppressed is returned by Record when the camera is still inside its
// cooldown window. No disk write and no store call happen in that case.
var ErrSuppressed = errors.New("alert suppressed by cooldown")

// EventStore persists alert events. Implemented by the sqlite database; the
// store is assumed to serialize its own writes.
type EventStore interface {
	AddEvent(event *database.EventRecord) (string, error)
}

// Recorder turns accepted alert decisions into persisted events: the frame
// image is written to storage first, then the record is handed to the store
// (write-then-index, so no record ever points at a missing image).
type Recorder struct {
	storageDir string
	tracker    *CooldownTracker
	store      EventStore
	bus        *EventBus
	now        func() time.Time
}

// NewRecorder creates an event recorder.
func NewRecorder(storageDir string, tracker *CooldownTracker, store EventStore, bus *EventBus) *Recorder {
	return &Recorder{
		storageDir: storageDir,
		tracker:    tracker,
		store:      store,
		bus:        bus,
		now:        time.Now,
	}
}

// Record persists one alert for a camera. Returns ErrSuppressed inside the
// cooldown window. A disk or store failure returns *PersistenceError; the
// consumed cooldown slot stands, capping the alert rate on a broken disk.
func (r *Recorder) Record(cam *camera.Camera, frame *capture.Frame, description string) (*AlertEvent, error) {
	now := r.now()

	if !r.tracker.Acquire(cam.ID, now) {
		return nil, ErrSuppressed
	}

	if err := os.MkdirAll(r.storageDir, 0o755); err != nil {
		return nil, &PersistenceError{CameraID: cam.ID, Err: err}
	}

	filename := fmt.Sprintf("%s_%s.jpg", sanitizeName(cam.Name), now.Format("20060102_150405"))
	imagePath := filepath.Join(r.storageDir, filename)

	if err := os.WriteFile(imagePath, frame.Data, 0o644); err != nil {
		return nil, &PersistenceError{CameraID: cam.ID, Err: err}
	}

	record := &database.EventRecord{
		ID:          uuid.New().String(),
		CameraID:    cam.ID,
		Timestamp:   now,
		Description: description,
		ImagePath:   imagePath,
	}

	id, err := r.store.AddEvent(record)
	if err != nil {
		return nil, &PersistenceError{CameraID: cam.ID, Err: err}
	}

	event := &AlertEvent{
		ID:          id,
		CameraID:    cam.ID,
		CameraName:  cam.Name,
		Timestamp:   now,
		Description: description,
		ImagePath:   imagePath,
	}

	if r.bus != nil {
		r.bus.PublishAlert(event)
	}
	return event, nil
}

// sanitizeName strips characters other than alphanumerics, space, hyphen and
// underscore so the camera name is safe in a filename.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return r
		}
		return -1
	}, name)
}
