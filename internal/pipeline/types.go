package pipeline

import (
	"fmt"
	"time"

	"sisa/internal/detection"
)

// Alert reasons. The forklift-pair reason takes precedence when both
// conditions hold on the same tick.
const (
	ReasonForkliftsTooClose  = "two forklifts too close"
	ReasonPersonNearForklift = "person near forklift"
)

// Decision is the outcome of one proximity evaluation. Pure data, produced
// once per detection tick.
type Decision struct {
	Triggered bool
	Reason    string
}

// AlertEvent is the plain data event emitted for every accepted alert.
// Observers (websocket hub, logs) subscribe via the event bus; the pipeline
// never reaches into presentation state.
type AlertEvent struct {
	ID          string    `json:"id"`
	CameraID    string    `json:"camera_id"`
	CameraName  string    `json:"camera_name"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	ImagePath   string    `json:"image_path"`
}

// DetectionUpdate carries the boxes computed on one detection tick, for
// display consumers. Published every tick whether or not an alert fired, so
// the viewer path shares the background loop's inference instead of running
// its own.
type DetectionUpdate struct {
	CameraID  string          `json:"camera_id"`
	FrameSeq  uint64          `json:"frame_seq"`
	Timestamp time.Time       `json:"timestamp"`
	Forklifts []detection.Box `json:"forklifts"`
	Persons   []detection.Box `json:"persons"`
	Decision  Decision        `json:"-"`
}

// PersistenceError reports a failed event write (image file or store
// insert). The event is lost; the loop continues.
type PersistenceError struct {
	CameraID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist event for camera %s: %v", e.CameraID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
