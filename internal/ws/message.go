package ws

import (
	"time"

	"sisa/internal/detection"
	"sisa/internal/pipeline"
)

// Message types sent to websocket clients.
const (
	MessageTypeAlert      = "alert"
	MessageTypeDetections = "detections"
)

// AlertMessage notifies clients of an accepted alert event.
type AlertMessage struct {
	Type  string               `json:"type"`
	Alert *pipeline.AlertEvent `json:"alert"`
}

// DetectionMessage carries one tick's boxes for client-side rendering.
type DetectionMessage struct {
	Type      string          `json:"type"`
	CameraID  string          `json:"camera_id"`
	FrameSeq  uint64          `json:"frame_seq"`
	Timestamp time.Time       `json:"timestamp"`
	Forklifts []detection.Box `json:"forklifts"`
	Persons   []detection.Box `json:"persons"`
}

// NewAlertMessage wraps an alert event for delivery.
func NewAlertMessage(event *pipeline.AlertEvent) *AlertMessage {
	return &AlertMessage{Type: MessageTypeAlert, Alert: event}
}

// NewDetectionMessage wraps a detection update for delivery.
func NewDetectionMessage(update *pipeline.DetectionUpdate) *DetectionMessage {
	return &DetectionMessage{
		Type:      MessageTypeDetections,
		CameraID:  update.CameraID,
		FrameSeq:  update.FrameSeq,
		Timestamp: update.Timestamp,
		Forklifts: update.Forklifts,
		Persons:   update.Persons,
	}
}
