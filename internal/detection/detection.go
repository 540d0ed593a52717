package detection

import (
	"context"
	"fmt"
)

// Box is an axis-aligned detection rectangle in the coordinate space of the
// frame it was computed against.
type Box struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Class      string  `json:"class"`
	Confidence float32 `json:"confidence"`
}

// Centroid returns the geometric center of the box.
func (b Box) Centroid() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Detector is an opaque object detector: it scores an image and returns
// per-class boxes in that image's coordinate space. Implementations are
// treated as pure, stateless scoring functions.
type Detector interface {
	// Name returns the detector identifier (e.g., "forklift", "person")
	Name() string

	// Detect runs inference on a JPEG image
	Detect(ctx context.Context, image []byte) ([]Box, error)

	// IsHealthy returns true if the detector is operational
	IsHealthy() bool
}

// DetectionError reports a detector invocation failure. The pipeline logs
// it, skips the tick and keeps the loop running.
type DetectionError struct {
	Detector string
	Err      error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("detector %s: %v", e.Detector, e.Err)
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}
