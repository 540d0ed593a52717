package pipeline

import (
	"math"

	"sisa/internal/detection"
)

// ProximityEngine decides whether a set of detections constitutes a safety
// alert. Thresholds are expressed in original-frame pixels; callers must
// hand it boxes already rescaled to that space.
type ProximityEngine struct {
	forkliftThreshold float64
	personThreshold   float64
}

// NewProximityEngine creates an engine with the given distance thresholds.
func NewProximityEngine(forkliftThreshold, personThreshold float64) *ProximityEngine {
	return &ProximityEngine{
		forkliftThreshold: forkliftThreshold,
		personThreshold:   personThreshold,
	}
}

// Evaluate computes pairwise centroid distances and classifies the frame.
// Pure function of its inputs. A qualifying forklift pair wins over a
// person-forklift hit; the first qualifying pair suffices either way.
func (e *ProximityEngine) Evaluate(forklifts, persons []detection.Box) Decision {
	if len(forklifts) > 1 {
		for i := 0; i < len(forklifts); i++ {
			for j := i + 1; j < len(forklifts); j++ {
				if centroidDistance(forklifts[i], forklifts[j]) < e.forkliftThreshold {
					return Decision{Triggered: true, Reason: ReasonForkliftsTooClose}
				}
			}
		}
	}

	for _, p := range persons {
		for _, f := range forklifts {
			if centroidDistance(p, f) < e.personThreshold {
				return Decision{Triggered: true, Reason: ReasonPersonNearForklift}
			}
		}
	}

	return Decision{}
}

func centroidDistance(a, b detection.Box) float64 {
	ax, ay := a.Centroid()
	bx, by := b.Centroid()
	return math.Hypot(bx-ax, by-ay)
}
