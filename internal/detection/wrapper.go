package detection

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
)

// InferOptions control filtering of a single inference call.
type InferOptions struct {
	// Confidence is the minimum confidence a box must reach to survive.
	Confidence float32

	// Classes restricts results to the given class labels. Empty means no
	// class filtering.
	Classes []string
}

// Wrapper downscales frames to a fixed inference width before invoking a
// detector and rescales the returned boxes to the original frame's
// coordinate space. One Wrapper is shared by all camera loops.
type Wrapper struct {
	inferenceWidth int
	jpegQuality    int
}

// NewWrapper creates an inference wrapper. width is the fixed inference
// width; frames narrower than it are sent as-is.
func NewWrapper(width int) *Wrapper {
	if width <= 0 {
		width = 640
	}
	return &Wrapper{
		inferenceWidth: width,
		jpegQuality:    85,
	}
}

// Infer runs one detector over a JPEG frame. Boxes below the confidence
// threshold or outside the class filter are dropped; the rest are rescaled
// back to the original frame's coordinates. An empty result is a normal
// outcome, never an error.
func (w *Wrapper) Infer(ctx context.Context, frame []byte, det Detector, opts InferOptions) ([]Box, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, &DetectionError{Detector: det.Name(), Err: err}
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	payload := frame
	scaledW, scaledH := origW, origH

	if origW > w.inferenceWidth {
		scaledW = w.inferenceWidth
		scaledH = int(math.Round(float64(origH) * float64(scaledW) / float64(origW)))
		if scaledH < 1 {
			scaledH = 1
		}

		dst := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: w.jpegQuality}); err != nil {
			return nil, &DetectionError{Detector: det.Name(), Err: err}
		}
		payload = buf.Bytes()
	}

	raw, err := det.Detect(ctx, payload)
	if err != nil {
		return nil, &DetectionError{Detector: det.Name(), Err: err}
	}

	// Aspect ratio is only approximately preserved by integer rounding, so
	// x and y carry separate scale factors.
	sx := float64(origW) / float64(scaledW)
	sy := float64(origH) / float64(scaledH)

	boxes := make([]Box, 0, len(raw))
	for _, b := range raw {
		if b.Confidence < opts.Confidence {
			continue
		}
		if len(opts.Classes) > 0 && !containsClass(opts.Classes, b.Class) {
			continue
		}
		b.X1 *= sx
		b.X2 *= sx
		b.Y1 *= sy
		b.Y2 *= sy
		boxes = append(boxes, b)
	}
	return boxes, nil
}

func containsClass(classes []string, class string) bool {
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}
