package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"sisa/internal/camera"
	"sisa/internal/capture"
	"sisa/internal/detection"
	"sisa/internal/metrics"
)

// FrameStream is the readable side of an opened camera source.
type FrameStream interface {
	ReadFrame() (*capture.Frame, error)
	Close() error
}

// OpenStreamFunc resolves a camera descriptor into a frame stream. It is
// injected so tests can substitute fake sources for ffmpeg.
type OpenStreamFunc func(cam *camera.Camera) (FrameStream, error)

// MonitorConfig carries the per-loop tuning knobs.
type MonitorConfig struct {
	// FrameSkip runs detection every Nth frame.
	FrameSkip int

	// Backoff is the fixed wait between reconnection attempts.
	Backoff time.Duration

	// ForkliftOptions and PersonOptions filter each detector's output.
	ForkliftOptions detection.InferOptions
	PersonOptions   detection.InferOptions
}

// Monitor drives the acquisition-inference-alert chain for one camera,
// independently of whether that camera is being viewed. Stream failures
// cause reconnection with fixed backoff; the loop only terminates when its
// context is cancelled.
type Monitor struct {
	cam        *camera.Camera
	openStream OpenStreamFunc
	wrapper    *detection.Wrapper
	forklifts  detection.Detector
	persons    detection.Detector
	engine     *ProximityEngine
	recorder   *Recorder
	bus        *EventBus
	metrics    *metrics.Metrics
	cfg        MonitorConfig
}

// NewMonitor creates a monitor loop for one camera.
func NewMonitor(
	cam *camera.Camera,
	openStream OpenStreamFunc,
	wrapper *detection.Wrapper,
	forklifts, persons detection.Detector,
	engine *ProximityEngine,
	recorder *Recorder,
	bus *EventBus,
	m *metrics.Metrics,
	cfg MonitorConfig,
) *Monitor {
	if cfg.FrameSkip <= 0 {
		cfg.FrameSkip = 10
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	return &Monitor{
		cam:        cam,
		openStream: openStream,
		wrapper:    wrapper,
		forklifts:  forklifts,
		persons:    persons,
		engine:     engine,
		recorder:   recorder,
		bus:        bus,
		metrics:    m,
		cfg:        cfg,
	}
}

// Run executes the monitor state machine until ctx is cancelled:
// Connecting -> Streaming -> Reconnecting -> Connecting -> ...
func (m *Monitor) Run(ctx context.Context) {
	log.Printf("[Monitor] Starting loop for camera %s", m.cam.Name)

	for {
		if ctx.Err() != nil {
			log.Printf("[Monitor] Stopped loop for camera %s", m.cam.Name)
			return
		}

		stream, err := m.openStream(m.cam)
		if err != nil {
			log.Printf("[Monitor] Camera %s connect failed: %v (retrying in %s)", m.cam.Name, err, m.cfg.Backoff)
			m.metrics.Reconnects.WithLabelValues(m.cam.Name).Inc()
			if !sleepCtx(ctx, m.cfg.Backoff) {
				return
			}
			continue
		}

		m.streamLoop(ctx, stream)

		if ctx.Err() != nil {
			log.Printf("[Monitor] Stopped loop for camera %s", m.cam.Name)
			return
		}

		log.Printf("[Monitor] Camera %s stream lost, reconnecting in %s", m.cam.Name, m.cfg.Backoff)
		m.metrics.Reconnects.WithLabelValues(m.cam.Name).Inc()
		if !sleepCtx(ctx, m.cfg.Backoff) {
			return
		}
	}
}

// streamLoop pulls frames until the stream ends or ctx is cancelled. The
// stream is released on every exit path; cancellation closes it to unblock
// a pending read.
func (m *Monitor) streamLoop(ctx context.Context, stream FrameStream) {
	defer stream.Close()

	stop := context.AfterFunc(ctx, func() { stream.Close() })
	defer stop()

	frameCount := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := stream.ReadFrame()
		if err != nil {
			return
		}

		m.metrics.FramesRead.WithLabelValues(m.cam.Name).Inc()

		// Frames between ticks are discarded for alerting purposes.
		frameCount++
		if frameCount%m.cfg.FrameSkip != 0 {
			continue
		}

		m.tick(ctx, frame)
	}
}

// tick runs both detectors, evaluates proximity and conditionally records
// an alert. Detection and persistence failures skip the tick; they never
// terminate the loop.
func (m *Monitor) tick(ctx context.Context, frame *capture.Frame) {
	m.metrics.TicksRun.WithLabelValues(m.cam.Name).Inc()

	forklifts, err := m.wrapper.Infer(ctx, frame.Data, m.forklifts, m.cfg.ForkliftOptions)
	if err != nil {
		log.Printf("[Monitor] Camera %s forklift detection error: %v", m.cam.Name, err)
		m.metrics.DetectorErrors.WithLabelValues(m.cam.Name).Inc()
		return
	}

	persons, err := m.wrapper.Infer(ctx, frame.Data, m.persons, m.cfg.PersonOptions)
	if err != nil {
		log.Printf("[Monitor] Camera %s person detection error: %v", m.cam.Name, err)
		m.metrics.DetectorErrors.WithLabelValues(m.cam.Name).Inc()
		return
	}

	decision := m.engine.Evaluate(forklifts, persons)

	m.bus.PublishDetections(&DetectionUpdate{
		CameraID:  m.cam.ID,
		FrameSeq:  frame.Seq,
		Timestamp: frame.Timestamp,
		Forklifts: forklifts,
		Persons:   persons,
		Decision:  decision,
	})

	if !decision.Triggered {
		return
	}

	_, err = m.recorder.Record(m.cam, frame, decision.Reason)
	switch {
	case errors.Is(err, ErrSuppressed):
		m.metrics.AlertsSuppressed.WithLabelValues(m.cam.Name).Inc()
	case err != nil:
		log.Printf("[Monitor] Camera %s event not persisted: %v", m.cam.Name, err)
		m.metrics.PersistenceFailures.WithLabelValues(m.cam.Name).Inc()
	default:
		log.Printf("[Monitor] Camera %s alert: %s", m.cam.Name, decision.Reason)
		m.metrics.AlertsRaised.WithLabelValues(m.cam.Name).Inc()
	}
}

// sleepCtx waits for d or until ctx is cancelled. Returns false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
