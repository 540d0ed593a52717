package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"sisa/internal/camera"
	"sisa/internal/detection"
	"sisa/internal/metrics"
)

// Supervisor owns one background monitor loop per non-local camera. Loops
// are started once at pipeline startup and run until Stop.
type Supervisor struct {
	openStream OpenStreamFunc
	wrapper    *detection.Wrapper
	forklifts  detection.Detector
	persons    detection.Detector
	engine     *ProximityEngine
	recorder   *Recorder
	bus        *EventBus
	metrics    *metrics.Metrics
	cfg        MonitorConfig

	monitors map[string]*Monitor
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewSupervisor creates a supervisor sharing one wrapper, engine, recorder
// and bus across all camera loops.
func NewSupervisor(
	openStream OpenStreamFunc,
	wrapper *detection.Wrapper,
	forklifts, persons detection.Detector,
	engine *ProximityEngine,
	recorder *Recorder,
	bus *EventBus,
	m *metrics.Metrics,
	cfg MonitorConfig,
) *Supervisor {
	return &Supervisor{
		openStream: openStream,
		wrapper:    wrapper,
		forklifts:  forklifts,
		persons:    persons,
		engine:     engine,
		recorder:   recorder,
		bus:        bus,
		metrics:    m,
		cfg:        cfg,
		monitors:   make(map[string]*Monitor),
	}
}

// Start launches a monitor goroutine for every valid non-local camera.
// A camera with an invalid descriptor is skipped with a log line; the other
// cameras are unaffected.
func (s *Supervisor) Start(ctx context.Context, cameras []*camera.Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("supervisor already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	started := 0
	for _, cam := range cameras {
		if cam.IsLocal() {
			log.Printf("[Supervisor] Skipping local camera %s", cam.Name)
			continue
		}
		if err := cam.Validate(); err != nil {
			log.Printf("[Supervisor] Skipping camera with invalid descriptor: %v", err)
			continue
		}

		monitor := NewMonitor(cam, s.openStream, s.wrapper, s.forklifts, s.persons,
			s.engine, s.recorder, s.bus, s.metrics, s.cfg)
		s.monitors[cam.ID] = monitor

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			monitor.Run(ctx)
		}()
		started++
	}

	log.Printf("[Supervisor] Monitoring %d camera(s)", started)
	return nil
}

// MonitoredCameras returns the IDs of cameras with an active monitor loop.
func (s *Supervisor) MonitoredCameras() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.monitors))
	for id := range s.monitors {
		ids = append(ids, id)
	}
	return ids
}

// Stop cancels all monitor loops and joins them, waiting up to timeout.
func (s *Supervisor) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("[Supervisor] All monitor loops stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timed out waiting for monitor loops to stop")
	}
}
