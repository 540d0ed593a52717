package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sisa/internal/camera"
	"sisa/internal/capture"
	"sisa/internal/detection"
)

func testSupervisor(t *testing.T, open OpenStreamFunc) *Supervisor {
	t.Helper()
	forklifts := &fakeDetector{name: "forklift"}
	persons := &fakeDetector{name: "person"}
	bus, recorder, m := testMonitorDeps(t, &fakeStore{})

	return NewSupervisor(open, detection.NewWrapper(640), forklifts, persons,
		NewProximityEngine(120, 120), recorder, bus, m,
		MonitorConfig{FrameSkip: 1, Backoff: time.Millisecond})
}

func TestSupervisorSkipsLocalAndInvalid(t *testing.T) {
	open := func(c *camera.Camera) (FrameStream, error) {
		return nil, capture.ErrConnect
	}
	s := testSupervisor(t, open)

	cameras := []*camera.Camera{
		{ID: "cam1", Name: "Dock 3", Host: "10.0.0.5", Username: "u"},
		{ID: "cam2", Name: "Cam Demo"},                 // local, never monitored
		{ID: "cam3", Name: "Dock 4", Host: "10.0.0.6"}, // no username
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx, cameras))
	assert.Equal(t, []string{"cam1"}, s.MonitoredCameras())

	require.NoError(t, s.Stop(5*time.Second))
}

func TestSupervisorStartTwice(t *testing.T) {
	open := func(c *camera.Camera) (FrameStream, error) {
		return nil, capture.ErrConnect
	}
	s := testSupervisor(t, open)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx, nil))
	assert.Error(t, s.Start(ctx, nil))
	require.NoError(t, s.Stop(5*time.Second))
}

func TestSupervisorStopJoinsLoops(t *testing.T) {
	frameData := encodeTestJPEG(t)
	open := func(c *camera.Camera) (FrameStream, error) {
		return &fakeStream{data: frameData, frames: 1 << 30}, nil
	}
	s := testSupervisor(t, open)

	cameras := []*camera.Camera{
		{ID: "cam1", Name: "Dock 3", Host: "10.0.0.5", Username: "u"},
		{ID: "cam2", Name: "Dock 4", Host: "10.0.0.6", Username: "u"},
	}

	require.NoError(t, s.Start(context.Background(), cameras))
	assert.Len(t, s.MonitoredCameras(), 2)

	require.NoError(t, s.Stop(5*time.Second))

	// Stop is idempotent once stopped.
	require.NoError(t, s.Stop(time.Second))
}
