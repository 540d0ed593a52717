package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sisa/internal/camera"
	"sisa/internal/capture"
	"sisa/internal/database"
)

type fakeStore struct {
	events []*database.EventRecord
	err    error
}

func (s *fakeStore) AddEvent(event *database.EventRecord) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.events = append(s.events, event)
	return event.ID, nil
}

func testRecorder(t *testing.T, store EventStore, window time.Duration) (*Recorder, *CooldownTracker, string) {
	t.Helper()
	dir := t.TempDir()
	tracker := NewCooldownTracker(window)
	r := NewRecorder(dir, tracker, store, NewEventBus())
	return r, tracker, dir
}

func testFrame() *capture.Frame {
	return &capture.Frame{
		CameraID:  "cam1",
		Data:      []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9},
		Seq:       1,
		Timestamp: time.Now(),
	}
}

func TestRecordWritesImageThenRecord(t *testing.T) {
	store := &fakeStore{}
	r, _, dir := testRecorder(t, store, 10*time.Second)

	now := time.Date(2026, 3, 1, 14, 30, 5, 0, time.UTC)
	r.now = func() time.Time { return now }

	cam := &camera.Camera{ID: "cam1", Name: "Dock 3"}
	frame := testFrame()

	event, err := r.Record(cam, frame, ReasonPersonNearForklift)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "cam1", event.CameraID)
	assert.Equal(t, "Dock 3", event.CameraName)
	assert.Equal(t, ReasonPersonNearForklift, event.Description)
	assert.Equal(t, filepath.Join(dir, "Dock 3_20260301_143005.jpg"), event.ImagePath)

	data, err := os.ReadFile(event.ImagePath)
	require.NoError(t, err)
	assert.Equal(t, frame.Data, data)

	require.Len(t, store.events, 1)
	assert.Equal(t, event.ID, store.events[0].ID)
	assert.Equal(t, event.ImagePath, store.events[0].ImagePath)
	assert.Equal(t, now, store.events[0].Timestamp)
}

func TestRecordSuppressedDoesNothing(t *testing.T) {
	store := &fakeStore{}
	r, _, dir := testRecorder(t, store, 10*time.Second)

	now := time.Date(2026, 3, 1, 14, 30, 5, 0, time.UTC)
	r.now = func() time.Time { return now }

	cam := &camera.Camera{ID: "cam1", Name: "Dock 3"}

	_, err := r.Record(cam, testFrame(), ReasonForkliftsTooClose)
	require.NoError(t, err)

	now = now.Add(3 * time.Second)
	event, err := r.Record(cam, testFrame(), ReasonForkliftsTooClose)
	assert.ErrorIs(t, err, ErrSuppressed)
	assert.Nil(t, event)

	// No second image, no second record.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Len(t, store.events, 1)
}

func TestRecordStoreFailure(t *testing.T) {
	storeErr := errors.New("disk full")
	store := &fakeStore{err: storeErr}
	r, tracker, _ := testRecorder(t, store, 10*time.Second)

	now := time.Date(2026, 3, 1, 14, 30, 5, 0, time.UTC)
	r.now = func() time.Time { return now }

	cam := &camera.Camera{ID: "cam1", Name: "Dock 3"}

	event, err := r.Record(cam, testFrame(), ReasonForkliftsTooClose)
	assert.Nil(t, event)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "cam1", perr.CameraID)
	assert.ErrorIs(t, err, storeErr)

	// The consumed cooldown slot stands despite the failure.
	assert.False(t, tracker.Acquire("cam1", now.Add(time.Second)))
}

func TestRecordPublishesOnBus(t *testing.T) {
	store := &fakeStore{}
	dir := t.TempDir()
	bus := NewEventBus()
	r := NewRecorder(dir, NewCooldownTracker(10*time.Second), store, bus)

	ch, unsubscribe := bus.SubscribeAlertChannel(1)
	defer unsubscribe()

	cam := &camera.Camera{ID: "cam1", Name: "Dock 3"}
	event, err := r.Record(cam, testFrame(), ReasonPersonNearForklift)
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, event, got)
	default:
		t.Fatal("no alert published on the bus")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Dock 3", "Dock 3"},
		{"cam/../etc", "cametc"},
		{"warehouse_cam-2", "warehouse_cam-2"},
		{"a:b*c?", "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in))
	}
}
