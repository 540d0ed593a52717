package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingHandler struct {
	alerts     []*AlertEvent
	detections []*DetectionUpdate
}

func (c *collectingHandler) OnAlert(event *AlertEvent) { c.alerts = append(c.alerts, event) }
func (c *collectingHandler) OnDetectionUpdate(u *DetectionUpdate) {
	c.detections = append(c.detections, u)
}

func TestEventBusAlertFanout(t *testing.T) {
	bus := NewEventBus()

	all := &collectingHandler{}
	one := &collectingHandler{}
	bus.SubscribeAlerts(all)
	bus.SubscribeCameraAlerts("cam1", one)

	bus.PublishAlert(&AlertEvent{CameraID: "cam1", Description: ReasonForkliftsTooClose})
	bus.PublishAlert(&AlertEvent{CameraID: "cam2", Description: ReasonPersonNearForklift})

	assert.Len(t, all.alerts, 2)
	require.Len(t, one.alerts, 1)
	assert.Equal(t, "cam1", one.alerts[0].CameraID)
}

func TestEventBusDetectionFanout(t *testing.T) {
	bus := NewEventBus()

	h := &collectingHandler{}
	unsubscribe := bus.SubscribeDetections(h)

	bus.PublishDetections(&DetectionUpdate{CameraID: "cam1", FrameSeq: 10, Timestamp: time.Now()})
	require.Len(t, h.detections, 1)
	assert.Equal(t, uint64(10), h.detections[0].FrameSeq)

	unsubscribe()
	bus.PublishDetections(&DetectionUpdate{CameraID: "cam1", FrameSeq: 20})
	assert.Len(t, h.detections, 1)
}

func TestEventBusChannelDropsWhenFull(t *testing.T) {
	bus := NewEventBus()

	ch, unsubscribe := bus.SubscribeAlertChannel(1)
	defer unsubscribe()

	bus.PublishAlert(&AlertEvent{CameraID: "cam1", ID: "first"})
	bus.PublishAlert(&AlertEvent{CameraID: "cam1", ID: "second"})

	got := <-ch
	assert.Equal(t, "first", got.ID)

	select {
	case e := <-ch:
		t.Fatalf("second event should have been dropped, got %s", e.ID)
	default:
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()

	h := &collectingHandler{}
	unsubscribe := bus.SubscribeAlerts(h)
	assert.Equal(t, 1, bus.SubscriberCount())

	unsubscribe()
	assert.Equal(t, 0, bus.SubscriberCount())

	bus.PublishAlert(&AlertEvent{CameraID: "cam1"})
	assert.Empty(t, h.alerts)
}

func TestEventBusCloseClosesChannels(t *testing.T) {
	bus := NewEventBus()

	ch, _ := bus.SubscribeAlertChannel(1)
	bus.Close()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestEventBusNilEventsIgnored(t *testing.T) {
	bus := NewEventBus()
	h := &collectingHandler{}
	bus.SubscribeAlerts(h)
	bus.SubscribeDetections(h)

	bus.PublishAlert(nil)
	bus.PublishDetections(nil)

	assert.Empty(t, h.alerts)
	assert.Empty(t, h.detections)
}
