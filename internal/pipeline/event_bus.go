package pipeline

import (
	"sync"
)

// AlertHandler receives accepted alert events.
type AlertHandler interface {
	OnAlert(event *AlertEvent)
}

// DetectionHandler receives per-tick detection updates.
type DetectionHandler interface {
	OnDetectionUpdate(update *DetectionUpdate)
}

// EventBus provides pub/sub for alert events and detection updates.
// It decouples the pipeline from its observers: the recorder publishes plain
// data events and never knows who consumes them.
type EventBus struct {
	subscribers map[*busSubscription]bool
	mu          sync.RWMutex
}

type busSubscription struct {
	cameraFilter string // empty means receive all cameras
	alerts       AlertHandler
	detections   DetectionHandler
	alertCh      chan *AlertEvent
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[*busSubscription]bool),
	}
}

// SubscribeAlerts registers a handler for alert events from all cameras.
// Returns an unsubscribe function.
func (b *EventBus) SubscribeAlerts(handler AlertHandler) func() {
	sub := &busSubscription{alerts: handler}
	return b.add(sub)
}

// SubscribeCameraAlerts registers a handler for one camera's alert events.
func (b *EventBus) SubscribeCameraAlerts(cameraID string, handler AlertHandler) func() {
	sub := &busSubscription{cameraFilter: cameraID, alerts: handler}
	return b.add(sub)
}

// SubscribeDetections registers a handler for detection updates from all
// cameras. Returns an unsubscribe function.
func (b *EventBus) SubscribeDetections(handler DetectionHandler) func() {
	sub := &busSubscription{detections: handler}
	return b.add(sub)
}

// SubscribeAlertChannel returns a buffered channel of alert events and an
// unsubscribe function. Delivery is non-blocking; a full channel drops.
func (b *EventBus) SubscribeAlertChannel(bufferSize int) (<-chan *AlertEvent, func()) {
	if bufferSize <= 0 {
		bufferSize = 10
	}

	ch := make(chan *AlertEvent, bufferSize)
	sub := &busSubscription{alertCh: ch}

	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[sub]; ok {
			delete(b.subscribers, sub)
			close(ch)
		}
		b.mu.Unlock()
	}

	return ch, unsubscribe
}

func (b *EventBus) add(sub *busSubscription) func() {
	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, sub)
		b.mu.Unlock()
	}
}

// PublishAlert sends an alert event to all matching subscribers.
// Handlers are called synchronously to preserve event ordering.
func (b *EventBus) PublishAlert(event *AlertEvent) {
	if event == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		if sub.cameraFilter != "" && sub.cameraFilter != event.CameraID {
			continue
		}
		if sub.alerts != nil {
			sub.alerts.OnAlert(event)
		} else if sub.alertCh != nil {
			select {
			case sub.alertCh <- event:
			default:
				// Channel full, skip this event
			}
		}
	}
}

// PublishDetections sends a detection update to all matching subscribers.
func (b *EventBus) PublishDetections(update *DetectionUpdate) {
	if update == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		if sub.cameraFilter != "" && sub.cameraFilter != update.CameraID {
			continue
		}
		if sub.detections != nil {
			sub.detections.OnDetectionUpdate(update)
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close unsubscribes all subscribers and closes channels
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subscribers {
		if sub.alertCh != nil {
			close(sub.alertCh)
		}
		delete(b.subscribers, sub)
	}
}
