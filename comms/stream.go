// Package comms orchestrates the gateway operations: it resolves provider
// adapters, turns their results into dashboard cards and broadcasts local
// channel activity to stream subscribers.
package comms

import (
	"sync"

	"github.com/google/uuid"

	"unisoncomms/models"
	"unisoncomms/utils"
)

// EventStream broadcasts unison channel events to registered subscribers.
// There is no replay: a subscriber only sees events published after it
// registered. Each subscriber gets an independent bounded queue; a subscriber
// that falls behind is disconnected so one slow consumer can never stall the
// publisher or its peers.
type EventStream struct {
	mu          sync.Mutex
	subscribers map[string]chan models.StreamEvent
	queueSize   int
}

// NewEventStream creates a stream with the given per-subscriber queue size.
func NewEventStream(queueSize int) *EventStream {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &EventStream{
		subscribers: make(map[string]chan models.StreamEvent),
		queueSize:   queueSize,
	}
}

// Subscribe registers a new subscriber and returns its id and delivery
// channel. The channel is closed on Unsubscribe or when the subscriber is
// dropped for falling behind.
func (s *EventStream) Subscribe() (string, <-chan models.StreamEvent) {
	id := uuid.New().String()
	ch := make(chan models.StreamEvent, s.queueSize)

	s.mu.Lock()
	s.subscribers[id] = ch
	s.mu.Unlock()

	utils.Log.Info("stream subscriber connected: %s", id)
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call for
// an already-removed id.
func (s *EventStream) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[id]; ok {
		delete(s.subscribers, id)
		close(ch)
		utils.Log.Info("stream subscriber disconnected: %s", id)
	}
}

// Publish delivers the event to every current subscriber in registration
// order per subscriber. Never blocks: a subscriber with a full queue is
// disconnected instead.
func (s *EventStream) Publish(event models.StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			utils.Log.Warn("stream subscriber %s queue full, disconnecting", id)
			delete(s.subscribers, id)
			close(ch)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (s *EventStream) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}
