package comms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisoncomms/models"
)

func event(id string) models.StreamEvent {
	return models.StreamEvent{
		EventType: models.EventMessageSent,
		Payload:   models.NormalizedMessage{ID: id, Channel: models.ChannelUnison},
	}
}

func TestStreamDeliversInPublishOrder(t *testing.T) {
	stream := NewEventStream(4)
	id, ch := stream.Subscribe()
	defer stream.Unsubscribe(id)

	stream.Publish(event("e1"))
	stream.Publish(event("e2"))

	first := <-ch
	second := <-ch
	assert.Equal(t, "e1", first.Payload.ID)
	assert.Equal(t, "e2", second.Payload.ID)
	assert.Len(t, ch, 0, "no duplicates queued")
}

func TestStreamNoReplayForLateSubscribers(t *testing.T) {
	stream := NewEventStream(4)

	stream.Publish(event("before"))

	id, ch := stream.Subscribe()
	defer stream.Unsubscribe(id)

	stream.Publish(event("after"))
	got := <-ch
	assert.Equal(t, "after", got.Payload.ID)
	assert.Len(t, ch, 0)
}

func TestStreamDisconnectsSlowSubscriber(t *testing.T) {
	stream := NewEventStream(2)

	slowID, slow := stream.Subscribe()
	_, fast := stream.Subscribe()

	// Fill the slow subscriber's queue, then overflow it. Nothing is read
	// from slow, so the third publish must disconnect it.
	stream.Publish(event("e1"))
	stream.Publish(event("e2"))

	// Keep the fast subscriber current.
	<-fast
	<-fast

	stream.Publish(event("e3"))

	assert.Equal(t, 1, stream.SubscriberCount())
	assert.Equal(t, "e3", (<-fast).Payload.ID)

	// The slow channel was closed after its queued events.
	var received []string
	for e := range slow {
		received = append(received, e.Payload.ID)
	}
	assert.Equal(t, []string{"e1", "e2"}, received)

	// Unsubscribing an already-dropped subscriber is a no-op.
	stream.Unsubscribe(slowID)
}

func TestStreamUnsubscribeClosesChannel(t *testing.T) {
	stream := NewEventStream(4)
	id, ch := stream.Subscribe()
	require.Equal(t, 1, stream.SubscriberCount())

	stream.Unsubscribe(id)
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, stream.SubscriberCount())

	stream.Unsubscribe(id) // idempotent
}
