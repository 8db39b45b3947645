package adapters

import (
	"context"
	"sync"
	"time"

	"unisoncomms/models"
)

// StubAdapter is the no-I/O fallback provider: an in-memory message set,
// seeded for the email channel so the gateway is demonstrable with zero
// configuration. Sends validate shape only and synthesize confirmations.
type StubAdapter struct {
	channel string
	publish func(models.StreamEvent)

	mu       sync.RWMutex
	messages []models.NormalizedMessage
}

// NewStubAdapter creates a stub for the given channel. publish may be nil;
// when set (unison fallback), sends and fetches emit stream events like the
// real local adapter.
func NewStubAdapter(channel string, publish func(models.StreamEvent)) *StubAdapter {
	s := &StubAdapter{
		channel: channel,
		publish: publish,
	}
	if channel == models.ChannelEmail {
		s.messages = seedMessages()
	}
	return s
}

func seedMessages() []models.NormalizedMessage {
	seeded := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)
	return []models.NormalizedMessage{
		{
			ID:          "msg-1",
			Channel:     models.ChannelEmail,
			ThreadID:    "thread-1",
			Sender:      "alice@example.com",
			Recipients:  []string{"you@example.com"},
			Subject:     "Urgent: design review",
			Body:        "Can you review the design by tomorrow?",
			Timestamp:   seeded,
			ContextTags: []string{"comms", models.ChannelEmail, "p0", "project:unisonos"},
			Direction:   models.DirectionInbound,
		},
		{
			ID:          "msg-2",
			Channel:     models.ChannelEmail,
			ThreadID:    "thread-2",
			Sender:      "team@example.com",
			Recipients:  []string{"you@example.com"},
			Subject:     "Weekly update",
			Body:        "Highlights and blockers for this week.",
			Timestamp:   seeded.Add(time.Hour),
			ContextTags: []string{"comms", models.ChannelEmail, "p2"},
			Direction:   models.DirectionInbound,
		},
	}
}

func (s *StubAdapter) Name() string {
	return "stub"
}

// FetchMessages returns the in-memory set for the channel, in insertion order.
func (s *StubAdapter) FetchMessages(_ context.Context, channel string) []models.NormalizedMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.NormalizedMessage, 0, len(s.messages))
	for _, msg := range s.messages {
		if channel == "" || msg.Channel == channel {
			out = append(out, msg)
		}
	}

	if s.publish != nil {
		for _, msg := range out {
			s.publish(models.StreamEvent{EventType: models.EventMessageFetched, Payload: msg})
		}
	}
	return out
}

// SendReply appends a reply artifact and synthesizes a confirmation.
func (s *StubAdapter) SendReply(_ context.Context, req ReplyRequest) models.Confirmation {
	if req.ThreadID == "" || req.MessageID == "" {
		return models.ErrorConfirmation(s.Name(), models.ErrKindValidationFailed)
	}

	msg := NewLocalMessage(req.PersonID, s.channel, req.Recipients, "Re: "+req.ThreadID, req.Body, req.ThreadID)

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	if s.publish != nil {
		s.publish(models.StreamEvent{EventType: models.EventMessageSent, Payload: msg})
	}
	return models.OkConfirmation(s.Name(), msg.ID, msg.ThreadID)
}

// SendCompose appends a new message and synthesizes a confirmation.
func (s *StubAdapter) SendCompose(_ context.Context, req ComposeRequest) models.Confirmation {
	if len(req.Recipients) == 0 || req.Subject == "" {
		return models.ErrorConfirmation(s.Name(), models.ErrKindValidationFailed)
	}

	msg := NewLocalMessage(req.PersonID, s.channel, req.Recipients, req.Subject, req.Body, "")

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	if s.publish != nil {
		s.publish(models.StreamEvent{EventType: models.EventMessageSent, Payload: msg})
	}
	return models.OkConfirmation(s.Name(), msg.ID, msg.ThreadID)
}
