package adapters

import (
	"context"

	"unisoncomms/models"
	"unisoncomms/storage"
	"unisoncomms/utils"
)

// LocalChannelAdapter serves the on-device unison channel. All operations
// delegate to the encrypted store; sends are synchronous write-then-acknowledge
// with no buffering, so an ok confirmation means the message is on disk.
type LocalChannelAdapter struct {
	store   *storage.LocalEncryptedStore
	publish func(models.StreamEvent)
}

// NewLocalChannelAdapter wraps the store. publish may be nil when no stream
// is attached.
func NewLocalChannelAdapter(store *storage.LocalEncryptedStore, publish func(models.StreamEvent)) *LocalChannelAdapter {
	return &LocalChannelAdapter{
		store:   store,
		publish: publish,
	}
}

func (a *LocalChannelAdapter) Name() string {
	return "local"
}

// FetchMessages returns the stored unison messages in append order and emits
// one fetched event per message.
func (a *LocalChannelAdapter) FetchMessages(_ context.Context, channel string) []models.NormalizedMessage {
	if channel == "" {
		channel = models.ChannelUnison
	}

	messages, err := a.store.ReadAll(channel)
	if err != nil {
		utils.Log.Error("unison store read failed: %v", err)
		return []models.NormalizedMessage{}
	}

	if a.publish != nil {
		for _, msg := range messages {
			a.publish(models.StreamEvent{EventType: models.EventMessageFetched, Payload: msg})
		}
	}
	return messages
}

// SendReply appends a reply to the store and acknowledges once durable.
func (a *LocalChannelAdapter) SendReply(_ context.Context, req ReplyRequest) models.Confirmation {
	if req.ThreadID == "" || req.MessageID == "" {
		return models.ErrorConfirmation(a.Name(), models.ErrKindValidationFailed)
	}

	msg := NewLocalMessage(req.PersonID, models.ChannelUnison, req.Recipients, "Re: "+req.ThreadID, req.Body, req.ThreadID)
	return a.persist(msg)
}

// SendCompose appends a new message to the store and acknowledges once durable.
func (a *LocalChannelAdapter) SendCompose(_ context.Context, req ComposeRequest) models.Confirmation {
	if len(req.Recipients) == 0 || req.Subject == "" {
		return models.ErrorConfirmation(a.Name(), models.ErrKindValidationFailed)
	}

	msg := NewLocalMessage(req.PersonID, models.ChannelUnison, req.Recipients, req.Subject, req.Body, "")
	return a.persist(msg)
}

func (a *LocalChannelAdapter) persist(msg models.NormalizedMessage) models.Confirmation {
	if err := a.store.Append(msg); err != nil {
		utils.Log.Error("unison store write failed: %v", err)
		return models.ErrorConfirmation(a.Name(), models.ErrKindStoreFailed)
	}

	if a.publish != nil {
		a.publish(models.StreamEvent{EventType: models.EventMessageSent, Payload: msg})
	}
	return models.OkConfirmation(a.Name(), msg.ID, msg.ThreadID)
}
