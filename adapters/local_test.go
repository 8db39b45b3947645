package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisoncomms/models"
	"unisoncomms/storage"
)

func newTestStore(t *testing.T) *storage.LocalEncryptedStore {
	t.Helper()
	crypter, err := storage.NewAESCrypter("test passphrase")
	require.NoError(t, err)
	store, err := storage.NewLocalEncryptedStore(filepath.Join(t.TempDir(), "unison.store"), crypter)
	require.NoError(t, err)
	return store
}

func TestLocalComposeIsDurableBeforeAck(t *testing.T) {
	store := newTestStore(t)
	adapter := NewLocalChannelAdapter(store, nil)

	conf := adapter.SendCompose(context.Background(), ComposeRequest{
		PersonID:   "u1",
		Channel:    models.ChannelUnison,
		Recipients: []string{"u2"},
		Subject:    "hi",
		Body:       "hello",
	})
	require.True(t, conf.OK())
	assert.Equal(t, "local", conf.Provider)

	// The confirmation implies durability: read the store directly.
	messages, err := store.ReadAll(models.ChannelUnison)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, conf.MessageID, messages[0].ID)
	assert.Equal(t, "hello", messages[0].Body)
	assert.True(t, messages[0].HasTag("unison"))
}

func TestLocalReplyJoinsThread(t *testing.T) {
	store := newTestStore(t)
	adapter := NewLocalChannelAdapter(store, nil)

	compose := adapter.SendCompose(context.Background(), ComposeRequest{
		PersonID: "u1", Channel: models.ChannelUnison, Recipients: []string{"u2"}, Subject: "hi", Body: "x",
	})
	require.True(t, compose.OK())

	reply := adapter.SendReply(context.Background(), ReplyRequest{
		PersonID:  "u2",
		ThreadID:  compose.ThreadID,
		MessageID: compose.MessageID,
		Body:      "got it",
	})
	require.True(t, reply.OK())
	assert.Equal(t, compose.ThreadID, reply.ThreadID)

	messages := adapter.FetchMessages(context.Background(), models.ChannelUnison)
	require.Len(t, messages, 2)
	assert.Equal(t, compose.MessageID, messages[0].ID)
	assert.Equal(t, reply.MessageID, messages[1].ID)
}

func TestLocalReplyValidation(t *testing.T) {
	adapter := NewLocalChannelAdapter(newTestStore(t), nil)

	conf := adapter.SendReply(context.Background(), ReplyRequest{PersonID: "u1", Body: "x"})
	assert.Equal(t, "error", conf.Status)
	assert.Equal(t, models.ErrKindValidationFailed, conf.ErrorKind)
}

func TestLocalPublishesSentAndFetchedEvents(t *testing.T) {
	store := newTestStore(t)

	var events []models.StreamEvent
	adapter := NewLocalChannelAdapter(store, func(e models.StreamEvent) {
		events = append(events, e)
	})

	conf := adapter.SendCompose(context.Background(), ComposeRequest{
		PersonID: "u1", Channel: models.ChannelUnison, Recipients: []string{"u2"}, Subject: "hi", Body: "x",
	})
	require.True(t, conf.OK())
	require.Len(t, events, 1)
	assert.Equal(t, models.EventMessageSent, events[0].EventType)

	adapter.FetchMessages(context.Background(), models.ChannelUnison)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventMessageFetched, events[1].EventType)
	assert.Equal(t, conf.MessageID, events[1].Payload.ID)
}
