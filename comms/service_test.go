package comms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisoncomms/adapters"
	"unisoncomms/models"
)

// recordingAdapter counts invocations so tests can assert that validation
// failures never reach a provider.
type recordingAdapter struct {
	fetches  int
	sends    int
	messages []models.NormalizedMessage
	conf     models.Confirmation
}

func (a *recordingAdapter) Name() string { return "recording" }

func (a *recordingAdapter) FetchMessages(_ context.Context, _ string) []models.NormalizedMessage {
	a.fetches++
	return a.messages
}

func (a *recordingAdapter) SendReply(_ context.Context, _ adapters.ReplyRequest) models.Confirmation {
	a.sends++
	return a.conf
}

func (a *recordingAdapter) SendCompose(_ context.Context, _ adapters.ComposeRequest) models.Confirmation {
	a.sends++
	return a.conf
}

type fixedResolver struct {
	adapter *recordingAdapter
}

func (r fixedResolver) Resolve(string) adapters.ProviderAdapter { return r.adapter }

func taggedMessage(id string, tags ...string) models.NormalizedMessage {
	return models.NormalizedMessage{ID: id, Channel: models.ChannelEmail, Subject: "s", ContextTags: append([]string{"comms", "email"}, tags...)}
}

func TestCheckReturnsMessagesAndCards(t *testing.T) {
	adapter := &recordingAdapter{messages: []models.NormalizedMessage{
		taggedMessage("m1", "p0"),
		taggedMessage("m2", "p2"),
	}}
	svc := NewService(fixedResolver{adapter})

	result := svc.Check(context.Background(), "")
	assert.Equal(t, 1, adapter.fetches)
	require.Len(t, result.Messages, 2)
	require.Len(t, result.Cards, 2)
	assert.Equal(t, "comms-m1", result.Cards[0].ID)
}

func TestCheckNeverReturnsNilMessages(t *testing.T) {
	svc := NewService(fixedResolver{&recordingAdapter{}})

	result := svc.Check(context.Background(), models.ChannelEmail)
	require.NotNil(t, result.Messages)
	assert.Empty(t, result.Messages)
	assert.Empty(t, result.Cards)
}

func TestSummarizeBucketsByPriority(t *testing.T) {
	adapter := &recordingAdapter{messages: []models.NormalizedMessage{
		taggedMessage("m1", "p0"),
		taggedMessage("m2", "p1"),
		taggedMessage("m3", "p2"),
		taggedMessage("m4", "p2"),
	}}
	svc := NewService(fixedResolver{adapter})

	result := svc.Summarize(context.Background(), models.ChannelEmail, "today")
	assert.Equal(t, "Summary for today: 1 urgent, 1 important, 2 routine.", result.Summary)
	require.Len(t, result.Cards, 1, "at most one summary card per call")
	assert.Equal(t, models.CardKindSummary, result.Cards[0].Kind)
}

func TestReplyValidationShortCircuitsAdapter(t *testing.T) {
	adapter := &recordingAdapter{conf: models.OkConfirmation("recording", "m9", "t9")}
	svc := NewService(fixedResolver{adapter})

	result := svc.Reply(context.Background(), "", adapters.ReplyRequest{PersonID: "u1", Body: "x"})
	assert.False(t, result.Validated())
	assert.Equal(t, models.ErrKindValidationFailed, result.Confirmation.ErrorKind)
	assert.Equal(t, 0, adapter.sends, "no adapter call on validation failure")
	require.Len(t, result.Cards, 1)
	assert.Contains(t, result.Cards[0].Body, models.ErrKindValidationFailed)
}

func TestComposeValidationShortCircuitsAdapter(t *testing.T) {
	adapter := &recordingAdapter{conf: models.OkConfirmation("recording", "m9", "t9")}
	svc := NewService(fixedResolver{adapter})

	result := svc.Compose(context.Background(), adapters.ComposeRequest{
		PersonID: "u1", Channel: models.ChannelUnison, Recipients: []string{}, Subject: "hi",
	})
	assert.False(t, result.Validated())
	assert.Equal(t, 0, adapter.sends)

	result = svc.Compose(context.Background(), adapters.ComposeRequest{
		PersonID: "u1", Channel: models.ChannelUnison, Recipients: []string{"u2"}, Subject: "",
	})
	assert.False(t, result.Validated())
	assert.Equal(t, 0, adapter.sends)
}

func TestComposeHappyPath(t *testing.T) {
	adapter := &recordingAdapter{conf: models.OkConfirmation("recording", "m9", "t9")}
	svc := NewService(fixedResolver{adapter})

	result := svc.Compose(context.Background(), adapters.ComposeRequest{
		PersonID: "u1", Channel: models.ChannelUnison, Recipients: []string{"u2"}, Subject: "hi", Body: "hello",
	})
	assert.True(t, result.Validated())
	assert.True(t, result.Confirmation.OK())
	assert.Equal(t, 1, adapter.sends)
	require.Len(t, result.Cards, 1)
	assert.Equal(t, models.CardKindConfirmation, result.Cards[0].Kind)
}

func TestSendFailureSurfacesAsErrorCard(t *testing.T) {
	adapter := &recordingAdapter{conf: models.ErrorConfirmation("imap", models.ErrKindNetworkUnreachable)}
	svc := NewService(fixedResolver{adapter})

	result := svc.Compose(context.Background(), adapters.ComposeRequest{
		PersonID: "u1", Channel: models.ChannelEmail, Recipients: []string{"a@example.com"}, Subject: "hi",
	})
	assert.True(t, result.Validated(), "send failures are not validation failures")
	assert.False(t, result.Confirmation.OK())
	require.Len(t, result.Cards, 1)
	assert.Contains(t, result.Cards[0].Body, models.ErrKindNetworkUnreachable)
}
