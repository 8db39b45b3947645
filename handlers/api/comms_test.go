package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisoncomms/adapters"
	"unisoncomms/comms"
	"unisoncomms/config"
	"unisoncomms/utils"
)

// newTestApp wires the handlers exactly like main.go, with zero provider
// configuration: both channels resolve to stubs.
func newTestApp() (*fiber.App, *comms.EventStream) {
	cfg := config.Default()
	stream := comms.NewEventStream(cfg.Stream.QueueSize)
	resolver := adapters.NewResolver(cfg, nil, stream.Publish)
	service := comms.NewService(resolver)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if appErr, ok := err.(*utils.AppError); ok {
				code = appErr.Code
			} else if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	h := NewCommsHandler(service)
	sh := NewStreamHandler(stream)

	group := app.Group("/comms")
	group.Post("/check", h.HandleCheck)
	group.Post("/summarize", h.HandleSummarize)
	group.Post("/reply", h.HandleReply)
	group.Post("/compose", h.HandleCompose)
	group.Post("/join_meeting", h.HandleMeeting("comms.join_meeting", "Joining meeting"))
	group.Post("/prepare_meeting", h.HandleMeeting("comms.prepare_meeting", "Meeting preparation"))
	group.Post("/debrief_meeting", h.HandleMeeting("comms.debrief_meeting", "Meeting debrief"))
	group.Get("/stream", sh.HandleSSE)

	return app, stream
}

func postJSON(t *testing.T, app *fiber.App, path string, payload map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp.StatusCode, decoded
}

func TestCheckReturnsStubMessagesAndCards(t *testing.T) {
	app, _ := newTestApp()

	status, body := postJSON(t, app, "/comms/check", map[string]interface{}{
		"person_id": "p1", "channel": "email",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "p1", body["person_id"])

	messages := body["messages"].([]interface{})
	require.NotEmpty(t, messages)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "email", first["channel"])
	assert.Contains(t, first["context_tags"], "comms")

	cards := body["cards"].([]interface{})
	require.Len(t, cards, len(messages))
	assert.Equal(t, "comms.check", cards[0].(map[string]interface{})["origin_intent"])
}

func TestSummarizeReturnsSummaryCard(t *testing.T) {
	app, _ := newTestApp()

	status, body := postJSON(t, app, "/comms/summarize", map[string]interface{}{
		"person_id": "p1", "window": "today",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body["summary"], "Summary for today")

	cards := body["cards"].([]interface{})
	require.Len(t, cards, 1)
	card := cards[0].(map[string]interface{})
	assert.Equal(t, "summary", card["kind"])
	assert.Equal(t, "comms.summarize", card["origin_intent"])
}

func TestComposeThenCheckOnUnison(t *testing.T) {
	app, _ := newTestApp()

	status, body := postJSON(t, app, "/comms/compose", map[string]interface{}{
		"person_id":  "u1",
		"channel":    "unison",
		"recipients": []string{"u2"},
		"subject":    "hi",
		"body":       "hello",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["ok"])

	conf := body["confirmation"].(map[string]interface{})
	assert.Equal(t, "ok", conf["status"])
	messageID := conf["message_id"].(string)
	require.NotEmpty(t, messageID)

	status, body = postJSON(t, app, "/comms/check", map[string]interface{}{
		"person_id": "u2", "channel": "unison",
	})
	require.Equal(t, fiber.StatusOK, status)
	messages := body["messages"].([]interface{})
	require.NotEmpty(t, messages)

	var found map[string]interface{}
	for _, m := range messages {
		msg := m.(map[string]interface{})
		if msg["id"] == messageID {
			found = msg
		}
	}
	require.NotNil(t, found, "composed message must appear in a later check")
	assert.Contains(t, found["context_tags"], "unison")
}

func TestComposeRejectsEmptyRecipients(t *testing.T) {
	app, _ := newTestApp()

	status, body := postJSON(t, app, "/comms/compose", map[string]interface{}{
		"person_id":  "u1",
		"channel":    "unison",
		"recipients": []string{},
		"subject":    "hi",
		"body":       "hello",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	conf := body["confirmation"].(map[string]interface{})
	assert.Equal(t, "validation_failed", conf["error_kind"])

	cards := body["cards"].([]interface{})
	require.Len(t, cards, 1, "rejection still surfaces a card")
}

func TestComposeRejectsEmptySubject(t *testing.T) {
	app, _ := newTestApp()

	status, _ := postJSON(t, app, "/comms/compose", map[string]interface{}{
		"person_id":  "u1",
		"channel":    "unison",
		"recipients": []string{"u2"},
		"body":       "hello",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestReplyRequiresIdentifiers(t *testing.T) {
	app, _ := newTestApp()

	status, _ := postJSON(t, app, "/comms/reply", map[string]interface{}{
		"person_id": "p1", "body": "ok",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := postJSON(t, app, "/comms/reply", map[string]interface{}{
		"person_id":  "p1",
		"channel":    "unison",
		"thread_id":  "t1",
		"message_id": "m1",
		"body":       "ok",
	})
	require.Equal(t, fiber.StatusOK, status)
	conf := body["confirmation"].(map[string]interface{})
	assert.Equal(t, "ok", conf["status"])
}

func TestComposePublishesStreamEvent(t *testing.T) {
	app, stream := newTestApp()

	id, events := stream.Subscribe()
	defer stream.Unsubscribe(id)

	status, body := postJSON(t, app, "/comms/compose", map[string]interface{}{
		"person_id":  "u1",
		"channel":    "unison",
		"recipients": []string{"u2"},
		"subject":    "hi",
		"body":       "hello",
	})
	require.Equal(t, fiber.StatusOK, status)
	conf := body["confirmation"].(map[string]interface{})

	event := <-events
	assert.Equal(t, "message.sent", event.EventType)
	assert.Equal(t, conf["message_id"], event.Payload.ID)
}

func TestMeetingStubsReturnCards(t *testing.T) {
	app, _ := newTestApp()

	for _, tc := range []struct {
		path   string
		intent string
	}{
		{"/comms/join_meeting", "comms.join_meeting"},
		{"/comms/prepare_meeting", "comms.prepare_meeting"},
		{"/comms/debrief_meeting", "comms.debrief_meeting"},
	} {
		status, body := postJSON(t, app, tc.path, map[string]interface{}{
			"person_id": "p1", "meeting_id": "m1", "join_url": "https://x",
		})
		require.Equal(t, fiber.StatusOK, status, tc.path)
		cards := body["cards"].([]interface{})
		require.Len(t, cards, 1)
		assert.Equal(t, tc.intent, cards[0].(map[string]interface{})["origin_intent"])
	}
}

func TestMeetingStubRequiresMeetingID(t *testing.T) {
	app, _ := newTestApp()

	status, _ := postJSON(t, app, "/comms/join_meeting", map[string]interface{}{
		"person_id": "p1",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
}
