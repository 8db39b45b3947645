// Package api exposes the comms operations over HTTP. Routing lives in
// main.go; handlers translate JSON payloads to service calls and back.
package api

import (
	"github.com/gofiber/fiber/v2"

	"unisoncomms/adapters"
	"unisoncomms/comms"
	"unisoncomms/models"
	"unisoncomms/utils"
)

const defaultPersonID = "local-user"

// CommsHandler serves the check/summarize/reply/compose operations.
type CommsHandler struct {
	service *comms.Service
}

// NewCommsHandler creates the comms HTTP handler.
func NewCommsHandler(service *comms.Service) *CommsHandler {
	return &CommsHandler{service: service}
}

type checkRequest struct {
	PersonID string `json:"person_id"`
	Channel  string `json:"channel"`
}

// HandleCheck fetches new communications for a channel.
func (h *CommsHandler) HandleCheck(c *fiber.Ctx) error {
	var req checkRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	personID := personOrDefault(c, req.PersonID)

	result := h.service.Check(c.UserContext(), req.Channel)

	return c.JSON(fiber.Map{
		"ok":            true,
		"person_id":     personID,
		"messages":      result.Messages,
		"cards":         result.Cards,
		"origin_intent": "comms.check",
	})
}

type summarizeRequest struct {
	PersonID string `json:"person_id"`
	Channel  string `json:"channel"`
	Window   string `json:"window"`
	Scope    string `json:"scope"`
}

// HandleSummarize condenses communications over a time window or topic.
func (h *CommsHandler) HandleSummarize(c *fiber.Ctx) error {
	var req summarizeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	personID := personOrDefault(c, req.PersonID)

	window := req.Window
	if window == "" {
		window = req.Scope
	}

	result := h.service.Summarize(c.UserContext(), req.Channel, window)

	return c.JSON(fiber.Map{
		"ok":            true,
		"person_id":     personID,
		"summary":       result.Summary,
		"cards":         result.Cards,
		"origin_intent": "comms.summarize",
	})
}

type replyRequest struct {
	PersonID   string   `json:"person_id"`
	Channel    string   `json:"channel"`
	ThreadID   string   `json:"thread_id"`
	MessageID  string   `json:"message_id"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

// HandleReply sends a reply into an existing thread.
func (h *CommsHandler) HandleReply(c *fiber.Ctx) error {
	var req replyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	personID := personOrDefault(c, req.PersonID)

	result := h.service.Reply(c.UserContext(), req.Channel, adapters.ReplyRequest{
		PersonID:   personID,
		ThreadID:   req.ThreadID,
		MessageID:  req.MessageID,
		Body:       req.Body,
		Recipients: req.Recipients,
	})

	return sendResponse(c, personID, "comms.reply", result)
}

type composeRequest struct {
	PersonID   string   `json:"person_id"`
	Channel    string   `json:"channel"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// HandleCompose sends a new message.
func (h *CommsHandler) HandleCompose(c *fiber.Ctx) error {
	var req composeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	personID := personOrDefault(c, req.PersonID)

	result := h.service.Compose(c.UserContext(), adapters.ComposeRequest{
		PersonID:   personID,
		Channel:    req.Channel,
		Recipients: req.Recipients,
		Subject:    req.Subject,
		Body:       req.Body,
	})

	return sendResponse(c, personID, "comms.compose", result)
}

type meetingRequest struct {
	PersonID  string `json:"person_id"`
	MeetingID string `json:"meeting_id"`
	JoinURL   string `json:"join_url"`
}

// HandleMeeting serves the meeting stub operations (join/prepare/debrief).
// They validate identifiers and return a single card; no provider is
// involved.
func (h *CommsHandler) HandleMeeting(intent, title string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req meetingRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		personID := personOrDefault(c, req.PersonID)

		if req.MeetingID == "" {
			return utils.BadRequestError("meeting_id required", nil)
		}

		card := models.Card{
			ID:           "comms-meeting-" + req.MeetingID,
			Kind:         models.CardKindConfirmation,
			Title:        title,
			Body:         "Meeting " + req.MeetingID,
			Ref:          req.MeetingID,
			Tags:         []string{"comms", "meeting"},
			OriginIntent: intent,
		}

		return c.JSON(fiber.Map{
			"ok":            true,
			"person_id":     personID,
			"meeting_id":    req.MeetingID,
			"cards":         []models.Card{card},
			"origin_intent": intent,
		})
	}
}

func sendResponse(c *fiber.Ctx, personID, intent string, result comms.SendResult) error {
	status := fiber.StatusOK
	if !result.Validated() {
		status = fiber.StatusBadRequest
	}

	return c.Status(status).JSON(fiber.Map{
		"ok":            result.Confirmation.OK(),
		"person_id":     personID,
		"confirmation":  result.Confirmation,
		"cards":         result.Cards,
		"origin_intent": intent,
	})
}

// parseBody decodes the JSON request body, tolerating an absent body.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}
	return nil
}

// personOrDefault prefers an authenticated subject, then the request field,
// then the local default.
func personOrDefault(c *fiber.Ctx, requested string) string {
	if sub, ok := c.Locals("person_id").(string); ok && sub != "" {
		return sub
	}
	if requested != "" {
		return requested
	}
	return defaultPersonID
}
