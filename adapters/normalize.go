package adapters

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"unisoncomms/models"
	"unisoncomms/utils"
)

// EmailMessage is the provider-native record produced by the IMAP client
// before normalization.
type EmailMessage struct {
	UID       uint32
	MessageID string
	From      string
	To        []string
	Subject   string
	Date      time.Time
	TextBody  string
	HTMLBody  string
	Seen      bool
}

// PriorityTag derives the priority context tag from provider-native signals.
// Subject keywords win over the unread flag.
func PriorityTag(subject string, seen bool) string {
	sub := strings.ToLower(subject)
	if strings.Contains(sub, "urgent") || strings.Contains(sub, "action required") {
		return "p0"
	}
	if strings.Contains(sub, "important") {
		return "p1"
	}
	if !seen {
		return "p1"
	}
	return "p2"
}

// NormalizeEmail maps a native email record into the canonical shape. It is
// pure: the same record always yields an identical NormalizedMessage, and
// optional fields come out as explicit empty values rather than nils.
func NormalizeEmail(rec EmailMessage) models.NormalizedMessage {
	id := rec.MessageID
	if id == "" {
		id = fmt.Sprintf("%d", rec.UID)
	}

	body := rec.TextBody
	if body == "" && rec.HTMLBody != "" {
		body = utils.HTMLToText(rec.HTMLBody)
	}
	body = strings.TrimSpace(body)

	recipients := make([]string, 0, len(rec.To))
	recipients = append(recipients, rec.To...)

	return models.NormalizedMessage{
		ID:         id,
		Channel:    models.ChannelEmail,
		PersonID:   "",
		ThreadID:   utils.GenerateThreadID(utils.NormalizeSubject(rec.Subject)),
		Sender:     rec.From,
		Recipients: recipients,
		Subject:    rec.Subject,
		Body:       body,
		Timestamp:  rec.Date.UTC(),
		ContextTags: []string{
			"comms",
			models.ChannelEmail,
			PriorityTag(rec.Subject, rec.Seen),
		},
		Direction: models.DirectionInbound,
	}
}

// NewLocalMessage builds the canonical shape for a message originated on
// this device (stub or unison sends).
func NewLocalMessage(personID, channel string, recipients []string, subject, body, threadID string) models.NormalizedMessage {
	id := uuid.New().String()
	if threadID == "" {
		threadID = id
	}
	if recipients == nil {
		recipients = []string{}
	}

	return models.NormalizedMessage{
		ID:         id,
		Channel:    channel,
		PersonID:   personID,
		ThreadID:   threadID,
		Sender:     personID,
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
		Timestamp:  time.Now().UTC(),
		ContextTags: []string{
			"comms",
			channel,
			PriorityTag(subject, true),
		},
		Direction: models.DirectionOutbound,
	}
}
