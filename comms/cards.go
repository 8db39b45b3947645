package comms

import (
	"fmt"

	"unisoncomms/models"
	"unisoncomms/utils"
)

const cardPreviewLength = 150

// MessagesToCards derives one message card per normalized message,
// preserving input order.
func MessagesToCards(messages []models.NormalizedMessage, originIntent string) []models.Card {
	cards := make([]models.Card, 0, len(messages))
	for _, msg := range messages {
		title := msg.Subject
		if title == "" {
			title = "New message"
		}

		tags := msg.ContextTags
		if len(tags) == 0 {
			tags = []string{"comms"}
		}

		cards = append(cards, models.Card{
			ID:           "comms-" + msg.ID,
			Kind:         models.CardKindMessage,
			Title:        title,
			Body:         utils.Preview(msg.Body, cardPreviewLength),
			Ref:          msg.ID,
			Tags:         tags,
			OriginIntent: originIntent,
		})
	}
	return cards
}

// SummaryToCard produces exactly one summary card for a summarize call.
func SummaryToCard(summaryText, scope string) models.Card {
	return models.Card{
		ID:           "comms-summary-" + scope,
		Kind:         models.CardKindSummary,
		Title:        fmt.Sprintf("Comms summary (%s)", scope),
		Body:         summaryText,
		Tags:         []string{"comms", "summary"},
		OriginIntent: "comms.summarize",
	}
}

// ConfirmationToCard reflects a send outcome as a card. Error confirmations
// surface the error kind in the card, never silently dropped.
func ConfirmationToCard(conf models.Confirmation, originIntent string) models.Card {
	if conf.OK() {
		return models.Card{
			ID:           "comms-sent-" + conf.MessageID,
			Kind:         models.CardKindConfirmation,
			Title:        "Message sent",
			Body:         fmt.Sprintf("Delivered via %s provider.", conf.Provider),
			Ref:          conf.MessageID,
			Tags:         []string{"comms", "sent"},
			OriginIntent: originIntent,
		}
	}

	return models.Card{
		ID:           "comms-send-failed",
		Kind:         models.CardKindConfirmation,
		Title:        "Send failed",
		Body:         fmt.Sprintf("The message was not sent: %s.", conf.ErrorKind),
		Tags:         []string{"comms", "error"},
		OriginIntent: originIntent,
	}
}
