// Package adapters implements the provider capability interface and its
// concrete variants: the in-memory stub, the IMAP/SMTP email provider and
// the on-device unison channel backed by the encrypted store.
package adapters

import (
	"context"

	"unisoncomms/models"
)

// ProviderAdapter is the uniform capability contract across providers.
// Fetch errors are absorbed by the adapters themselves (an unreachable
// provider yields an empty slice); send failures come back as error
// confirmations, never as Go errors.
type ProviderAdapter interface {
	Name() string
	FetchMessages(ctx context.Context, channel string) []models.NormalizedMessage
	SendReply(ctx context.Context, req ReplyRequest) models.Confirmation
	SendCompose(ctx context.Context, req ComposeRequest) models.Confirmation
}

// ReplyRequest carries a reply to an existing thread/message.
type ReplyRequest struct {
	PersonID   string   `json:"person_id"`
	ThreadID   string   `json:"thread_id"`
	MessageID  string   `json:"message_id"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients,omitempty"`
}

// ComposeRequest carries a new outbound message.
type ComposeRequest struct {
	PersonID   string   `json:"person_id"`
	Channel    string   `json:"channel"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}
