package models

import "time"

// Channel names supported by the gateway.
const (
	ChannelEmail  = "email"
	ChannelUnison = "unison"
)

// Message direction relative to the local user.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// NormalizedMessage is the canonical message shape shared by every provider.
// IDs are provider-unique within a channel; ContextTags always carries the
// "comms" tag, the channel name and a priority tag.
type NormalizedMessage struct {
	ID          string    `json:"id"`
	Channel     string    `json:"channel"`
	PersonID    string    `json:"person_id"`
	ThreadID    string    `json:"thread_id"`
	Sender      string    `json:"sender"`
	Recipients  []string  `json:"recipients"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Timestamp   time.Time `json:"timestamp"`
	ContextTags []string  `json:"context_tags"`
	Direction   string    `json:"direction"`
}

// HasTag reports whether the message carries the given context tag.
func (m *NormalizedMessage) HasTag(tag string) bool {
	for _, t := range m.ContextTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Confirmation is the structured outcome of a send-type action. It is always
// returned, never raised: failures carry a machine-readable ErrorKind.
type Confirmation struct {
	Status    string `json:"status"` // "ok" or "error"
	MessageID string `json:"message_id,omitempty"`
	ThreadID  string `json:"thread_id,omitempty"`
	Provider  string `json:"provider,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Error kinds carried by error confirmations.
const (
	ErrKindAuthFailed         = "auth_failed"
	ErrKindNetworkUnreachable = "network_unreachable"
	ErrKindInvalidRecipient   = "invalid_recipient"
	ErrKindTimeout            = "timeout"
	ErrKindValidationFailed   = "validation_failed"
	ErrKindStoreFailed        = "store_failed"
)

// OK reports whether the confirmation represents a successful send.
func (c Confirmation) OK() bool {
	return c.Status == "ok"
}

// OkConfirmation builds a success confirmation for a sent message.
func OkConfirmation(provider, messageID, threadID string) Confirmation {
	return Confirmation{
		Status:    "ok",
		MessageID: messageID,
		ThreadID:  threadID,
		Provider:  provider,
	}
}

// ErrorConfirmation builds an error confirmation with the given kind.
func ErrorConfirmation(provider, kind string) Confirmation {
	return Confirmation{
		Status:    "error",
		Provider:  provider,
		ErrorKind: kind,
	}
}

// StreamEvent is a single event delivered to stream subscribers.
type StreamEvent struct {
	EventType string            `json:"event_type"`
	Payload   NormalizedMessage `json:"payload"`
}

// Event types published on the unison stream.
const (
	EventMessageFetched = "message.fetched"
	EventMessageSent    = "message.sent"
)

// AdapterConfig is the resolved, immutable configuration handed to a provider
// adapter at construction time. CredentialHandle is an opaque reference (an
// environment variable name); the raw secret is never stored here.
type AdapterConfig struct {
	Channel          string
	ProviderName     string
	CredentialHandle string
	Address          string // account address used for IMAP login and SMTP From
	IMAPHost         string
	IMAPPort         int
	SMTPHost         string
	SMTPPort         int
	UseSTARTTLS      bool
}
