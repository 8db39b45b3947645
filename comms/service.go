package comms

import (
	"context"
	"fmt"

	"unisoncomms/adapters"
	"unisoncomms/models"
)

// AdapterResolver yields the active provider for a channel. Satisfied by
// adapters.Resolver.
type AdapterResolver interface {
	Resolve(channel string) adapters.ProviderAdapter
}

// Service orchestrates the comms operations: resolve an adapter, invoke it,
// derive cards. Stream events for local channel activity are published by
// the adapters themselves at write/read time.
type Service struct {
	resolver AdapterResolver
}

// NewService creates the orchestration service.
func NewService(resolver AdapterResolver) *Service {
	return &Service{resolver: resolver}
}

// CheckResult is the outcome of a comms.check call.
type CheckResult struct {
	Messages []models.NormalizedMessage `json:"messages"`
	Cards    []models.Card              `json:"cards"`
}

// SummarizeResult is the outcome of a comms.summarize call.
type SummarizeResult struct {
	Summary string        `json:"summary"`
	Cards   []models.Card `json:"cards"`
}

// SendResult is the outcome of a reply or compose call.
type SendResult struct {
	Confirmation models.Confirmation `json:"confirmation"`
	Cards        []models.Card       `json:"cards"`
}

// Validated reports whether the send passed field validation.
func (r SendResult) Validated() bool {
	return r.Confirmation.ErrorKind != models.ErrKindValidationFailed
}

// Check fetches and normalizes messages for the channel. Provider failures
// have already degraded to an empty result inside the adapter, so a check
// always succeeds structurally.
func (s *Service) Check(ctx context.Context, channel string) CheckResult {
	if channel == "" {
		channel = models.ChannelEmail
	}

	adapter := s.resolver.Resolve(channel)
	messages := adapter.FetchMessages(ctx, channel)
	if messages == nil {
		messages = []models.NormalizedMessage{}
	}

	return CheckResult{
		Messages: messages,
		Cards:    MessagesToCards(messages, "comms.check"),
	}
}

// Summarize condenses the channel's current messages into one summary line
// and exactly one summary card, bucketed by priority tag.
func (s *Service) Summarize(ctx context.Context, channel, window string) SummarizeResult {
	if channel == "" {
		channel = models.ChannelEmail
	}
	if window == "" {
		window = "today"
	}

	adapter := s.resolver.Resolve(channel)
	messages := adapter.FetchMessages(ctx, channel)

	var urgent, important, routine int
	for i := range messages {
		switch {
		case messages[i].HasTag("p0"):
			urgent++
		case messages[i].HasTag("p1"):
			important++
		default:
			routine++
		}
	}

	summary := fmt.Sprintf("Summary for %s: %d urgent, %d important, %d routine.",
		window, urgent, important, routine)

	return SummarizeResult{
		Summary: summary,
		Cards:   []models.Card{SummaryToCard(summary, window)},
	}
}

// Reply validates and sends a reply into an existing thread. Validation
// failures are rejected before any adapter is invoked.
func (s *Service) Reply(ctx context.Context, channel string, req adapters.ReplyRequest) SendResult {
	if channel == "" {
		channel = models.ChannelEmail
	}

	if req.PersonID == "" || req.ThreadID == "" || req.MessageID == "" {
		return validationFailure("comms.reply")
	}

	conf := s.resolver.Resolve(channel).SendReply(ctx, req)
	return SendResult{
		Confirmation: conf,
		Cards:        []models.Card{ConfirmationToCard(conf, "comms.reply")},
	}
}

// Compose validates and sends a new message. Empty recipients or an empty
// subject are rejected before any adapter is invoked.
func (s *Service) Compose(ctx context.Context, req adapters.ComposeRequest) SendResult {
	if req.Channel == "" {
		req.Channel = models.ChannelEmail
	}

	if req.PersonID == "" || len(req.Recipients) == 0 || req.Subject == "" {
		return validationFailure("comms.compose")
	}

	conf := s.resolver.Resolve(req.Channel).SendCompose(ctx, req)
	return SendResult{
		Confirmation: conf,
		Cards:        []models.Card{ConfirmationToCard(conf, "comms.compose")},
	}
}

func validationFailure(intent string) SendResult {
	conf := models.Confirmation{
		Status:    "error",
		ErrorKind: models.ErrKindValidationFailed,
	}
	return SendResult{
		Confirmation: conf,
		Cards:        []models.Card{ConfirmationToCard(conf, intent)},
	}
}
