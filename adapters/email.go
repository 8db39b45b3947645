package adapters

import (
	"context"
	"errors"
	"os"
	"time"

	"unisoncomms/models"
	"unisoncomms/utils"
)

// EmailAdapter is the IMAP/SMTP-backed provider for the email channel.
// Fetch tolerates partial failure: an unreachable or misbehaving server
// yields an empty result, never a failed check. Sends open one short-lived
// SMTP session per call.
type EmailAdapter struct {
	cfg        models.AdapterConfig
	fetchLimit uint32
	timeout    time.Duration
}

// NewEmailAdapter constructs the adapter from resolved configuration. No
// network I/O happens here.
func NewEmailAdapter(cfg models.AdapterConfig, fetchLimit int, timeout time.Duration) *EmailAdapter {
	if fetchLimit <= 0 {
		fetchLimit = 5
	}
	return &EmailAdapter{
		cfg:        cfg,
		fetchLimit: uint32(fetchLimit),
		timeout:    timeout,
	}
}

func (a *EmailAdapter) Name() string {
	return "imap"
}

// secret resolves the credential handle at call time. The raw secret never
// lives on the adapter.
func (a *EmailAdapter) secret() string {
	return os.Getenv(a.cfg.CredentialHandle)
}

// FetchMessages pulls the most recent INBOX messages and normalizes them in
// provider-fetch order.
func (a *EmailAdapter) FetchMessages(_ context.Context, channel string) []models.NormalizedMessage {
	if channel != "" && channel != models.ChannelEmail {
		return []models.NormalizedMessage{}
	}

	client, err := NewIMAPClient(a.cfg.IMAPHost, a.cfg.IMAPPort, a.cfg.Address, a.secret(), a.timeout)
	if err != nil {
		utils.Log.Warn("email fetch unavailable: %v", err)
		return []models.NormalizedMessage{}
	}
	defer client.Close()

	records, err := client.FetchRecent(a.fetchLimit)
	if err != nil {
		// Keep whatever was fetched before the failure.
		utils.Log.Warn("email fetch incomplete: %v", err)
	}

	messages := make([]models.NormalizedMessage, 0, len(records))
	for _, rec := range records {
		messages = append(messages, NormalizeEmail(rec))
	}
	return messages
}

// SendReply sends a reply over SMTP. Recipients are required: the email
// provider cannot derive them from the thread id alone.
func (a *EmailAdapter) SendReply(_ context.Context, req ReplyRequest) models.Confirmation {
	if req.ThreadID == "" || req.MessageID == "" {
		return models.ErrorConfirmation(a.Name(), models.ErrKindValidationFailed)
	}
	if len(req.Recipients) == 0 {
		return models.ErrorConfirmation(a.Name(), models.ErrKindInvalidRecipient)
	}
	return a.send(req.Recipients, "Re: "+req.ThreadID, req.Body, req.ThreadID)
}

// SendCompose sends a new message over SMTP.
func (a *EmailAdapter) SendCompose(_ context.Context, req ComposeRequest) models.Confirmation {
	if len(req.Recipients) == 0 || req.Subject == "" {
		return models.ErrorConfirmation(a.Name(), models.ErrKindValidationFailed)
	}
	threadID := utils.GenerateThreadID(utils.NormalizeSubject(req.Subject))
	return a.send(req.Recipients, req.Subject, req.Body, threadID)
}

func (a *EmailAdapter) send(to []string, subject, body, threadID string) models.Confirmation {
	client := NewSMTPClient(
		a.cfg.SMTPHost,
		a.cfg.SMTPPort,
		a.cfg.Address,
		a.secret(),
		a.cfg.UseSTARTTLS,
		a.timeout,
	)

	messageID, err := client.Send(to, subject, body)
	if err != nil {
		utils.Log.Warn("email send failed: %v", err)
		var se *sendError
		if errors.As(err, &se) {
			return models.ErrorConfirmation(a.Name(), se.kind)
		}
		return models.ErrorConfirmation(a.Name(), models.ErrKindNetworkUnreachable)
	}

	return models.OkConfirmation(a.Name(), messageID, threadID)
}
