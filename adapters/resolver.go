package adapters

import (
	"os"

	"unisoncomms/config"
	"unisoncomms/models"
	"unisoncomms/storage"
	"unisoncomms/utils"
)

// Resolver selects the active adapter per channel. Resolution never fails:
// an unknown provider name or incomplete provider configuration falls back
// to the stub adapter for that channel, so every comms operation works with
// zero configuration. Resolution itself performs no network I/O.
type Resolver struct {
	cfg     *config.Config
	store   *storage.LocalEncryptedStore // nil when the unison store is not configured
	publish func(models.StreamEvent)

	// Stubs are long-lived so stub sends stay visible to later checks.
	stubs map[string]*StubAdapter
}

// NewResolver builds a resolver over read-only configuration. store may be
// nil; publish may be nil.
func NewResolver(cfg *config.Config, store *storage.LocalEncryptedStore, publish func(models.StreamEvent)) *Resolver {
	r := &Resolver{
		cfg:     cfg,
		store:   store,
		publish: publish,
		stubs:   make(map[string]*StubAdapter),
	}

	r.stubs[models.ChannelEmail] = NewStubAdapter(models.ChannelEmail, nil)
	// The unison stub publishes stream events like the real local adapter so
	// streaming still works without a configured store.
	r.stubs[models.ChannelUnison] = NewStubAdapter(models.ChannelUnison, publish)

	return r
}

// Resolve returns the adapter for a channel. Never returns nil and never
// errors; fallback reasons are logged.
func (r *Resolver) Resolve(channel string) ProviderAdapter {
	switch channel {
	case models.ChannelEmail:
		if r.cfg.Providers.Email == "imap" {
			reason := r.emailConfigProblem()
			if reason == "" {
				return NewEmailAdapter(r.emailAdapterConfig(), r.cfg.Email.FetchLimit, r.cfg.Email.DialTimeout())
			}
			utils.Log.Warn("email provider unavailable (%s), using stub", reason)
		}
		return r.stubs[models.ChannelEmail]

	case models.ChannelUnison:
		if r.cfg.Providers.Unison == "local" {
			if r.store != nil {
				return NewLocalChannelAdapter(r.store, r.publish)
			}
			utils.Log.Warn("unison store not configured, using stub")
		}
		return r.stubs[models.ChannelUnison]

	default:
		utils.Log.Warn("unknown channel %q, using stub", channel)
		return NewStubAdapter(channel, nil)
	}
}

// emailConfigProblem returns "" when the imap provider is fully configured.
func (r *Resolver) emailConfigProblem() string {
	switch {
	case r.cfg.IMAP.Server == "":
		return "imap server missing"
	case r.cfg.Email.Address == "":
		return "account address missing"
	case r.cfg.Email.CredentialEnv == "":
		return "credential handle missing"
	case os.Getenv(r.cfg.Email.CredentialEnv) == "":
		return "credential " + r.cfg.Email.CredentialEnv + " not set"
	case r.cfg.SMTP.Server == "":
		return "smtp server missing"
	}
	return ""
}

func (r *Resolver) emailAdapterConfig() models.AdapterConfig {
	return models.AdapterConfig{
		Channel:          models.ChannelEmail,
		ProviderName:     "imap",
		CredentialHandle: r.cfg.Email.CredentialEnv,
		Address:          r.cfg.Email.Address,
		IMAPHost:         r.cfg.IMAP.Server,
		IMAPPort:         r.cfg.IMAP.Port,
		SMTPHost:         r.cfg.SMTP.Server,
		SMTPPort:         r.cfg.SMTP.GetPort(),
		UseSTARTTLS:      r.cfg.SMTP.UseSTARTTLS,
	}
}
