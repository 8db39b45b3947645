package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Host                string `toml:"host"`
	Port                int    `toml:"port"`
	UnsafeAllowNonlocal bool   `toml:"unsafe_allow_nonlocal"`
}

// ProvidersConfig selects the active provider per channel. Unknown or
// misconfigured selections fall back to the stub adapter at resolution time.
type ProvidersConfig struct {
	Email  string `toml:"email"`  // "imap" or "stub"
	Unison string `toml:"unison"` // "local" or "stub"
}

type IMAPConfig struct {
	Server string `toml:"server"`
	Port   int    `toml:"port"`
}

type SMTPConfig struct {
	Server      string `toml:"server"`
	Port        int    `toml:"port"`
	UseSTARTTLS bool   `toml:"use_starttls"` // true for port 587, false for port 465
}

// EmailConfig holds the account identity for the email channel. CredentialEnv
// names the environment variable holding the account secret; the secret value
// itself never appears in config.
type EmailConfig struct {
	Address        string `toml:"address"`
	CredentialEnv  string `toml:"credential_env"`
	FetchLimit     int    `toml:"fetch_limit"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// StoreConfig configures the encrypted on-device message store. The
// passphrase is looked up from PassphraseEnv at startup.
type StoreConfig struct {
	Path          string `toml:"path"`
	PassphraseEnv string `toml:"passphrase_env"`
}

type AuthConfig struct {
	Mode   string `toml:"mode"` // "permissive" or "required"
	Secret string `toml:"secret"`
}

type StreamConfig struct {
	QueueSize int `toml:"queue_size"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Providers ProvidersConfig `toml:"providers"`
	IMAP      IMAPConfig      `toml:"imap"`
	SMTP      SMTPConfig      `toml:"smtp"`
	Email     EmailConfig     `toml:"email"`
	Store     StoreConfig     `toml:"store"`
	Auth      AuthConfig      `toml:"auth"`
	Stream    StreamConfig    `toml:"stream"`
}

// Default returns a config usable with no file at all: stub email provider,
// local unison provider, loopback bind.
func Default() *Config {
	var config Config

	config.Server.Host = "127.0.0.1"
	config.Server.Port = 8080

	config.Providers.Email = "stub"
	config.Providers.Unison = "local"

	config.IMAP.Port = 993
	config.SMTP.Port = 587 // Default to STARTTLS port
	config.SMTP.UseSTARTTLS = true

	config.Email.CredentialEnv = "COMMS_EMAIL_PASSWORD"
	config.Email.FetchLimit = 5
	config.Email.TimeoutSeconds = 10

	config.Store.Path = "./data/unison.store"
	config.Store.PassphraseEnv = "COMMS_UNISON_KEY"

	config.Auth.Mode = "permissive"
	config.Stream.QueueSize = 16

	return &config
}

// LoadConfig reads configuration from a TOML file, applying defaults first.
// A missing file is not an error: the gateway must come up with zero
// configuration and resolve every channel to the stub adapter.
func LoadConfig(filepath string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	if _, err := toml.DecodeFile(filepath, config); err != nil {
		return nil, err
	}

	// If SMTP server is not specified, derive it from IMAP server
	if config.SMTP.Server == "" && config.IMAP.Server != "" {
		config.SMTP.Server = config.IMAP.Server
		// Convert imap.server.com to smtp.server.com
		if len(config.SMTP.Server) > 5 && config.SMTP.Server[:5] == "imap." {
			config.SMTP.Server = "smtp" + config.SMTP.Server[4:]
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks fields whose bad values should stop startup rather than be
// absorbed by the stub fallback.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Auth.Mode != "permissive" && c.Auth.Mode != "required" {
		return fmt.Errorf("invalid auth mode %q (want permissive or required)", c.Auth.Mode)
	}
	if c.Auth.Mode == "required" && c.Auth.Secret == "" {
		return fmt.Errorf("auth mode is required but no secret is configured")
	}
	if c.Stream.QueueSize <= 0 {
		return fmt.Errorf("invalid stream queue size %d", c.Stream.QueueSize)
	}
	return nil
}

// IsLoopback reports whether the configured bind host is local-only.
func (c *Config) IsLoopback() bool {
	switch c.Server.Host {
	case "127.0.0.1", "::1", "localhost":
		return true
	}
	return false
}

// GetPort returns the SMTP port, inferring the conventional port from the
// STARTTLS setting when unset.
func (c *SMTPConfig) GetPort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.UseSTARTTLS {
		return 587 // STARTTLS port
	}
	return 465 // SSL/TLS port
}

// DialTimeout returns the connect/response timeout for provider calls.
func (c *EmailConfig) DialTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StorePassphrase resolves the store passphrase from the environment.
func (c *StoreConfig) StorePassphrase() string {
	if c.PassphraseEnv == "" {
		return ""
	}
	return os.Getenv(c.PassphraseEnv)
}
