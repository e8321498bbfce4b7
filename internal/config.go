package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/orgagenda/internal/org"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Agenda AgendaConfig      `yaml:"agenda"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Agenda.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the org vault directory. Files, when set, restricts the
// agenda to those vault-relative paths in the given order.
type VaultConfig struct {
	Path  string   `yaml:"path"`
	Files []string `yaml:"files"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Files, validation.Each(validation.Required)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// Malformed timestamp handling modes.
const (
	OnMalformedSkip = "skip"
	OnMalformedFail = "fail"
)

// AgendaConfig holds agenda build settings.
type AgendaConfig struct {
	OnMalformed   string        `yaml:"on_malformed"`
	Timezone      string        `yaml:"timezone"`
	NowEntry      *bool         `yaml:"now_entry"`
	EventThrottle time.Duration `yaml:"event_throttle"`

	loc *time.Location
}

// Validate validates the agenda configuration and resolves the timezone.
func (c *AgendaConfig) Validate() error {
	if c.OnMalformed == "" {
		c.OnMalformed = OnMalformedSkip
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.OnMalformed, validation.In(OnMalformedSkip, OnMalformedFail)),
		validation.Field(&c.EventThrottle, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	c.loc = time.Local
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("agenda: timezone: %w", err)
		}
		c.loc = loc
	}
	return nil
}

// Location returns the timezone timestamps are read in. Validate must have
// been called; otherwise the local zone is used.
func (c *AgendaConfig) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Policy maps OnMalformed to the builder policy.
func (c *AgendaConfig) Policy() org.MalformedPolicy {
	if c.OnMalformed == OnMalformedFail {
		return org.PolicyFail
	}
	return org.PolicySkip
}

// NowEntryEnabled reports whether the agenda carries the "now" line.
func (c *AgendaConfig) NowEntryEnabled() bool {
	return c.NowEntry == nil || *c.NowEntry
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./orgagenda.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Agenda: AgendaConfig{
			OnMalformed:   OnMalformedSkip,
			EventThrottle: 2 * time.Second,
		},
	}
}
