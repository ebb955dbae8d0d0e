package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"

	"github.com/starford/tidy/internal/organizer"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig   `yaml:"app"`
	Organizer OrganizerConfig     `yaml:"organizer"`
	Rules     RulesConfig         `yaml:"rules"`
	Journal   JournalConfig       `yaml:"journal"`
	Auth      AuthConfig          `yaml:"auth"`
	Buckets   map[string][]string `yaml:"buckets"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Organizer.Validate(); err != nil {
		return fmt.Errorf("organizer: %w", err)
	}
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if err := c.Journal.Validate(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if err := validation.Validate(c.Buckets, validation.Each(validation.Required)); err != nil {
		return fmt.Errorf("buckets: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if !c.Auth.AuthEnabled() && !c.App.HTTP.Loopback() {
		return fmt.Errorf("app.http.host %q is reachable from the network: set auth.mode to %q", c.App.HTTP.Host, AuthModeToken)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
//
// Lang selects the language of folder names and status lines ("en", "it").
// When empty it is taken from LC_ALL, LC_MESSAGES or LANG.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Lang     string     `yaml:"lang"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Lang, validation.By(languageTag)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

func languageTag(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := language.Parse(s); err != nil {
		return errors.New("must be a BCP 47 language tag")
	}
	return nil
}

// HTTPConfig holds HTTP server configuration. An empty Host listens on
// every interface.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Loopback reports whether Host only accepts local connections.
func (c *HTTPConfig) Loopback() bool {
	if c.Host == "localhost" {
		return true
	}
	ip := net.ParseIP(c.Host)
	return ip != nil && ip.IsLoopback()
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// OrganizerConfig holds the watch target and loop settings.
type OrganizerConfig struct {
	Path      string        `yaml:"path"`
	Interval  time.Duration `yaml:"interval"`
	AutoStart bool          `yaml:"auto_start"`
}

// Validate validates the organizer configuration.
func (c *OrganizerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.AutoStart, validation.Required)),
		validation.Field(&c.Interval, validation.Min(time.Second)),
	)
}

// RulesConfig holds the location of the rules file.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the rules configuration.
func (c *RulesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// JournalConfig holds the activity journal database location.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 8080,
			},
		},
		Organizer: OrganizerConfig{
			Interval: organizer.DefaultInterval,
		},
		Rules: RulesConfig{
			Path: "./rules.json",
		},
		Journal: JournalConfig{
			Path: "./tidy.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
