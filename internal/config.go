package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	SiYuan   SiYuanConfig      `yaml:"siyuan"`
	Auth     AuthConfig        `yaml:"auth"`
	Journal  JournalConfig     `yaml:"journal"`
	Importer ImporterConfig    `yaml:"importer"`
	Policy   PolicyConfig      `yaml:"policy"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SiYuan.Validate(); err != nil {
		return fmt.Errorf("siyuan: %w", err)
	}
	if err := c.Importer.Validate(); err != nil {
		return fmt.Errorf("importer: %w", err)
	}
	if c.Importer.Enabled() && !c.Journal.Enabled() {
		return errors.New("importer: a journal path is required")
	}
	return c.Auth.Validate()
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

// SiYuanConfig holds the kernel connection.
type SiYuanConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the kernel connection.
func (c *SiYuanConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http or https URL")
	}
	return nil
}

// JournalConfig holds the SQLite journal location. An empty path disables
// the journal.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether a journal should be opened.
func (c *JournalConfig) Enabled() bool {
	return c.Path != ""
}

// ImporterConfig holds the vault importer settings. An empty vault disables
// the importer.
type ImporterConfig struct {
	Vault    string        `yaml:"vault"`
	Notebook string        `yaml:"notebook"`
	Prune    bool          `yaml:"prune"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// Enabled reports whether a vault is configured.
func (c *ImporterConfig) Enabled() bool {
	return c.Vault != ""
}

// Validate validates the importer configuration.
func (c *ImporterConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Notebook, validation.When(c.Enabled(), validation.Required)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// PolicyConfig holds caller-side restrictions.
type PolicyConfig struct {
	ReadOnlySQL bool `yaml:"read_only_sql"`
}

// AuthConfig holds gateway authentication configuration.
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
				Port: 8080,
			},
		},
		SiYuan: SiYuanConfig{
			URL: "http://127.0.0.1:6806",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Journal: JournalConfig{
			Path: "./siyuanflow.db",
		},
		Policy: PolicyConfig{
			ReadOnlySQL: true,
		},
	}
}
