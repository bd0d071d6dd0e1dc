// Package config loads danuu.json, applies environment overrides and
// watches the file for hot reloads.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"dario.cat/mergo"

	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/paths"
)

// Permit modes
const (
	PermitContacts   = "contacts"   // sender must be in the device address book
	PermitRegistered = "registered" // sender must be a registered WhatsApp number
)

// Config is the full bot configuration.
type Config struct {
	Prefix    string          `json:"prefix"`
	Session   SessionConfig   `json:"session"`
	Reconnect ReconnectConfig `json:"reconnect"`
	Permit    PermitConfig    `json:"permit"`
	Status    StatusConfig    `json:"status"`
	Rules     RulesConfig     `json:"rules"`
	Media     MediaConfig     `json:"media"`
	Logging   LoggingConfig   `json:"logging"`
}

// SessionConfig controls the linked device.
type SessionConfig struct {
	DBPath          string `json:"dbPath"`
	DeviceName      string `json:"deviceName"`
	ConnectedNotice string `json:"connectedNotice"`
}

// ReconnectConfig controls recovery after a non-logout close.
type ReconnectConfig struct {
	Disabled     bool     `json:"disabled"`
	InitialDelay Duration `json:"initialDelay"`
	MaxDelay     Duration `json:"maxDelay"`
	MaxAttempts  int      `json:"maxAttempts"` // 0 = unlimited
}

// PermitConfig controls the unknown-sender gate.
type PermitConfig struct {
	Mode   string `json:"mode"`
	Notice string `json:"notice"`
}

// StatusConfig controls status broadcast handling.
type StatusConfig struct {
	AutoView   bool   `json:"autoView"`
	ReactEmoji string `json:"reactEmoji"`
}

// RulesConfig holds the keyword and reaction rules.
// Greetings from the file are added to the defaults, not substituted.
type RulesConfig struct {
	SaveKeywords []string          `json:"saveKeywords"`
	SaveReply    string            `json:"saveReply"`
	ReactTrigger string            `json:"reactTrigger"`
	ReactEmoji   string            `json:"reactEmoji"`
	Greetings    map[string]string `json:"greetings"`
}

// MediaConfig controls the song pipeline and its temp store.
type MediaConfig struct {
	Dir           string   `json:"dir"`
	MIME          string   `json:"mime"`
	SearchTimeout Duration `json:"searchTimeout"`
	FetchTimeout  Duration `json:"fetchTimeout"`
	MaxBytes      int64    `json:"maxBytes"`
	MaxConcurrent int      `json:"maxConcurrent"`
	TTL           Duration `json:"ttl"`
	SweepSchedule string   `json:"sweepSchedule"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // text, json or logfmt
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Prefix: ".",
		Session: SessionConfig{
			DBPath:          dataPath("whatsapp.db"),
			DeviceName:      "DANUU-MD",
			ConnectedNotice: "DANUU-MD BOT CONNECTED",
		},
		Reconnect: ReconnectConfig{
			InitialDelay: Duration(2 * time.Second),
			MaxDelay:     Duration(2 * time.Minute),
		},
		Permit: PermitConfig{
			Mode: PermitContacts,
			Notice: "\n*This is an automated message.*\n" +
				"Hello, I am the bot for this number. I do not recognize your number. " +
				"Please wait for the owner of this number to respond.\n",
		},
		Status: StatusConfig{
			AutoView:   true,
			ReactEmoji: "👏",
		},
		Rules: RulesConfig{
			SaveKeywords: []string{"sv", "save", "සෙව්", "සෙවු"},
			SaveReply:    "HARI OYAWA AUTO SV",
			ReactTrigger: "danuu",
			ReactEmoji:   "👍",
			Greetings: map[string]string{
				"hello": "*Hi! I'm DANUU-MD bot.*",
				"hi":    "*Hello! How can I help you today?*",
			},
		},
		Media: MediaConfig{
			Dir:           dataPath("media"),
			MIME:          "audio/mp4",
			SearchTimeout: Duration(20 * time.Second),
			FetchTimeout:  Duration(5 * time.Minute),
			MaxBytes:      60 << 20,
			MaxConcurrent: 2,
			TTL:           Duration(30 * time.Minute),
			SweepSchedule: "@every 10m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// dataPath places sub under the danuu base directory, honouring DANUU_HOME.
func dataPath(sub string) string {
	p, err := paths.DataPath(sub)
	if err != nil {
		return "~/.danuu/" + sub
	}
	return p
}

// Load reads the config file at path over the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		L_debug("config: loaded", "path", path)
	}
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge applies the non-zero fields of override on top of c.
func (c *Config) Merge(override *Config) error {
	if override == nil {
		return nil
	}
	if err := mergo.Merge(c, override, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge overrides: %w", err)
	}
	if err := c.resolvePaths(); err != nil {
		return err
	}
	return c.Validate()
}

// resolvePaths expands "~" in file paths and lower-cases the prefix,
// which is matched against lower-cased message text.
func (c *Config) resolvePaths() error {
	c.Prefix = strings.ToLower(c.Prefix)

	var err error
	if c.Session.DBPath, err = paths.ExpandTilde(c.Session.DBPath); err != nil {
		return err
	}
	if c.Media.Dir, err = paths.ExpandTilde(c.Media.Dir); err != nil {
		return err
	}
	return nil
}

// Validate reports configuration errors that make the bot unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.Prefix == "" {
		errs = append(errs, errors.New("prefix must not be empty"))
	} else if strings.IndexFunc(c.Prefix, unicode.IsSpace) >= 0 {
		errs = append(errs, fmt.Errorf("prefix %q must not contain whitespace", c.Prefix))
	}
	if c.Session.DBPath == "" {
		errs = append(errs, errors.New("session.dbPath must be set"))
	}
	switch c.Permit.Mode {
	case PermitContacts, PermitRegistered:
	default:
		errs = append(errs, fmt.Errorf("permit.mode %q: want %q or %q", c.Permit.Mode, PermitContacts, PermitRegistered))
	}
	if c.Reconnect.InitialDelay < 0 || c.Reconnect.MaxDelay < 0 {
		errs = append(errs, errors.New("reconnect delays must not be negative"))
	}
	if c.Reconnect.MaxDelay > 0 && c.Reconnect.MaxDelay < c.Reconnect.InitialDelay {
		errs = append(errs, errors.New("reconnect.maxDelay is smaller than reconnect.initialDelay"))
	}
	if c.Reconnect.MaxAttempts < 0 {
		errs = append(errs, errors.New("reconnect.maxAttempts must not be negative"))
	}
	if c.Media.Dir == "" {
		errs = append(errs, errors.New("media.dir must be set"))
	}
	if c.Media.MIME == "" {
		errs = append(errs, errors.New("media.mime must be set"))
	}
	switch c.Logging.Format {
	case "", "text", "json", "logfmt":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: want text, json or logfmt", c.Logging.Format))
	}
	if c.Media.MaxConcurrent < 1 {
		errs = append(errs, errors.New("media.maxConcurrent must be at least 1"))
	}
	return errors.Join(errs...)
}

// Duration is a time.Duration that reads "90s"-style strings or
// nanosecond numbers from JSON.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts "1m30s" or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*d = Duration(time.Duration(val))
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}
