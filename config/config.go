// Package config loads treepilot settings from defaults, an optional YAML or
// TOML file and TREEPILOT_* environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"treepilot/detail"
	"treepilot/source"
	"treepilot/view"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TREEPILOT_"

// Config is the complete treepilot configuration.
type Config struct {
	// DataFile is the family JSON or YAML file served by the file provider.
	DataFile string `json:"dataFile" yaml:"data_file" toml:"data_file"`
	// ServerURL selects the HTTP provider instead of DataFile.
	ServerURL string `json:"serverURL" yaml:"server_url" toml:"server_url" validate:"omitempty,url"`
	// Watch reloads DataFile when it changes.
	Watch         bool          `json:"watch" yaml:"watch" toml:"watch"`
	WatchDebounce time.Duration `json:"watchDebounce" yaml:"watch_debounce" toml:"watch_debounce" validate:"gte=0"`

	View   view.Options         `json:"view" yaml:"view" toml:"view"`
	Detail detail.Options       `json:"detail" yaml:"detail" toml:"detail"`
	Client source.ClientOptions `json:"client" yaml:"client" toml:"client"`
	Server Server               `json:"server" yaml:"server" toml:"server"`
	Log    Log                  `json:"log" yaml:"log" toml:"log"`

	// Sources lists where values came from, lowest priority first.
	Sources []string `json:"-" yaml:"-" toml:"-"`
}

// Server configures the HTTP API.
type Server struct {
	Addr            string        `json:"addr" yaml:"addr" toml:"addr" validate:"required"`
	ReadTimeout     time.Duration `json:"readTimeout" yaml:"read_timeout" toml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"write_timeout" toml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdown_timeout" toml:"shutdown_timeout" validate:"gte=0"`
	CORSOrigins     []string      `json:"corsOrigins" yaml:"cors_origins" toml:"cors_origins"`
	// SessionTTL closes view sessions nobody has touched for this long.
	SessionTTL  time.Duration `json:"sessionTTL" yaml:"session_ttl" toml:"session_ttl" validate:"gte=0"`
	MaxSessions int           `json:"maxSessions" yaml:"max_sessions" toml:"max_sessions" validate:"gte=0"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `json:"level" yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Development bool   `json:"development" yaml:"development" toml:"development"`
	// File redirects logs away from the terminal, used by the explorer.
	File string `json:"file" yaml:"file" toml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataFile:      "family.json",
		WatchDebounce: source.DefaultDebounce,
		View:          view.DefaultOptions(),
		Detail:        detail.DefaultOptions(),
		Client:        source.DefaultClientOptions(),
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			SessionTTL:      30 * time.Minute,
			MaxSessions:     256,
		},
		Log:     Log{Level: "info"},
		Sources: []string{"defaults"},
	}
}

// Load builds the configuration. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parse %s: unknown key %s", path, undecoded[0])
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	c.Sources = append(c.Sources, path)
	return nil
}

// override applies one environment variable.
type override struct {
	name string
	set  func(c *Config, v string) error
}

var overrides = []override{
	{"DATA_FILE", func(c *Config, v string) error { c.DataFile = v; return nil }},
	{"SERVER_URL", func(c *Config, v string) error { c.ServerURL = v; return nil }},
	{"WATCH", func(c *Config, v string) error { return setBool(&c.Watch, v) }},
	{"ADDR", func(c *Config, v string) error { c.Server.Addr = v; return nil }},
	{"CORS_ORIGINS", func(c *Config, v string) error { c.Server.CORSOrigins = splitList(v); return nil }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"LOG_DEVELOPMENT", func(c *Config, v string) error { return setBool(&c.Log.Development, v) }},
	{"LOG_FILE", func(c *Config, v string) error { c.Log.File = v; return nil }},
	{"OPEN_DELAY", func(c *Config, v string) error { return setDuration(&c.View.Interaction.OpenDelay, v) }},
	{"CLOSE_DELAY", func(c *Config, v string) error { return setDuration(&c.View.Interaction.CloseDelay, v) }},
	{"FETCH_DEPTH", func(c *Config, v string) error { return setInt(&c.View.FetchDepth, v) }},
	{"ANCESTOR_DEPTH", func(c *Config, v string) error { return setInt(&c.View.AncestorDepth, v) }},
	{"DESCENDANT_DEPTH", func(c *Config, v string) error { return setInt(&c.View.DescendantDepth, v) }},
	{"DETAIL_MAX_ENTRIES", func(c *Config, v string) error { return setInt(&c.Detail.MaxEntries, v) }},
	{"CLIENT_TIMEOUT", func(c *Config, v string) error { return setDuration(&c.Client.Timeout, v) }},
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	applied := false
	for _, o := range overrides {
		v, ok := lookup(EnvPrefix + o.name)
		if !ok {
			continue
		}
		if err := o.set(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, o.name, err)
		}
		applied = true
	}
	if applied {
		c.Sources = append(c.Sources, "environment")
	}
	return nil
}

// Validate checks struct constraints and the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.View.Layout.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.DataFile == "" && c.ServerURL == "" {
		return fmt.Errorf("%w: one of data_file or server_url is required", ErrInvalid)
	}
	return nil
}

// Remote reports whether the HTTP provider is configured.
func (c *Config) Remote() bool {
	return c.ServerURL != ""
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
