// ABOUTME: Configuration loader for the portal client
// ABOUTME: Merges YAML file, .env file, and environment variables over defaults

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName names the per-user config directory.
const AppName = "fntc-portal"

const defaultAPIURL = "http://localhost:5000/api"

// Store drivers
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type Config struct {
	APIURL           string        `yaml:"api_url"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	BootstrapTimeout time.Duration `yaml:"bootstrap_timeout"`

	Store  StoreConfig  `yaml:"store"`
	Chat   ChatConfig   `yaml:"chat"`
	Google GoogleConfig `yaml:"google"`
	Log    LogConfig    `yaml:"log"`

	// Dir is the per-user config directory (not read from YAML)
	Dir string `yaml:"-"`
}

// StoreConfig selects where local session state is persisted
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
}

// ChatConfig holds live-chat transport timings
type ChatConfig struct {
	OpenTimeout    time.Duration `yaml:"open_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	TypingDebounce time.Duration `yaml:"typing_debounce"`
}

// GoogleConfig holds OAuth client credentials for Google sign-in
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Enabled returns true if Google sign-in is configured
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != ""
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the configuration used when nothing else is set
func Defaults() *Config {
	return &Config{
		APIURL:           defaultAPIURL,
		RequestTimeout:   30 * time.Second,
		BootstrapTimeout: 10 * time.Second,
		Store: StoreConfig{
			Driver:   DriverFile,
			RedisURL: "redis://localhost:6379/0",
		},
		Chat: ChatConfig{
			OpenTimeout:    8 * time.Second,
			PollInterval:   4 * time.Second,
			TypingDebounce: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Dir: DefaultDir(),
	}
}

// DefaultDir returns the config directory following the XDG convention
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName)
}

// Load builds the configuration. path is an optional YAML file; when empty the
// config.yaml in the default directory is used if present. A .env file in the
// working directory is loaded first and never overrides real environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Defaults()

	explicit := path != ""
	if !explicit && cfg.Dir != "" {
		path = filepath.Join(cfg.Dir, "config.yaml")
	}
	if path != "" {
		if err := cfg.mergeFile(path, explicit); err != nil {
			return nil, err
		}
	}

	cfg.mergeEnv()
	cfg.APIURL = EnsureScheme(strings.TrimRight(cfg.APIURL, "/"))
	cfg.fillStorePath()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() {
	c.APIURL = getEnv("FNTC_API_URL", c.APIURL)
	c.RequestTimeout = getEnvDuration("FNTC_REQUEST_TIMEOUT", c.RequestTimeout)
	c.BootstrapTimeout = getEnvDuration("FNTC_BOOTSTRAP_TIMEOUT", c.BootstrapTimeout)

	c.Store.Driver = strings.ToLower(getEnv("FNTC_STORE_DRIVER", c.Store.Driver))
	c.Store.Path = getEnv("FNTC_STORE_PATH", c.Store.Path)
	c.Store.RedisURL = getEnv("FNTC_REDIS_URL", c.Store.RedisURL)

	c.Chat.OpenTimeout = getEnvDuration("FNTC_CHAT_OPEN_TIMEOUT", c.Chat.OpenTimeout)
	c.Chat.PollInterval = getEnvDuration("FNTC_CHAT_POLL_INTERVAL", c.Chat.PollInterval)
	c.Chat.TypingDebounce = getEnvDuration("FNTC_CHAT_TYPING_DEBOUNCE", c.Chat.TypingDebounce)

	c.Google.ClientID = getEnv("FNTC_GOOGLE_CLIENT_ID", c.Google.ClientID)
	c.Google.ClientSecret = getEnv("FNTC_GOOGLE_CLIENT_SECRET", c.Google.ClientSecret)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

func (c *Config) fillStorePath() {
	if c.Store.Path != "" || c.Dir == "" {
		return
	}
	switch c.Store.Driver {
	case DriverSQLite:
		c.Store.Path = filepath.Join(c.Dir, "state.db")
	case DriverFile:
		c.Store.Path = filepath.Join(c.Dir, "state.json")
	}
}

// Validate checks field values
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url cannot be empty")
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"request_timeout", c.RequestTimeout},
		{"bootstrap_timeout", c.BootstrapTimeout},
		{"chat.open_timeout", c.Chat.OpenTimeout},
		{"chat.poll_interval", c.Chat.PollInterval},
		{"chat.typing_debounce", c.Chat.TypingDebounce},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}

	switch c.Store.Driver {
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for driver %s", c.Store.Driver)
		}
	case DriverRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for driver redis")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare integers are seconds
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// EnsureScheme adds https:// prefix if the URL has no scheme
func EnsureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}
