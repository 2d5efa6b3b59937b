package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the runtime configuration of ticketbook.
type Config struct {
	APIURL         string        `koanf:"api_url"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	HeavyTimeout   time.Duration `koanf:"heavy_timeout"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
	TokenStore     string        `koanf:"token_store"`
	TokenPath      string        `koanf:"token_path"`
	LogLevel       string        `koanf:"log_level"`
	LogFormat      string        `koanf:"log_format"`
	ProbeInterval  time.Duration `koanf:"probe_interval"`
	MaxRetries     int           `koanf:"max_retries"`
	RetryDelay     time.Duration `koanf:"retry_delay"`
}

const (
	defaultConfigPath = "~/.config/ticketbook/config.toml"
	defaultTokenFile  = "~/.config/ticketbook/tokens.toml"
	defaultBadgerDir  = "~/.local/share/ticketbook/tokens"
	envPrefix         = "TICKETBOOK_"
)

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		APIURL:         "http://localhost:8080",
		RequestTimeout: 20 * time.Second,
		HeavyTimeout:   90 * time.Second,
		CacheTTL:       5 * time.Minute,
		TokenStore:     "file",
		LogLevel:       "info",
		LogFormat:      "console",
		ProbeInterval:  30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

// Load builds the configuration from defaults, then the TOML file at path
// (the default path when empty; skipped when missing), then TICKETBOOK_*
// environment variables.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if _, err := os.Stat(resolved); err == nil {
		if err := k.Load(file.Provider(resolved), tomlParser{}); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps TICKETBOOK_API_URL to api_url.
func envKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, envPrefix))
}

func (c *Config) normalize() error {
	def := Defaults()

	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		c.APIURL = def.APIURL
	}
	c.TokenStore = strings.ToLower(strings.TrimSpace(c.TokenStore))
	switch c.TokenStore {
	case "":
		c.TokenStore = def.TokenStore
	case "file", "badger", "memory":
	default:
		return fmt.Errorf("token_store %q: want file, badger or memory", c.TokenStore)
	}
	c.TokenPath = strings.TrimSpace(c.TokenPath)
	if c.TokenPath == "" {
		switch c.TokenStore {
		case "file":
			c.TokenPath = defaultTokenFile
		case "badger":
			c.TokenPath = defaultBadgerDir
		}
	}
	if c.TokenPath != "" {
		c.TokenPath = mustExpand(c.TokenPath)
	}
	c.LogLevel = strings.TrimSpace(c.LogLevel)
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	c.LogFormat = strings.TrimSpace(c.LogFormat)
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}

	positive(&c.RequestTimeout, def.RequestTimeout)
	positive(&c.HeavyTimeout, def.HeavyTimeout)
	positive(&c.CacheTTL, def.CacheTTL)
	positive(&c.ProbeInterval, def.ProbeInterval)
	positive(&c.RetryDelay, def.RetryDelay)
	if c.MaxRetries < 0 {
		c.MaxRetries = def.MaxRetries
	}
	return nil
}

func positive(d *time.Duration, fallback time.Duration) {
	if *d <= 0 {
		*d = fallback
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
