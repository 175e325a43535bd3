// Package config loads the client settings from YAML. Missing keys keep their
// defaults; AETHERIA_API_BASE and AETHERIA_WS_URL override the built-in
// endpoint defaults before the file is read.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvAPIBase = "AETHERIA_API_BASE"
	EnvWSURL   = "AETHERIA_WS_URL"
)

type Config struct {
	APIBase            string        `yaml:"api_base"`
	WSURL              string        `yaml:"ws_url"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	WorldRefresh       time.Duration `yaml:"world_refresh"`
	RaidRefresh        time.Duration `yaml:"raid_refresh"`
	ContractRefresh    time.Duration `yaml:"contract_refresh"`
	PushReconnectDelay time.Duration `yaml:"push_reconnect_delay"`
	ValidateSnapshots  bool          `yaml:"validate_snapshots"`

	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// JournalConfig enables the slice journal and the local cache. Empty paths
// disable them.
type JournalConfig struct {
	Dir    string `yaml:"dir"`
	DBPath string `yaml:"db_path"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, cfg.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		APIBase:            envOr(EnvAPIBase, "http://127.0.0.1:8000"),
		WSURL:              envOr(EnvWSURL, ""),
		RequestTimeout:     10 * time.Second,
		WorldRefresh:       60 * time.Second,
		RaidRefresh:        20 * time.Second,
		ContractRefresh:    45 * time.Second,
		PushReconnectDelay: 2 * time.Second,
		ValidateSnapshots:  true,
		Log:                LogConfig{Level: "info", Format: "text"},
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Normalize trims values and derives the push URL from the API base when it
// is not set.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.APIBase = strings.TrimRight(strings.TrimSpace(c.APIBase), "/")
	c.WSURL = strings.TrimSpace(c.WSURL)
	if c.WSURL == "" && c.APIBase != "" {
		c.WSURL = DeriveWSURL(c.APIBase)
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Journal.Dir = strings.TrimSpace(c.Journal.Dir)
	c.Journal.DBPath = strings.TrimSpace(c.Journal.DBPath)
}

// DeriveWSURL maps http(s)://host/base to ws(s)://host/base/ws.
func DeriveWSURL(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func (c Config) Validate() error {
	u, err := url.Parse(c.APIBase)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_base must be an http(s) URL, got %q", c.APIBase)
	}
	w, err := url.Parse(c.WSURL)
	if err != nil || (w.Scheme != "ws" && w.Scheme != "wss") || w.Host == "" {
		return fmt.Errorf("ws_url must be a ws(s) URL, got %q", c.WSURL)
	}
	for name, d := range map[string]time.Duration{
		"request_timeout":      c.RequestTimeout,
		"world_refresh":        c.WorldRefresh,
		"raid_refresh":         c.RaidRefresh,
		"contract_refresh":     c.ContractRefresh,
		"push_reconnect_delay": c.PushReconnectDelay,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
