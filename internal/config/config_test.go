package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv(EnvAPIBase, "https://game.example.org/")
	t.Setenv(EnvWSURL, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBase != "https://game.example.org" {
		t.Fatalf("api_base = %q", cfg.APIBase)
	}
	if cfg.WSURL != "wss://game.example.org/ws" {
		t.Fatalf("ws_url = %q", cfg.WSURL)
	}
	if cfg.RaidRefresh != 20*time.Second || !cfg.ValidateSnapshots {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoad_YAMLOverrides(t *testing.T) {
	t.Setenv(EnvAPIBase, "")
	t.Setenv(EnvWSURL, "")
	path := filepath.Join(t.TempDir(), "client.yaml")
	body := `
api_base: http://localhost:9000
raid_refresh: 5s
validate_snapshots: false
log:
  level: DEBUG
  format: json
journal:
  dir: ./var/journal
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WSURL != "ws://localhost:9000/ws" || cfg.RaidRefresh != 5*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.ValidateSnapshots || cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.ContractRefresh != 45*time.Second || cfg.Journal.Dir != "./var/journal" || cfg.Journal.DBPath != "" {
		t.Fatalf("unset keys should keep defaults: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := defaults()
	base.APIBase = "http://localhost:9000"
	base.Normalize()
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"bad api base", func(c *Config) { c.APIBase = "ftp://x" }, "api_base"},
		{"bad ws url", func(c *Config) { c.WSURL = "http://x/ws" }, "ws_url"},
		{"zero refresh", func(c *Config) { c.WorldRefresh = 0 }, "world_refresh"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mut(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate = %v, want mention of %q", err, tc.want)
			}
		})
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}
}
