package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const validYAML = `
telegram:
  token: "123:abc"
  poll_timeout: "10s"
  admin_user_ids: [100, 200]
panel:
  db_path: "/etc/x-ui/x-ui.db"
monitor:
  interval: "30s"
  err_backoff: "1m"
logging:
  level: "info"
  console: true
  file:
    enabled: false
`

func TestLoadValidYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML))

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AdminUserIDs) != 2 || cfg.Telegram.AdminUserIDs[1] != 200 {
		t.Fatalf("admin ids = %v", cfg.Telegram.AdminUserIDs)
	}
	if cfg.Panel.DBPath != "/etc/x-ui/x-ui.db" {
		t.Fatalf("db path = %q", cfg.Panel.DBPath)
	}
	if !cfg.MonitorEnabled() {
		t.Fatal("monitor must default to enabled when omitted")
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get() did not return committed config")
	}
}

func TestLoadValidJSON(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.json", `{
		"telegram": {"token": "123:abc", "admin_user_ids": [1]},
		"panel": {"db_path": "/tmp/x-ui.db"},
		"monitor": {"enabled": false},
		"logging": {"level": "debug", "console": true, "file": {"enabled": false}}
	}`))

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MonitorEnabled() {
		t.Fatal("explicit enabled:false was not honored")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML+"\nsurprise: true\n"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestValidateFatalFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Telegram.Token = "" },
			wantSub: "telegram.token",
		},
		{
			name:    "missing db path",
			mutate:  func(c *Config) { c.Panel.DBPath = "" },
			wantSub: "panel.db_path",
		},
		{
			name:    "bad admin id",
			mutate:  func(c *Config) { c.Telegram.AdminUserIDs = []int64{-5} },
			wantSub: "admin_user_ids",
		},
		{
			name:    "bad interval",
			mutate:  func(c *Config) { c.Monitor.Interval = "soon" },
			wantSub: "monitor.interval",
		},
		{
			name:    "negative backoff",
			mutate:  func(c *Config) { c.Monitor.ErrBackoff = "-1m" },
			wantSub: "monitor.err_backoff",
		},
		{
			name: "bad digest schedule",
			mutate: func(c *Config) {
				c.Digest = &DigestConfig{Enabled: true, Schedule: "every day at nine"}
			},
			wantSub: "digest.schedule",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{
				Telegram: TelegramConfig{Token: "t", AdminUserIDs: []int64{1}},
				Panel:    PanelConfig{DBPath: "/tmp/x.db"},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidateAcceptsDigestSchedule(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t"},
		Panel:    PanelConfig{DBPath: "/tmp/x.db"},
		Digest:   &DigestConfig{Enabled: true, Schedule: "0 9 * * *"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	t.Parallel()
	m := NewManager("unused")
	ch := m.Subscribe(1)

	cfg := &Config{Telegram: TelegramConfig{Token: "t"}}
	m.publish(cfg)
	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("wrong config delivered")
		}
	default:
		t.Fatal("nothing delivered")
	}

	// A full buffer drops the stale value and keeps the newest.
	first := &Config{Telegram: TelegramConfig{Token: "first"}}
	second := &Config{Telegram: TelegramConfig{Token: "second"}}
	m.publish(first)
	m.publish(second)
	if got := <-ch; got != second {
		t.Fatalf("got token %q, want the newest config", got.Telegram.Token)
	}

	m.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Fatal("channel still open after Unsubscribe")
	}
}

func TestDurationHelpers(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", "  "); err != nil || d != 0 {
		t.Fatalf("blank duration: %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "five minutes"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := ParseDurationField("x", "-3s"); err == nil {
		t.Fatal("expected negative rejection")
	}
	if d, err := ParseDurationOrDefault("x", "", 42); err != nil || d != 42 {
		t.Fatalf("default: %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "5s", 42); err != nil || d.Seconds() != 5 {
		t.Fatalf("explicit: %v, %v", d, err)
	}
}
