package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Panel    PanelConfig    `json:"panel"`
	Monitor  MonitorConfig  `json:"monitor"`
	Digest   *DigestConfig  `json:"digest,omitempty"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`

	// AdminUserIDs receive new-account alerts and incident reports,
	// and are the only users allowed to start a broadcast.
	AdminUserIDs []int64 `json:"admin_user_ids"`
}

// PanelConfig points at the 3x-ui panel database. The bot only ever reads it.
type PanelConfig struct {
	DBPath string `json:"db_path"`

	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// MonitorConfig controls the change-detection poll loop.
//
// Enabled is a pointer so we can distinguish "omitted" (default true)
// from an explicit false.
type MonitorConfig struct {
	Enabled *bool `json:"enabled,omitempty"`

	// Interval between clean passes. Default "30s".
	Interval string `json:"interval,omitempty"`

	// ErrBackoff is the sleep after a failed pass. Default "1m".
	ErrBackoff string `json:"err_backoff,omitempty"`
}

// DigestConfig controls the optional daily traffic digest.
// If the whole section is omitted, the digest is disabled.
type DigestConfig struct {
	Enabled bool `json:"enabled"`

	// Schedule is a standard 5-field cron spec. Default "0 9 * * *".
	Schedule string `json:"schedule,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// Validate checks everything the process refuses to start without, plus the
// fields a hot reload must not be allowed to break.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required")
	}
	if c.Panel.DBPath == "" {
		return errors.New("panel.db_path is required")
	}
	for _, id := range c.Telegram.AdminUserIDs {
		if id <= 0 {
			return fmt.Errorf("telegram.admin_user_ids: invalid id %d", id)
		}
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("panel.busy_timeout", c.Panel.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("monitor.interval", c.Monitor.Interval); err != nil {
		return err
	}
	if _, err := ParseDurationField("monitor.err_backoff", c.Monitor.ErrBackoff); err != nil {
		return err
	}
	if c.Digest != nil && c.Digest.Schedule != "" {
		if _, err := cron.ParseStandard(c.Digest.Schedule); err != nil {
			return fmt.Errorf("digest.schedule: invalid cron spec %q: %w", c.Digest.Schedule, err)
		}
	}
	return nil
}

// MonitorEnabled resolves the tri-state monitor.enabled flag.
func (c *Config) MonitorEnabled() bool {
	if c.Monitor.Enabled == nil {
		return true
	}
	return *c.Monitor.Enabled
}
