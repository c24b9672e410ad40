// Package config provides loading and parsing of the shellgeist host
// configuration using Viper. Every key has a default, so a host runs
// without any config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mfulz/shellgeist/internal/configloader"
	"github.com/mfulz/shellgeist/internal/logging"
	"github.com/spf13/viper"
)

// Execution modes
const (
	ModeInteractive = "interactive"
	ModeDaemon      = "daemon"
)

// Config represents the full structure of the shellgeist configuration file.
type Config struct {
	App     string         `mapstructure:"app"`
	Header  string         `mapstructure:"header"`
	Mode    string         `mapstructure:"mode"`    // "interactive" or "daemon"
	Channel string         `mapstructure:"channel"` // socket name, path or tcp://host:port
	Prompt  string         `mapstructure:"prompt"`  // empty means "<app>> "
	History HistoryConfig  `mapstructure:"history"`
	Daemon  DaemonConfig   `mapstructure:"daemon"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Logger  logging.Config `mapstructure:"log"`
}

// HistoryConfig bounds and persists command history.
type HistoryConfig struct {
	Limit int    `mapstructure:"limit"` // per-session cap, 0 disables
	File  string `mapstructure:"file"`  // bbolt database, empty disables persistence
}

// DaemonConfig tunes the daemon front-end.
type DaemonConfig struct {
	GracePeriod time.Duration `mapstructure:"grace_period"` // 0 waits for running commands
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"` // e.g. "127.0.0.1:9464", empty disables
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app", "shellgeist")
	v.SetDefault("mode", ModeInteractive)
	v.SetDefault("channel", "fshell_ctrl")
	v.SetDefault("history.limit", 100)
	v.SetDefault("daemon.grace_period", 5*time.Second)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.to_stderr", true)
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
}

// Load reads the config at path. An empty path is resolved through
// configloader; when no file exists the defaults are returned. Keys can be
// overridden by SHELLGEIST_* environment variables, e.g.
// SHELLGEIST_DAEMON_GRACE_PERIOD=1s.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SHELLGEIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		resolved, err := configloader.ResolveConfigPath("shellgeist", "shellgeist.yaml")
		if err != nil && !errors.Is(err, configloader.ErrNoConfig) {
			return nil, err
		}
		path = resolved
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeInteractive, ModeDaemon:
	default:
		return fmt.Errorf("invalid mode %q: want %q or %q", c.Mode, ModeInteractive, ModeDaemon)
	}
	if c.App == "" {
		return fmt.Errorf("app must not be empty")
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history.limit must not be negative")
	}
	return nil
}

// Init loads the config, registers it and its logging section with
// configloader and reinitializes the global logger.
func Init(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	configloader.StoreConfig(&cfg.Logger)
	if err := logging.Init(); err != nil {
		return nil, fmt.Errorf("[config] failed to init logger: %w", err)
	}
	configloader.StoreConfig(cfg)
	return cfg, nil
}
