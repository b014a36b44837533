// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the configuration file for Load.
const EnvironmentVariable = "TALKANOVA_CONFIG"

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the complete configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Relay    RelayConfig    `yaml:"relay"`
	Peer     PeerConfig     `yaml:"peer"`
	Identity IdentityConfig `yaml:"identity"`
	Log      LogConfig      `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds per-environment replacements. Only non-empty fields
// replace base values.
type Overrides struct {
	Relay *RelayConfig `yaml:"relay,omitempty"`
	Peer  *PeerConfig  `yaml:"peer,omitempty"`
	Log   *LogConfig   `yaml:"log,omitempty"`
}

// RelayConfig configures the relay server, and tells clients where to
// find it.
type RelayConfig struct {
	// ListenAddress is the relay's bind address.
	ListenAddress string `yaml:"listen_address"`

	// BaseURL is the API root clients talk to, ending in /api/v1.
	BaseURL string `yaml:"base_url"`

	// SessionTTL bounds a session's life from creation.
	SessionTTL string `yaml:"session_ttl"`

	// Store selects session storage: "memory" or "redis".
	Store string `yaml:"store"`

	Redis RedisConfig `yaml:"redis"`

	// MetricsPath serves Prometheus metrics. Empty disables it.
	MetricsPath string `yaml:"metrics_path"`
}

// RedisConfig configures the redis session store.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PeerConfig configures the client side of peer sessions.
type PeerConfig struct {
	// PollInterval is how often the coordinator re-reads the session.
	PollInterval string `yaml:"poll_interval"`

	// ICEServers lists STUN/TURN URLs.
	ICEServers []string `yaml:"ice_servers"`

	// IncludeLoopback gathers loopback candidates, for same-host runs.
	IncludeLoopback bool `yaml:"include_loopback"`
}

// IdentityConfig names the local user and key store.
type IdentityConfig struct {
	UserID   string `yaml:"user_id"`
	UserName string `yaml:"user_name"`
	KeyDir   string `yaml:"key_dir"`
}

// LogConfig configures slog output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns the configuration that a loaded file is merged over.
func Default() *Config {
	return &Config{
		Environment: Development,
		Relay: RelayConfig{
			ListenAddress: ":8000",
			BaseURL:       "http://127.0.0.1:8000/api/v1",
			SessionTTL:    "30m",
			Store:         "memory",
			Redis:         RedisConfig{Address: "127.0.0.1:6379"},
			MetricsPath:   "/metrics",
		},
		Peer: PeerConfig{
			PollInterval: "2s",
			ICEServers: []string{
				"stun:stun.l.google.com:19302",
				"stun:stun1.l.google.com:19302",
			},
		},
		Identity: IdentityConfig{
			KeyDir: "${TALKANOVA_DATA:-${HOME}/.local/share/talkanova}",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the file named by TALKANOVA_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your talkanova.yaml, or pass --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// Resolve loads flagPath if set, else the file named by
// TALKANOVA_CONFIG, else the defaults.
func Resolve(flagPath string) (*Config, error) {
	if flagPath != "" {
		return LoadFile(flagPath)
	}
	if os.Getenv(EnvironmentVariable) != "" {
		return Load()
	}
	cfg := Default()
	cfg.expandVariables()
	return cfg, nil
}

// LoadFile reads one configuration file over Default, applies the
// matching environment section, and expands path variables.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	overrides := c.Development
	if c.Environment == Production {
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if relay := overrides.Relay; relay != nil {
		replace(&c.Relay.ListenAddress, relay.ListenAddress)
		replace(&c.Relay.BaseURL, relay.BaseURL)
		replace(&c.Relay.SessionTTL, relay.SessionTTL)
		replace(&c.Relay.Store, relay.Store)
		replace(&c.Relay.Redis.Address, relay.Redis.Address)
		replace(&c.Relay.Redis.Password, relay.Redis.Password)
		replace(&c.Relay.MetricsPath, relay.MetricsPath)
		if relay.Redis.DB != 0 {
			c.Relay.Redis.DB = relay.Redis.DB
		}
	}
	if peer := overrides.Peer; peer != nil {
		replace(&c.Peer.PollInterval, peer.PollInterval)
		if len(peer.ICEServers) > 0 {
			c.Peer.ICEServers = peer.ICEServers
		}
		// Booleans cannot be "unset" in YAML, so the override always wins.
		c.Peer.IncludeLoopback = peer.IncludeLoopback
	}
	if log := overrides.Log; log != nil {
		replace(&c.Log.Level, log.Level)
	}
}

func replace(target *string, value string) {
	if value != "" {
		*target = value
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-((?:[^{}]|\$\{[^}]*\})*))?\}`)

func (c *Config) expandVariables() {
	c.Identity.KeyDir = expandVars(c.Identity.KeyDir)
}

// expandVars expands ${VAR} and ${VAR:-default}. A default may itself
// contain one level of ${VAR}.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if strings.Contains(parts[2], "${") {
			return expandVars(parts[2])
		}
		return parts[2]
	})
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if c.Relay.BaseURL == "" {
		errs = append(errs, errors.New("relay.base_url is required"))
	}
	if _, err := c.SessionTTL(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains([]string{"memory", "redis"}, c.Relay.Store) {
		errs = append(errs, fmt.Errorf("relay.store must be memory or redis, got %q", c.Relay.Store))
	}
	if c.Relay.Store == "redis" && c.Relay.Redis.Address == "" {
		errs = append(errs, errors.New("relay.redis.address is required for the redis store"))
	}
	if _, err := c.PollInterval(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SessionTTL parses relay.session_ttl.
func (c *Config) SessionTTL() (time.Duration, error) {
	return positiveDuration("relay.session_ttl", c.Relay.SessionTTL)
}

// PollInterval parses peer.poll_interval.
func (c *Config) PollInterval() (time.Duration, error) {
	return positiveDuration("peer.poll_interval", c.Peer.PollInterval)
}

func positiveDuration(field, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return duration, nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
