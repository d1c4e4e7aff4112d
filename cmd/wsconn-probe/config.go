package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// defaultConfigPath is the default location for the probe's configuration
	// file when none is given on the command line.
	defaultConfigPath = "/etc/wsconn-probe/probe.yaml"
)

// Config holds all configuration for the probe daemon.
type Config struct {
	// URL is the ws:// or wss:// endpoint the probe connects to.
	URL string `mapstructure:"url" yaml:"url"`

	// Subprotocol is an optional single subprotocol requested during the
	// handshake. Empty means none is requested.
	Subprotocol string `mapstructure:"subprotocol" yaml:"subprotocol"`

	// PingInterval is how often the probe's session sends a keepalive Ping.
	PingInterval time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`

	// PingTimeout is how long the session waits for a Pong before treating
	// the peer as dead.
	PingTimeout time.Duration `mapstructure:"ping_timeout" yaml:"ping_timeout"`

	// MaxMessageSize bounds a single decoded message.
	MaxMessageSize int64 `mapstructure:"max_message_size" yaml:"max_message_size"`

	// LogLevel controls the logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// loadConfig reads configuration from the given file path, falling back to
// defaultConfigPath if configPath is empty. Environment variables override
// file values.
func loadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("ping_interval", 20*time.Second)
	v.SetDefault("ping_timeout", 20*time.Second)
	v.SetDefault("max_message_size", 1<<20)
	v.SetDefault("log_level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(defaultConfigPath)
	}

	v.SetEnvPrefix("WSCONN_PROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	envBindings := map[string]string{
		"url":              "WSCONN_PROBE_URL",
		"subprotocol":      "WSCONN_PROBE_SUBPROTOCOL",
		"ping_interval":    "WSCONN_PROBE_PING_INTERVAL",
		"ping_timeout":     "WSCONN_PROBE_PING_TIMEOUT",
		"max_message_size": "WSCONN_PROBE_MAX_MESSAGE_SIZE",
		"log_level":        "WSCONN_PROBE_LOG_LEVEL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			// Config file not found; rely on env vars and defaults.
		} else {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required configuration fields are present and well-formed.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(c.URL, "ws://") && !strings.HasPrefix(c.URL, "wss://") {
		return fmt.Errorf("url must use the ws:// or wss:// scheme, got %q", c.URL)
	}
	if c.PingInterval < 0 {
		return fmt.Errorf("ping_interval must not be negative")
	}
	return nil
}
