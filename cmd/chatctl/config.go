package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"alumnichat/pkg/chatsync"
	"alumnichat/pkg/client"
)

// Config is the chatctl configuration stored in ~/.alumnichat/config.toml.
type Config struct {
	Server ServerSection `toml:"server" json:"server" yaml:"server"`
	User   UserSection   `toml:"user" json:"user" yaml:"user"`
	Sync   SyncSection   `toml:"sync" json:"sync" yaml:"sync"`
}

type ServerSection struct {
	BaseURL string `toml:"base_url" json:"base_url" yaml:"base_url"`
	APIKey  string `toml:"api_key" json:"api_key" yaml:"api_key"`
	Timeout string `toml:"timeout,omitempty" json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

type UserSection struct {
	Name       string `toml:"name" json:"name" yaml:"name"`
	Signature  string `toml:"signature,omitempty" json:"signature,omitempty" yaml:"signature,omitempty"`
	SigningKey string `toml:"signing_key,omitempty" json:"signing_key,omitempty" yaml:"signing_key,omitempty"`
}

type SyncSection struct {
	MessageInterval string  `toml:"message_interval,omitempty" json:"message_interval,omitempty" yaml:"message_interval,omitempty"`
	PeerInterval    string  `toml:"peer_interval,omitempty" json:"peer_interval,omitempty" yaml:"peer_interval,omitempty"`
	BottomThreshold float64 `toml:"bottom_threshold,omitempty" json:"bottom_threshold,omitempty" yaml:"bottom_threshold,omitempty"`
}

var secretFields = map[string]bool{
	"server.api_key":   true,
	"user.signature":   true,
	"user.signing_key": true,
}

// configPath returns the config file location. ALUMNICHAT_CONFIG_DIR
// overrides ~/.alumnichat.
func configPath() (string, error) {
	dir := os.Getenv("ALUMNICHAT_CONFIG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".alumnichat")
	}
	return filepath.Join(dir, "config.toml"), nil
}

// loadConfig reads and parses the config file.
// If the file does not exist, it returns a zero-value Config.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	return &cfg, nil
}

// saveConfig writes the config struct back to disk as TOML.
func saveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config: %w", err)
	}
	return nil
}

// setConfigValue sets a config field using dot notation (e.g. "server.api_key").
func setConfigValue(cfg *Config, key, value string) error {
	section, field, ok := strings.Cut(key, ".")
	if !ok {
		return fmt.Errorf("key must use dot notation: section.field (e.g. server.base_url)")
	}
	switch section {
	case "server":
		switch field {
		case "base_url":
			cfg.Server.BaseURL = value
		case "api_key":
			cfg.Server.APIKey = value
		case "timeout":
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid timeout: %w", err)
			}
			cfg.Server.Timeout = value
		default:
			return fmt.Errorf("unknown field %q in section [server]", field)
		}
	case "user":
		switch field {
		case "name":
			cfg.User.Name = value
		case "signature":
			cfg.User.Signature = value
		case "signing_key":
			cfg.User.SigningKey = value
		default:
			return fmt.Errorf("unknown field %q in section [user]", field)
		}
	case "sync":
		switch field {
		case "message_interval", "peer_interval":
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid %s: %w", field, err)
			}
			if field == "message_interval" {
				cfg.Sync.MessageInterval = value
			} else {
				cfg.Sync.PeerInterval = value
			}
		case "bottom_threshold":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid bottom_threshold %q", value)
			}
			cfg.Sync.BottomThreshold = f
		default:
			return fmt.Errorf("unknown field %q in section [sync]", field)
		}
	default:
		return fmt.Errorf("unknown config section %q (valid: server, user, sync)", section)
	}
	return nil
}

// masked returns a copy safe to print.
func (c Config) masked() Config {
	c.Server.APIKey = maskSecret(c.Server.APIKey)
	c.User.Signature = maskSecret(c.User.Signature)
	c.User.SigningKey = maskSecret(c.User.SigningKey)
	return c
}

func maskSecret(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 8:
		return "***"
	default:
		return v[:4] + "***" + v[len(v)-4:]
	}
}

func (c *Config) clientConfig() (client.Config, error) {
	if c.Server.BaseURL == "" {
		return client.Config{}, fmt.Errorf("server.base_url is not set (chatctl config set server.base_url http://localhost:8080)")
	}
	var timeout time.Duration
	if c.Server.Timeout != "" {
		d, err := time.ParseDuration(c.Server.Timeout)
		if err != nil {
			return client.Config{}, fmt.Errorf("invalid server.timeout: %w", err)
		}
		timeout = d
	}
	return client.Config{
		BaseURL:    c.Server.BaseURL,
		APIKey:     c.Server.APIKey,
		User:       c.User.Name,
		Signature:  c.User.Signature,
		SigningKey: c.User.SigningKey,
		Timeout:    timeout,
	}, nil
}

func (c *Config) syncOptions() (chatsync.Options, error) {
	var opts chatsync.Options
	if v := c.Sync.MessageInterval; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return opts, fmt.Errorf("invalid sync.message_interval: %w", err)
		}
		opts.MessageInterval = d
	}
	if v := c.Sync.PeerInterval; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return opts, fmt.Errorf("invalid sync.peer_interval: %w", err)
		}
		opts.PeerInterval = d
	}
	opts.BottomThreshold = c.Sync.BottomThreshold
	return opts, nil
}
