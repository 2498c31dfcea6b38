// Package config loads and persists the pairgate configuration file.
// The file is JSON5 so operators can keep comments and trailing commas.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/titanous/json5"
)

// GatewayAuth configures how gateway and HTTP callers authenticate.
type GatewayAuth struct {
	Mode     string `json:"mode"`               // "none", "token" or "password"
	Token    string `json:"token,omitempty"`    // required when Mode == "token"
	Password string `json:"password,omitempty"` // required when Mode == "password"
}

// Gateway holds the WebSocket/HTTP server settings.
type Gateway struct {
	Host           string      `json:"host"`
	Port           int         `json:"port"`
	Auth           GatewayAuth `json:"auth"`
	TrustedProxies []string    `json:"trustedProxies,omitempty"`
}

// HTTP holds the REST adapter settings.
type HTTP struct {
	PathPrefix string `json:"pathPrefix"` // e.g. "/api/pairing"
}

// Store selects the pairing request backend.
type Store struct {
	Backend string `json:"backend"`       // "file" or "postgres"
	DSN     string `json:"dsn,omitempty"` // postgres only
}

// TelegramChannel configures the telegram notifier plugin.
type TelegramChannel struct {
	BotToken       string `json:"botToken,omitempty"`
	OperatorChatID int64  `json:"operatorChatId,omitempty"`
}

// SlackChannel configures the slack notifier plugin.
type SlackChannel struct {
	BotToken        string `json:"botToken,omitempty"`
	OperatorChannel string `json:"operatorChannel,omitempty"`
}

// DiscordChannel configures the discord notifier plugin.
type DiscordChannel struct {
	BotToken          string `json:"botToken,omitempty"`
	OperatorChannelID string `json:"operatorChannelId,omitempty"`
}

// Channels holds per-plugin credentials.
type Channels struct {
	Telegram TelegramChannel `json:"telegram,omitempty"`
	Slack    SlackChannel    `json:"slack,omitempty"`
	Discord  DiscordChannel  `json:"discord,omitempty"`
}

// Config is the root configuration object.
type Config struct {
	StateDir string   `json:"stateDir,omitempty"`
	Gateway  Gateway  `json:"gateway"`
	HTTP     HTTP     `json:"http"`
	Store    Store    `json:"store"`
	Channels Channels `json:"channels"`
}

// Default returns a config with built-in defaults applied.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		StateDir: filepath.Join(home, ".pairgate"),
		Gateway: Gateway{
			Host: "127.0.0.1",
			Port: 18789,
			Auth: GatewayAuth{Mode: "none"},
		},
		HTTP:  HTTP{PathPrefix: "/api/pairing"},
		Store: Store{Backend: "file"},
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.applyEnvOverrides()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config to path as plain JSON (a strict subset of JSON5).
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// StorePath returns the pairing JSON file location for the file backend.
func (c *Config) StorePath() string {
	return filepath.Join(c.StateDir, "data", "pairing.json")
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PAIRGATE_GATEWAY_TOKEN"); v != "" {
		c.Gateway.Auth.Mode = "token"
		c.Gateway.Auth.Token = v
	}
	if v := os.Getenv("PAIRGATE_STORE_DSN"); v != "" {
		c.Store.Backend = "postgres"
		c.Store.DSN = v
	}
}
