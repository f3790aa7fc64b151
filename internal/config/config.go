// Package config loads assertify's settings.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sadopc/assertify/internal/logging"
	"github.com/sadopc/assertify/internal/transport"
)

// Config holds the application configuration. Log.File defaults to
// <data_dir>/assertify.log once loading is done.
type Config struct {
	BackendURL        string                `yaml:"backend_url"`
	Timeout           time.Duration         `yaml:"timeout"`
	RequireGuestOptIn bool                  `yaml:"require_guest_opt_in"`
	Theme             string                `yaml:"theme"`
	DataDir           string                `yaml:"data_dir"`
	Proxy             transport.ProxyConfig `yaml:"proxy"`
	TLS               *transport.TLSConfig  `yaml:"tls,omitempty"`
	Auth              AuthConfig            `yaml:"auth"`
	Migration         MigrationConfig       `yaml:"migration"`
	Log               logging.Config        `yaml:"log"`
}

// AuthConfig describes the OAuth2 identity provider.
type AuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`
}

// MigrationConfig paces guest data migration. Rate is remote calls per
// second; zero means unlimited.
type MigrationConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BackendURL: "http://localhost:5000",
		Timeout:    30 * time.Second,
		Theme:      "catppuccin-mocha",
		DataDir:    defaultDataDir(),
		Auth: AuthConfig{
			Scopes: []string{"openid", "email", "offline_access"},
		},
		Migration: MigrationConfig{
			Rate:  10,
			Burst: 1,
		},
		Log: logging.Config{
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
	}
}

// LocalStorePath is the guest database location.
func (c Config) LocalStorePath() string {
	return filepath.Join(c.DataDir, "local.db")
}

// SessionPath is where the signed-in session's tokens are kept.
func (c Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "assertify")
	}
	return filepath.Join(home, ".local", "share", "assertify")
}
