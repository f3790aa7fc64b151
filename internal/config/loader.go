package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the config file.
const (
	EnvBackendURL = "ASSERTIFY_BACKEND_URL"
	EnvDataDir    = "ASSERTIFY_DATA_DIR"
	EnvLogLevel   = "ASSERTIFY_LOG_LEVEL"
	EnvTheme      = "ASSERTIFY_THEME"
)

// Path returns the default config file location.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "assertify", "config.yaml")
}

// Load loads configuration from ~/.config/assertify/config.yaml, then a .env
// file in the working directory, then the environment.
func Load() Config {
	return LoadFile(Path())
}

// LoadFile is Load with an explicit config path. A missing or invalid file
// leaves the defaults in place.
func LoadFile(path string) Config {
	cfg := DefaultConfig()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			fileCfg := cfg
			if err := yaml.Unmarshal(data, &fileCfg); err == nil {
				cfg = fileCfg
			}
		}
	}

	// existing environment variables win over .env entries
	_ = godotenv.Load()
	applyEnv(&cfg)

	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(cfg.DataDir, "assertify.log")
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBackendURL); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvTheme); v != "" {
		cfg.Theme = v
	}
}
