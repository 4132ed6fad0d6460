// Package config loads and saves panel configuration. The bridge endpoint
// comes from the config file or the environment; a .env file in the working
// directory is honored, matching how the original deployment supplied the
// bridge URL.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const DefaultFile = "motorpanel.json"

// Environment variables recognized by Load.
const (
	EnvEndpoint  = "MOTOR_BRIDGE_URL"
	EnvNamespace = "MOTOR_BRIDGE_NAMESPACE"
)

// Config holds the panel configuration.
type Config struct {
	// Endpoint is the websocket URL of the bridge gateway.
	Endpoint string `json:"endpoint"`
	// Namespace prefixes the motor service names on the bridge.
	Namespace string `json:"namespace,omitempty"`
	// MotorIDs restricts the panel to these motors; empty shows all.
	MotorIDs []int `json:"motor_ids,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Endpoint:  "ws://localhost:9090",
		Namespace: "/motor_control",
	}
}

// Load merges the config file (when present) and the environment on top of
// the defaults. Environment values win over the file.
func Load() (Config, error) {
	return LoadFrom(DefaultFile)
}

// LoadFrom loads configuration from a specific file path.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Best effort; a missing .env is not an error
	_ = godotenv.Load()

	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv(EnvNamespace); v != "" {
		cfg.Namespace = v
	}
	return cfg, nil
}

// Save saves configuration to the default config file.
func (c Config) Save() error {
	return c.SaveTo(DefaultFile)
}

// SaveTo saves configuration to a specific file.
func (c Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Exists returns true if the default config file exists.
func Exists() bool {
	_, err := os.Stat(DefaultFile)
	return err == nil
}
