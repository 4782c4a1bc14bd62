// Package config loads server settings from the data dir's settings.json with
// environment overrides, and provisions the JWT signing secret.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "TASKHUB_"

type Config struct {
	DataDir string `koanf:"-"`

	DBPath                  string   `koanf:"db_path"`
	ListenHost              string   `koanf:"listen_host" validate:"required"`
	ListenPort              int      `koanf:"listen_port" validate:"min=1,max=65535"`
	CorsOrigins             []string `koanf:"cors_origins"`
	LogLevel                string   `koanf:"log_level" validate:"oneof=debug info warn error"`
	HandshakeTimeoutSeconds int      `koanf:"handshake_timeout_seconds" validate:"min=1"`
}

// Load resolves the data dir, reads settings.json if present and applies
// TASKHUB_* environment overrides on top.
// Priority: environment > settings file > defaults.
func Load() (*Config, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}

	return loadFrom(dataDir, filepath.Join(dataDir, "settings.json"))
}

func loadFrom(dataDir string, settingsFile string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"listen_host":               "127.0.0.1",
		"listen_port":               4000,
		"log_level":                 "info",
		"handshake_timeout_seconds": 30,
	}
	for key, value := range defaults {
		_ = k.Set(key, value)
	}

	if _, err := os.Stat(settingsFile); err == nil {
		if err := k.Load(file.Provider(settingsFile), json.Parser()); err != nil {
			return nil, fmt.Errorf("load settings file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.DataDir = dataDir
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(dataDir, "taskhub.db")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func resolveDataDir() (string, error) {
	if custom := os.Getenv("TASKHUB_HOME"); custom != "" {
		return custom, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if home == "" {
		return "", errors.New("cannot resolve user home dir")
	}

	return filepath.Join(home, ".taskhub"), nil
}
