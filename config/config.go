package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the static service configuration. Runtime pipeline settings
// (daily cap, enabled content types, upload toggle) live in the settings
// store instead, so the dashboard can edit them without a restart.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Providers ProvidersConfig `yaml:"providers"`
}

type ServerConfig struct {
	Address    string `yaml:"address"`
	CronSecret string `yaml:"cron_secret"`
}

type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

type ScheduleConfig struct {
	Cron string `yaml:"cron"` // empty disables the scheduler
}

type ProvidersConfig struct {
	OpenRouter  OpenRouterConfig  `yaml:"openrouter"`
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`
	ElevenLabs  ElevenLabsConfig  `yaml:"elevenlabs"`
	YouTube     YouTubeConfig     `yaml:"youtube"`
}

type OpenRouterConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type HuggingFaceConfig struct {
	APIKey string   `yaml:"api_key"`
	Models []string `yaml:"models"` // empty selects the default candidate chain
}

type ElevenLabsConfig struct {
	APIKey string `yaml:"api_key"`
}

type YouTubeConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

// Load reads the YAML config at path, expands ${ENV_VAR} references, and
// applies defaults. Secrets belong in the environment, not the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	if dir := filepath.Dir(cfg.Storage.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("ensure storage dir: %w", err)
		}
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = filepath.Join("data", "brainrot.db")
	}
}
