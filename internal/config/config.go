package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Address       string `yaml:"address"`
		HealthAddress string `yaml:"health_address"`
	} `yaml:"server"`

	Source struct {
		// Backend selects the transcription collaborator: "gemini" or
		// "whisper_api".
		Backend   string `yaml:"backend"`
		Model     string `yaml:"model"`
		APIKeyEnv string `yaml:"api_key_env"`
		BaseURL   string `yaml:"base_url"`
	} `yaml:"source"`

	Upload struct {
		MaxBytes int64 `yaml:"max_bytes"`
	} `yaml:"upload"`

	Playback struct {
		PollIntervalMs int `yaml:"poll_interval_ms"`
		// EndPaddingMs tolerates imprecise upstream timestamps. Unset means
		// the controller default; an explicit 0 disables the pad.
		EndPaddingMs *int `yaml:"end_padding_ms"`
	} `yaml:"playback"`

	Transcribe struct {
		MaxConcurrency int `yaml:"max_concurrency"`
	} `yaml:"transcribe"`

	Health struct {
		Enabled       bool    `yaml:"enabled"`
		LoadThreshold float64 `yaml:"load_threshold"`
	} `yaml:"health"`
}

func Load(path string) (Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Source.Backend == "" {
		c.Source.Backend = "gemini"
	}
	if c.Source.Model == "" {
		c.Source.Model = "gemini-2.0-flash"
	}
	if c.Source.APIKeyEnv == "" {
		c.Source.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 20 << 20
	}
	if c.Transcribe.MaxConcurrency <= 0 {
		c.Transcribe.MaxConcurrency = 4
	}
	if c.Health.LoadThreshold <= 0 {
		c.Health.LoadThreshold = 0.8
	}
}
