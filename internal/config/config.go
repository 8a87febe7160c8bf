// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Chat struct {
		APIKey    string `yaml:"api_key"`
		Model     string `yaml:"model"`
		URL       string `yaml:"url"`
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"chat"`

	Image struct {
		Provider       string `yaml:"provider"` // sync, polling, or none
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		URL            string `yaml:"url"`
		Size           string `yaml:"size"`
		Quality        string `yaml:"quality"`
		PollIntervalMS int    `yaml:"poll_interval_ms"`
		PollTimeoutMS  int    `yaml:"poll_timeout_ms"`
		Reference      struct {
			MaxBytes     int64    `yaml:"max_bytes"`
			AllowedTypes []string `yaml:"allowed_types"`
		} `yaml:"reference"`
	} `yaml:"image"`

	Anki struct {
		URL  string `yaml:"url"`
		Deck string `yaml:"deck"`
		Tag  string `yaml:"tag"`
	} `yaml:"anki"`

	HTTP struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
		Retries        int `yaml:"retries"`
		BackoffMS      int `yaml:"backoff_ms"`
	} `yaml:"http"`

	LanguageTool struct {
		URL string `yaml:"url"`
	} `yaml:"languagetool"`

	Transcript struct {
		Languages []string `yaml:"languages"`
	} `yaml:"transcript"`

	MediaDir      string `yaml:"media_dir"`
	CachePath     string `yaml:"cache_path"`
	TelemetryPath string `yaml:"telemetry_path"`
}

// Load reads the YAML config at path and applies defaults and
// environment overrides. A missing file is not an error: the result
// is defaults plus environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	switch cfg.Image.Provider {
	case "sync", "polling", "none":
	default:
		return nil, fmt.Errorf("invalid image provider %q (want sync, polling, or none)", cfg.Image.Provider)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"OPENROUTER_API_KEY", &c.Chat.APIKey},
		{"OPENROUTER_TEXT_MODEL", &c.Chat.Model},
		{"GENAPI_API_KEY", &c.Image.APIKey},
		{"GENAPI_MODEL_ID", &c.Image.Model},
		{"ANKI_CONNECT_URL", &c.Anki.URL},
		{"ANKI_DECK", &c.Anki.Deck},
		{"ANKI_TAG", &c.Anki.Tag},
		{"LANGUAGETOOL_URL", &c.LanguageTool.URL},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Image.Provider == "" {
		c.Image.Provider = "none"
	}
	if c.Image.PollIntervalMS == 0 {
		c.Image.PollIntervalMS = 1000
	}
	if c.Image.PollTimeoutMS == 0 {
		c.Image.PollTimeoutMS = 60000
	}
	if len(c.Image.Reference.AllowedTypes) == 0 {
		c.Image.Reference.AllowedTypes = []string{"image/png", "image/jpeg"}
	}
	if c.Anki.URL == "" {
		c.Anki.URL = "http://127.0.0.1:8765"
	}
	if c.Anki.Tag == "" {
		c.Anki.Tag = "wortkarte"
	}
	if c.HTTP.TimeoutSeconds == 0 {
		c.HTTP.TimeoutSeconds = 30
	}
	if c.HTTP.Retries == 0 {
		c.HTTP.Retries = 3
	}
	if c.HTTP.BackoffMS == 0 {
		c.HTTP.BackoffMS = 1000
	}
	if c.MediaDir == "" {
		c.MediaDir = "media"
	}
	if c.CachePath == "" {
		c.CachePath = "var/text_cache.sqlite"
	}
	if c.TelemetryPath == "" {
		c.TelemetryPath = "var/telemetry/events.jsonl"
	}
}
