package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var (
	ErrMissingCredential = errors.New("missing required credential")
	ErrUnknownProvider   = errors.New("unknown AI provider")
)

type Config struct {
	Server ServerConfig
	AI     AIConfig
	Upload UploadConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8000"`
	Timeout         time.Duration `env:"SERVER_TIMEOUT" envDefault:"0s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type AIConfig struct {
	Provider string `env:"AI_PROVIDER" envDefault:"gemini"`
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
}

type GeminiConfig struct {
	APIKey string `env:"GOOGLE_API_KEY"`
	Model  string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-pro"`
}

type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model   string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
}

type UploadConfig struct {
	MaxBytes  int64 `env:"UPLOAD_MAX_BYTES" envDefault:"20971520"`
	MaxPixels int64 `env:"UPLOAD_MAX_PIXELS" envDefault:"178956970"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the credential of the selected provider is present.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case ProviderGemini:
		if c.AI.Gemini.APIKey == "" {
			return fmt.Errorf("%w: GOOGLE_API_KEY is not set", ErrMissingCredential)
		}
	case ProviderOpenAI:
		if c.AI.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.AI.Provider)
	}
	return nil
}
