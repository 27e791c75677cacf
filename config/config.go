package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when the completion service credential is not set.
var ErrMissingAPIKey = errors.New("MISTRAL_API_KEY is not set")

type ServerConfig struct {
	Addr        string        `yaml:"addr" validate:"required"`
	MaxUploadMB int           `yaml:"max_upload_mb" validate:"gte=1"`
	SessionTTL  time.Duration `yaml:"session_ttl" validate:"gte=0"`
}

type RetrievalConfig struct {
	ChunkSize int `yaml:"chunk_size" validate:"gte=5"`
	TopK      int `yaml:"top_k" validate:"gte=1"`
}

type CompletionConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	Model          string        `yaml:"model" validate:"required"`
	Temperature    float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int           `yaml:"max_tokens" validate:"gte=1"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	MaxRetries     int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	RetryBackoff   time.Duration `yaml:"retry_backoff" validate:"gte=0"`
	CountTokens    bool          `yaml:"count_tokens"`
	APIKey         string        `yaml:"-"`
}

type LogConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Completion CompletionConfig `yaml:"completion"`
	Log        LogConfig        `yaml:"log"`
}

// Default returns the configuration used when no file or environment overrides are given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":3000",
			MaxUploadMB: 20,
			SessionTTL:  time.Hour,
		},
		Retrieval: RetrievalConfig{
			ChunkSize: 1000,
			TopK:      3,
		},
		Completion: CompletionConfig{
			BaseURL:        "https://api.mistral.ai/v1",
			Model:          "mistral-small",
			Temperature:    0.1,
			MaxTokens:      500,
			RequestTimeout: 60 * time.Second,
			MaxRetries:     2,
			RetryBackoff:   500 * time.Millisecond,
			CountTokens:    true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (skipped when it
// does not exist), then environment variables. A .env file is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the config file location from DOCQA_CONFIG, or config.yaml.
func Path() string {
	if p := os.Getenv("DOCQA_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Completion.BaseURL, "MISTRAL_API_URL")
	setString(&cfg.Completion.Model, "MISTRAL_MODEL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	cfg.Completion.APIKey = os.Getenv("MISTRAL_API_KEY")

	if err := setInt(&cfg.Retrieval.ChunkSize, "CHUNK_SIZE"); err != nil {
		return err
	}
	if err := setInt(&cfg.Retrieval.TopK, "TOP_K"); err != nil {
		return err
	}
	if err := setInt(&cfg.Completion.MaxRetries, "MISTRAL_MAX_RETRIES"); err != nil {
		return err
	}
	if v := os.Getenv("MISTRAL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MISTRAL_TIMEOUT: %w", err)
		}
		cfg.Completion.RequestTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// Validate checks field constraints and that the API key is present.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Completion.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
