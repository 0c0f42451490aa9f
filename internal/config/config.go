package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Assistant AssistantConfig `yaml:"assistant"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
	Tracing   TracingConfig   `yaml:"tracing"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// AssistantConfig is the bootstrap LLM, used when no llm_configs row is active.
type AssistantConfig struct {
	Provider  string `yaml:"provider"` // anthropic, openai, azure, ollama, gemini
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Configured reports whether the bootstrap assistant can be called.
func (a AssistantConfig) Configured() bool {
	if a.Provider == "ollama" {
		return a.BaseURL != "" && a.Model != ""
	}
	return a.APIKey != "" && a.Model != ""
}

// RedisConfig backs the async task queue and the digest lock. Both fall back
// to in-process implementations when disabled.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // stdout, otlp
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// RateLimitConfig is per client IP. Zero rps disables the limiter.
type RateLimitConfig struct {
	SubmitRPS      float64 `yaml:"submit_rps"`
	SubmitBurst    int     `yaml:"submit_burst"`
	AssistantRPS   float64 `yaml:"assistant_rps"`
	AssistantBurst int     `yaml:"assistant_burst"`
}

// Load reads configPath (default config.yaml), falling back to defaults when the
// file is absent, then applies environment overrides.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "basewatch.db",
		},
		Assistant: AssistantConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-5",
			MaxTokens: 2048,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{Level: "info"},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			ServiceName: "basewatch",
			SampleRatio: 1,
		},
		RateLimit: RateLimitConfig{
			SubmitRPS:      5,
			SubmitBurst:    10,
			AssistantRPS:   0.5,
			AssistantBurst: 3,
		},
	}
}

func (c *Config) overrideFromEnv() error {
	setString(&c.Server.Host, "SERVER_HOST")
	setString(&c.Server.Port, "SERVER_PORT")
	setString(&c.Server.Mode, "SERVER_MODE")
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "DB_DSN")
	setString(&c.Assistant.APIKey, "ANTHROPIC_API_KEY")
	setString(&c.Assistant.Provider, "ASSISTANT_PROVIDER")
	setString(&c.Assistant.Model, "ASSISTANT_MODEL")
	setString(&c.Assistant.BaseURL, "ASSISTANT_BASE_URL")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("OTEL_ENABLED: %w", err)
		}
		c.Tracing.Enabled = enabled
		if enabled && c.Tracing.Endpoint != "" {
			c.Tracing.Exporter = "otlp"
		}
	}

	// Format: redis://:password@host:port/db
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		c.Redis.Enabled = true
		c.Redis.Addr = opts.Addr
		c.Redis.Password = opts.Password
		c.Redis.DB = opts.DB
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}
