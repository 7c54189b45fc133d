package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	Provider        string `yaml:"provider"` // openai | gemini | compat | noop
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	CompatKey       string `yaml:"compat_key"`
	CompatBaseURL   string `yaml:"compat_base_url"`
	Model           string `yaml:"model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent provider calls
}

type SearchConfig struct {
	SerperKey string `yaml:"serper_key"`
	BaseURL   string `yaml:"base_url"`
}

type GenerationConfig struct {
	QualityThreshold  int           `yaml:"quality_threshold"`
	MinRetryThreshold int           `yaml:"min_retry_threshold"`
	MaxAttempts       int           `yaml:"max_attempts"`
	ImproveBudget     time.Duration `yaml:"improve_budget"`
	OverallBudget     time.Duration `yaml:"overall_budget"`
	MaxTokens         int           `yaml:"max_tokens"`
}

type BatchConfig struct {
	MaxItems     int           `yaml:"max_items"`
	Workers      int           `yaml:"workers"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type AugmentConfig struct {
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	TopLinks     int           `yaml:"top_links"`
	MonthlyQuota int           `yaml:"monthly_quota"`
}

type RateLimitConfig struct {
	SubmissionsPerMinute int `yaml:"submissions_per_minute"`
}

type ReaperConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	AI         AIConfig         `yaml:"ai"`
	Search     SearchConfig     `yaml:"search"`
	Generation GenerationConfig `yaml:"generation"`
	Batch      BatchConfig      `yaml:"batch"`
	Augment    AugmentConfig    `yaml:"augment"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Reaper     ReaperConfig     `yaml:"reaper"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o-mini"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 8
	}
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = "https://google.serper.dev"
	}
	if cfg.Generation.QualityThreshold <= 0 {
		cfg.Generation.QualityThreshold = 80
	}
	if cfg.Generation.MinRetryThreshold <= 0 {
		cfg.Generation.MinRetryThreshold = 75
	}
	if cfg.Generation.MaxAttempts <= 0 {
		cfg.Generation.MaxAttempts = 2
	}
	if cfg.Generation.ImproveBudget <= 0 {
		cfg.Generation.ImproveBudget = 20 * time.Second
	}
	if cfg.Generation.OverallBudget <= 0 {
		cfg.Generation.OverallBudget = 30 * time.Second
	}
	if cfg.Generation.MaxTokens <= 0 {
		cfg.Generation.MaxTokens = 4096
	}
	if cfg.Batch.MaxItems <= 0 {
		cfg.Batch.MaxItems = 50
	}
	if cfg.Batch.Workers <= 0 {
		cfg.Batch.Workers = 3
	}
	if cfg.Batch.PollInterval <= 0 {
		cfg.Batch.PollInterval = 500 * time.Millisecond
	}
	if cfg.Augment.CacheTTL <= 0 {
		cfg.Augment.CacheTTL = 7 * 24 * time.Hour
	}
	if cfg.Augment.TopLinks <= 0 {
		cfg.Augment.TopLinks = 5
	}
	if cfg.Augment.MonthlyQuota <= 0 {
		cfg.Augment.MonthlyQuota = 100
	}
	if cfg.RateLimit.SubmissionsPerMinute <= 0 {
		cfg.RateLimit.SubmissionsPerMinute = 30
	}
	if cfg.Reaper.Interval <= 0 {
		cfg.Reaper.Interval = time.Minute
	}
	if cfg.Reaper.StaleAfter <= 0 {
		cfg.Reaper.StaleAfter = 5 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
