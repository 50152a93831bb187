package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "SUBMISSION_TAGGER_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	inferenceURLEnv  = "INFERENCE_URL"
	inferenceKeyEnv  = "INFERENCE_API_KEY"
	inferenceModel   = "INFERENCE_MODEL"
	telegramToken    = "TELEGRAM_BOT_TOKEN"
	telegramChatID   = "TELEGRAM_CHAT_ID"
	defaultFeedPath  = "submissions.jsonl"
	defaultStorePath = "submissions.db"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Inference     InferenceConfig    `yaml:"inference"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	ETL           ETLConfig          `yaml:"etl"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the structured store. A postgres:// DSN selects
// the Postgres driver; anything else is treated as a SQLite file path.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// InferenceConfig defines how to contact the language-model service.
type InferenceConfig struct {
	Provider       string `yaml:"provider"` // "ollama" or "openai"
	URL            string `yaml:"url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"apiKey"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Timeout resolves the per-call inference timeout.
func (c InferenceConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PipelineConfig bounds the agent workflow retry loops.
type PipelineConfig struct {
	// MaxRetries is the number of full Planner->Finalizer cycles allowed
	// after the first one.
	MaxRetries int `yaml:"maxRetries"`
	// StageAttempts is the number of inference calls allowed per stage,
	// including the first.
	StageAttempts int `yaml:"stageAttempts"`
}

// ETLConfig describes the extract feed and batch concurrency.
type ETLConfig struct {
	FeedPath string `yaml:"feedPath"`
	Workers  int    `yaml:"workers"`
}

// SchedulerConfig defines how often watch mode re-runs the batch.
type SchedulerConfig struct {
	Interval string `yaml:"interval"`
}

// IntervalDuration parses the configured interval, defaulting to one hour.
func (s SchedulerConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send run reports.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(inferenceURLEnv); v != "" {
		c.Inference.URL = v
	}
	if v := os.Getenv(inferenceKeyEnv); v != "" {
		c.Inference.APIKey = v
	}
	if v := os.Getenv(inferenceModel); v != "" {
		c.Inference.Model = v
	}
	if v := os.Getenv(telegramToken); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatID); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Inference.Provider != "" {
		base.Inference.Provider = override.Inference.Provider
	}
	if override.Inference.URL != "" {
		base.Inference.URL = override.Inference.URL
	}
	if override.Inference.Model != "" {
		base.Inference.Model = override.Inference.Model
	}
	if override.Inference.APIKey != "" {
		base.Inference.APIKey = override.Inference.APIKey
	}
	if override.Inference.TimeoutSeconds > 0 {
		base.Inference.TimeoutSeconds = override.Inference.TimeoutSeconds
	}

	if override.Pipeline.MaxRetries > 0 {
		base.Pipeline.MaxRetries = override.Pipeline.MaxRetries
	}
	if override.Pipeline.StageAttempts > 0 {
		base.Pipeline.StageAttempts = override.Pipeline.StageAttempts
	}

	if override.ETL.FeedPath != "" {
		base.ETL.FeedPath = override.ETL.FeedPath
	}
	if override.ETL.Workers > 0 {
		base.ETL.Workers = override.ETL.Workers
	}

	if override.Scheduler.Interval != "" {
		base.Scheduler.Interval = override.Scheduler.Interval
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{DSN: defaultStorePath},
		Inference: InferenceConfig{
			Provider:       "ollama",
			URL:            "http://localhost:11434",
			Model:          "smollm:1.7b",
			TimeoutSeconds: 180,
		},
		Pipeline:  PipelineConfig{MaxRetries: 2, StageAttempts: 3},
		ETL:       ETLConfig{FeedPath: defaultFeedPath, Workers: 1},
		Scheduler: SchedulerConfig{Interval: "1h"},
	}
}
