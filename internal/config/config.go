package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	DefaultPatientID string   `mapstructure:"DEFAULT_PATIENT_ID"`
	CORSOrigins      []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS     float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int      `mapstructure:"RATE_LIMIT_BURST"`
	UploadLimit      string   `mapstructure:"UPLOAD_LIMIT"`
	BlobDir          string   `mapstructure:"BLOB_DIR"`
	AutoAssignSlots  bool     `mapstructure:"AUTO_ASSIGN_SLOTS"`

	LLMAPIKey  string `mapstructure:"LLM_API_KEY"`
	LLMBaseURL string `mapstructure:"LLM_BASE_URL"`
	LLMModel   string `mapstructure:"LLM_MODEL"`

	ReminderInterval      time.Duration `mapstructure:"REMINDER_INTERVAL"`
	ReminderWebhookURL    string        `mapstructure:"REMINDER_WEBHOOK_URL"`
	ReminderWebhookSecret string        `mapstructure:"REMINDER_WEBHOOK_SECRET"`

	SentryDSN string `mapstructure:"SENTRY_DSN"`
}

var envKeys = []string{
	"PORT", "ENV", "LOG_LEVEL", "LOG_FILE",
	"STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MONGO_URI", "MONGO_DATABASE",
	"DEFAULT_PATIENT_ID", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"UPLOAD_LIMIT", "BLOB_DIR", "AUTO_ASSIGN_SLOTS",
	"LLM_BASE_URL", "LLM_MODEL",
	"REMINDER_INTERVAL", "REMINDER_WEBHOOK_URL", "REMINDER_WEBHOOK_SECRET",
	"SENTRY_DSN",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MONGO_DATABASE", "careplan")
	v.SetDefault("DEFAULT_PATIENT_ID", "1")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("UPLOAD_LIMIT", "20M")
	v.SetDefault("AUTO_ASSIGN_SLOTS", true)
	v.SetDefault("LLM_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("LLM_MODEL", "openai/gpt-4o-mini")
	v.SetDefault("REMINDER_INTERVAL", "30s")

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	// The chatbot key kept its historical name in existing deployments.
	_ = v.BindEnv("LLM_API_KEY", "LLM_API_KEY", "OPENAI_API_KEY_CHATBOT", "OPENAI_API_KEY")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// LLMEnabled reports whether an API key for the chat completion backend is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}

// Validate checks that the selected store has the connection settings it needs.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StorePostgres)
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_DRIVER is %q", StoreMongo)
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE must not be empty")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q, %q, or %q, got %q", StoreMemory, StorePostgres, StoreMongo, c.StoreDriver)
	}

	if c.DefaultPatientID == "" {
		return fmt.Errorf("DEFAULT_PATIENT_ID must not be empty")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive, got %s", c.ReminderInterval)
	}
	return nil
}
