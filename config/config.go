package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the whole environment surface of the bot. Required credentials
// fail Load, so a misconfigured deployment dies before it connects anywhere.
type Config struct {
	Telegram TelegramConfig
	YDB      YDBConfig
	Storage  StorageConfig
	Vision   VisionConfig
	Rules    RulesConfig
}

type TelegramConfig struct {
	Token          string        `envconfig:"TELEGRAM_TOKEN" required:"true"`
	AdminLogChatID int64         `envconfig:"ADMIN_LOG_CHAT_ID"`
	PollTimeout    time.Duration `envconfig:"TELEGRAM_POLL_TIMEOUT" default:"10s"`
}

type YDBConfig struct {
	Endpoint string `envconfig:"YDB_ENDPOINT" required:"true"`
	SAKey    string `envconfig:"YDB_SA_KEY"`
}

type StorageConfig struct {
	URL    string `envconfig:"STORAGE_URL" required:"true"`
	Key    string `envconfig:"STORAGE_KEY" required:"true"`
	Bucket string `envconfig:"STORAGE_BUCKET" default:"real-estate-photos"`
}

type VisionConfig struct {
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" required:"true"`
	GroqAPIKey   string `envconfig:"GROQ_API_KEY" required:"true"`
}

// RulesConfig carries thresholds that differ between field deployments.
type RulesConfig struct {
	QRMinLength    int           `envconfig:"QR_MIN_LENGTH" default:"8"`
	PhoneMinDigits int           `envconfig:"PHONE_MIN_DIGITS" default:"9"`
	HTTPTimeout    time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
