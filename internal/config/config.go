package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all server configuration, loaded from CONVIVIO_* environment
// variables. Every field has a default or degrades gracefully when empty.
type Config struct {
	Port      string `env:"CONVIVIO_PORT" envDefault:"8080"`
	DBPath    string `env:"CONVIVIO_DB_PATH" envDefault:"convivio.db"`
	LogLevel  string `env:"CONVIVIO_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CONVIVIO_LOG_FORMAT" envDefault:"text"`
	BaseURL   string `env:"CONVIVIO_BASE_URL" envDefault:"http://localhost:8080"`

	// Postmark invite emails. Invites still work without a token, the code
	// is just not delivered by email.
	PostmarkToken string `env:"CONVIVIO_POSTMARK_TOKEN"`
	EmailFrom     string `env:"CONVIVIO_EMAIL_FROM" envDefault:"noreply@convivio.app"`

	// S3-compatible document storage.
	S3Endpoint  string `env:"CONVIVIO_S3_ENDPOINT"`
	S3Bucket    string `env:"CONVIVIO_S3_BUCKET"`
	S3Region    string `env:"CONVIVIO_S3_REGION" envDefault:"auto"`
	S3AccessKey string `env:"CONVIVIO_S3_ACCESS_KEY"`
	S3SecretKey string `env:"CONVIVIO_S3_SECRET_KEY"`

	// Web push. Leave both empty to disable notifications.
	VAPIDPublicKey  string `env:"CONVIVIO_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"CONVIVIO_VAPID_PRIVATE_KEY"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
