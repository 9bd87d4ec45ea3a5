package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultBaseURL = "https://openrouter.ai/api/v1/"

type Config struct {
	APIKey       string
	Model        string
	WatchDir     string
	BaseURL      string
	OutputDir    string
	ModelTimeout time.Duration
	MaxRetries   int
	RenderDPI    int
	PdftoppmPath string
	JPEGQuality  int
	Port         int
	LogLevel     string
	DatabaseURL  string
	NatsURL      string
	NatsToken    string

	SlackBotToken string
	SlackChannel  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIKey:       envStr("OPENROUTER_API_KEY", ""),
		Model:        envStr("MODEL", ""),
		WatchDir:     envStr("WATCHDIR", ""),
		BaseURL:      envStr("OPENROUTER_BASE_URL", defaultBaseURL),
		OutputDir:    envStr("OUTPUT_DIR", "."),
		ModelTimeout: time.Duration(envInt("MODEL_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxRetries:   envInt("MODEL_MAX_RETRIES", 3),
		RenderDPI:    envInt("RENDER_DPI", 150),
		PdftoppmPath: envStr("PDFTOPPM_PATH", "pdftoppm"),
		JPEGQuality:  envInt("JPEG_QUALITY", 85),
		Port:         envInt("TICKETCAL_PORT", 8760),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		DatabaseURL:  envStr("DATABASE_URL", ""),
		NatsURL:      envStr("NATS_URL", ""),
		NatsToken:    envStr("NATS_TOKEN", ""),

		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_CHANNEL", ""),
	}
}

// Validate reports all missing startup values at once.
func (c Config) Validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "OPENROUTER_API_KEY")
	}
	if c.Model == "" {
		missing = append(missing, "MODEL")
	}
	if c.WatchDir == "" {
		missing = append(missing, "WATCHDIR")
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
