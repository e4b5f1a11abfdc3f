package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	// Model API (OpenAI-compatible chat completions + Whisper + vision)
	OpenAIKey    string
	OpenAIModel  string
	ModelTimeout time.Duration

	// Messaging provider (Evolution-style WhatsApp gateway)
	EvolutionAPIURL string

	// Inbound-message debounce quiet window. One turn per conversation is
	// processed after this much silence; newer fragments supersede older turns.
	DebounceWindow time.Duration
	HistoryLimit   int

	// PIX invoicing webhooks
	InvoiceWebhookURL       string
	PaymentStatusWebhookURL string
	WebhookTimeout          time.Duration

	// Google Calendar sync
	GoogleClientID        string
	GoogleClientSecret    string
	CalendarRetryAttempts int
	CalendarRetryDelay    time.Duration

	// Company-local timezone for business hours and slot math
	CompanyTimezone string

	// Meta (Instagram) webhook verification
	MetaVerifyToken string

	// HMAC secret protecting /internal routes
	InternalJWTSecret string

	// Per-IP rate limit on the public webhook routes
	WebhookRateLimit float64
	WebhookBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		OpenAIKey:    getEnv("OPENAI_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ModelTimeout: getEnvAsDuration("MODEL_TIMEOUT", 30*time.Second),

		EvolutionAPIURL: getEnv("EVO_API_URL", ""),

		DebounceWindow: getEnvAsDuration("DEBOUNCE_WINDOW", 10*time.Second),
		HistoryLimit:   getEnvAsInt("HISTORY_LIMIT", 10),

		InvoiceWebhookURL:       getEnv("WEBHOOK_URL_GERAR_FATURA", ""),
		PaymentStatusWebhookURL: getEnv("WEBHOOK_URL_CHECK_PAGAMENTO", ""),
		WebhookTimeout:          getEnvAsDuration("WEBHOOK_TIMEOUT", 15*time.Second),

		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		CalendarRetryAttempts: getEnvAsInt("CALENDAR_RETRY_ATTEMPTS", 3),
		CalendarRetryDelay:    getEnvAsDuration("CALENDAR_RETRY_DELAY", 30*time.Second),

		CompanyTimezone: getEnv("COMPANY_TIMEZONE", "America/Sao_Paulo"),

		MetaVerifyToken: getEnv("META_WEBHOOK_VERIFY_TOKEN", ""),

		InternalJWTSecret: getEnv("INTERNAL_JWT_SECRET", ""),

		WebhookRateLimit: getEnvAsFloat("WEBHOOK_RATE_LIMIT", 20),
		WebhookBurst:     getEnvAsInt("WEBHOOK_BURST", 40),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
