package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisAddr   string

	// Orchestration knobs.
	ConcurrencyCeiling int
	PollInterval       time.Duration
	PollMaxAttempts    int
	OrderStaleAfter    time.Duration
	SweepInterval      time.Duration
	CreditCost         int
	SessionTTL         time.Duration

	// Provider credentials and endpoints.
	GeminiAPIKey    string
	GeminiBaseURL   string
	GeminiModels    []string
	WanxAPIKey      string
	WanxBaseURL     string
	WanxModel       string
	TelegramToken   string
	TelegramBaseURL string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),

		ConcurrencyCeiling: getEnvInt("ORDER_CONCURRENCY_CEILING", 3),
		PollInterval:       time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		PollMaxAttempts:    getEnvInt("POLL_MAX_ATTEMPTS", 60),
		OrderStaleAfter:    time.Minute * time.Duration(getEnvInt("ORDER_STALE_AFTER_MINUTES", 30)),
		SweepInterval:      time.Second * time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 30)),
		CreditCost:         getEnvInt("ORDER_CREDIT_COST", 1),
		SessionTTL:         time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)),

		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModels:    getEnvList("GEMINI_VIDEO_MODELS", []string{"veo-3.0-generate-001", "veo-2.0-generate-001"}),
		WanxAPIKey:      os.Getenv("WANX_API_KEY"),
		WanxBaseURL:     getEnv("WANX_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		WanxModel:       getEnv("WANX_MODEL", "wanx2.1-i2v-turbo"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramBaseURL: getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
