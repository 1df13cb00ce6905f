package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	FrontendURL   string
	LogLevel      string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// LINE Messaging API (bot channel)
	LineChannelSecret      string
	LineChannelAccessToken string
	LineAPIBaseURL         string

	// LINE Login (web auth channel)
	LineLoginChannelID     string
	LineLoginChannelSecret string

	// LLM provider selection: "openai", "gemini" or "auto" (openai with
	// gemini fallback when both keys are present).
	LLMProvider       string
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModel          string
	GeminiAPIKey      string
	GeminiModel       string
	LLMMaxTokens      int
	LLMTemperature    float64
	CompletionTimeout time.Duration

	HistoryWindow    int
	ProcessTimeout   time.Duration
	PromptCacheTTL   time.Duration
	SessionSecret    string
	SessionDuration  time.Duration
	AdminJWTSecret   string
	BookingTimezone  string
	DefaultReplyLang string

	// SendGrid operator notifications
	SendGridAPIKey     string
	SendGridFromEmail  string
	SendGridFromName   string
	OperatorAlertEmail string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:5173"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		LineChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		LineChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LineAPIBaseURL:         getEnv("LINE_API_BASE_URL", "https://api.line.me"),

		LineLoginChannelID:     getEnv("LINE_LOGIN_CHANNEL_ID", ""),
		LineLoginChannelSecret: getEnv("LINE_LOGIN_CHANNEL_SECRET", ""),

		LLMProvider:       strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "auto"))),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
		LLMModel:          getEnv("LLM_MODEL", "google/gemini-2.0-flash-exp"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		LLMMaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 500),
		LLMTemperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.5),
		CompletionTimeout: getEnvAsDuration("COMPLETION_TIMEOUT", 30*time.Second),

		HistoryWindow:    getEnvAsInt("HISTORY_WINDOW", 6),
		ProcessTimeout:   getEnvAsDuration("PROCESS_TIMEOUT", 60*time.Second),
		PromptCacheTTL:   getEnvAsDuration("PROMPT_CACHE_TTL", 30*time.Second),
		SessionSecret:    getEnv("SESSION_SECRET", ""),
		SessionDuration:  getEnvAsDuration("SESSION_DURATION", 7*24*time.Hour),
		AdminJWTSecret:   getEnv("ADMIN_JWT_SECRET", ""),
		BookingTimezone:  getEnv("BOOKING_TIMEZONE", "Asia/Taipei"),
		DefaultReplyLang: getEnv("DEFAULT_REPLY_LANG", "zh-TW"),

		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:  getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:   getEnv("SENDGRID_FROM_NAME", "Sparkling WashCar"),
		OperatorAlertEmail: getEnv("OPERATOR_ALERT_EMAIL", ""),
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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
