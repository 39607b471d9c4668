package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	GeminiBaseURL           string
	GeminiAPIVersion        string
	GeminiTextModel         string
	GeminiImageModel        string
	GeminiPremiumImageModel string
	GeminiValidationModel   string

	MediaGroupDebounce time.Duration
	MaxConcurrent      int
	RequestTimeout     time.Duration
	HTTPTimeout        time.Duration
	PhaseHintDelay     time.Duration
	SessionIdle        time.Duration

	WebAddr string
}

// Load reads the environment. Only GEMINI_API_KEY is required here; front
// ends with more needs check them with the Require* methods.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:                strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:                   getEnvBool("DEBUG", false),
		PreferIPv4:              getEnvBool("PREFER_IPV4", true),
		GeminiBaseURL:           strings.TrimRight(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"), "/"),
		GeminiAPIVersion:        getEnv("GEMINI_API_VERSION", "v1beta"),
		GeminiTextModel:         getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImageModel:        getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiPremiumImageModel: getEnv("GEMINI_PREMIUM_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		MediaGroupDebounce:      time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:           getEnvInt("MAX_CONCURRENT", 3),
		RequestTimeout:          time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 300)) * time.Second,
		HTTPTimeout:             time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		PhaseHintDelay:          time.Duration(getEnvInt("PHASE_HINT_DELAY_MS", 2000)) * time.Millisecond,
		SessionIdle:             time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 120)) * time.Minute,
		WebAddr:                 getEnv("WEB_ADDR", ":8080"),
	}
	cfg.GeminiValidationModel = getEnv("GEMINI_VALIDATION_MODEL", cfg.GeminiPremiumImageModel)

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))

	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 300 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}
	if cfg.PhaseHintDelay < 0 {
		cfg.PhaseHintDelay = 2 * time.Second
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = 120 * time.Minute
	}

	return cfg, nil
}

func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
