package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot and supporting services.
type Config struct {
	BotToken            string
	BotUsername         string
	SQLitePath          string
	GroqAPIKey          string
	GroqBaseURL         string
	ChatModel           string
	WhisperModel        string
	RequestTimeout      time.Duration
	FreeMessagesPerDay  int
	SessionDuration     time.Duration
	HistoryDepth        int
	TrialDays           int
	PremiumDays         int
	PremiumPriceStars   int
	SessionPriceStars   int
	ReferralBonus       int
	AdminTelegramID     int64
	AdminListenAddr     string
	AdminUsername       string
	AdminPassword       string
	DefaultLanguage     string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const defaultGroqBaseURL = "https://api.groq.com"

	cfg := Config{
		BotUsername:        normalizeBotUsername(getEnv("BOT_USERNAME", "")),
		SQLitePath:         getEnv("SQLITE_PATH", "night_whisper.db"),
		GroqBaseURL:        normalizeGroqBaseURL(getEnv("GROQ_BASE_URL", defaultGroqBaseURL), defaultGroqBaseURL),
		ChatModel:          getEnv("GROQ_CHAT_MODEL", "llama-3.1-8b-instant"),
		WhisperModel:       getEnv("GROQ_WHISPER_MODEL", "whisper-large-v3"),
		RequestTimeout:     time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 30)),
		FreeMessagesPerDay: getInt("FREE_MESSAGES_PER_DAY", 3),
		SessionDuration:    time.Minute * time.Duration(getInt("SESSION_DURATION_MINUTES", 40)),
		HistoryDepth:       getInt("HISTORY_DEPTH", 10),
		TrialDays:          getInt("TRIAL_DAYS", 3),
		PremiumDays:        getInt("PREMIUM_DAYS", 30),
		PremiumPriceStars:  getInt("PREMIUM_PRICE_STARS", 150),
		SessionPriceStars:  getInt("SESSION_PRICE_STARS", 50),
		ReferralBonus:      getInt("REFERRAL_BONUS_MESSAGES", 5),
		AdminTelegramID:    getInt64("ADMIN_TELEGRAM_ID", 0),
		AdminListenAddr:    getEnv("ADMIN_LISTEN_ADDR", ":8080"),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", "change-me"),
		DefaultLanguage:    getEnv("DEFAULT_LANGUAGE", "ru"),
	}

	cfg.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.GroqAPIKey = os.Getenv("GROQ_API_KEY")

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if cfg.BotUsername == "" {
		missing = append(missing, "BOT_USERNAME")
	}
	if cfg.GroqAPIKey == "" {
		missing = append(missing, "GROQ_API_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

// normalizeGroqBaseURL keeps us on the documented API host even when the env
// var points at the bare domain without a scheme.
func normalizeGroqBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	return strings.TrimRight(parsed.String(), "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// Running without an env file is fine when variables come from the
	// environment directly (containers).
	return nil
}

func normalizeBotUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	if strings.HasPrefix(username, "https://") || strings.HasPrefix(username, "http://") {
		if parsed, err := url.Parse(username); err == nil {
			username = strings.Trim(parsed.Path, "/")
		}
	}
	username = strings.TrimPrefix(username, "t.me/")
	return strings.TrimPrefix(username, "@")
}
