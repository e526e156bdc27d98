package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	RawRFQDir string
	OutputDir string

	HTTPHost     string
	HTTPPort     int
	AllowOrigins []string
	LogLevel     string
	LogFile      string

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITemperature float64
	OpenAIMaxTokens   int

	FeedBaseURL      string
	FeedTimeoutMs    int
	FeedRateLimitRPS int
	FeedStockDefault int
	FeedDeliveryDays int

	MatchThreshold float64

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	ListenerProvider     string
	ListenerLabel        string
	ListenerIntervalSec  int
	ListenerFetchMax     int
	ListenerProcessBatch int
	ListenerAutoExport   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "procure.db")),
		RawRFQDir: getEnv("RFQ_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		HTTPHost:     getEnv("HTTP_HOST", "127.0.0.1"),
		HTTPPort:     getEnvInt("HTTP_PORT", 8080),
		AllowOrigins: strings.Split(getEnv("ALLOW_ORIGINS", "*"), ","),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", "logs/procure.log"),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAITemperature: getEnvFloat("OPENAI_TEMPERATURE", 0.7),
		OpenAIMaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 200),

		FeedBaseURL:      getEnv("FEED_BASE_URL", "https://fakestoreapi.com"),
		FeedTimeoutMs:    getEnvInt("FEED_TIMEOUT_MS", 10000),
		FeedRateLimitRPS: getEnvInt("FEED_RATE_LIMIT_RPS", 5),
		FeedStockDefault: getEnvInt("FEED_STOCK_DEFAULT", 50),
		FeedDeliveryDays: getEnvInt("FEED_DELIVERY_DAYS", 7),

		MatchThreshold: getEnvFloat("MATCH_THRESHOLD", 0.5),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		ListenerProvider:     getEnv("RFQ_LISTENER_PROVIDER", "imap"),
		ListenerLabel:        getEnv("RFQ_LISTENER_LABEL", "INBOX"),
		ListenerIntervalSec:  getEnvInt("RFQ_LISTENER_INTERVAL_SEC", 30),
		ListenerFetchMax:     getEnvInt("RFQ_LISTENER_FETCH_MAX", 20),
		ListenerProcessBatch: getEnvInt("RFQ_LISTENER_PROCESS_BATCH", 20),
		ListenerAutoExport:   getEnvBool("RFQ_LISTENER_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
