package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultBookingWeeks is the system-wide number of weeks shown to clients
	DefaultBookingWeeks = 52
	// MaxBookingWeeks is the system-wide limit of weeks bookable in advance
	MaxBookingWeeks = 104
)

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	LogLevel    string
	AppURL      string
	// Email (Resend)
	ResendAPIKey    string
	EmailFrom       string
	EmailFromName   string
	EmailTestMode   bool // When true, emails are logged instead of sent
	DefaultLanguage string
	// Booking window defaults
	DefaultBookingWeeks int
	MaxBookingWeeks     int
	// Notification queue
	NotificationBatchSize    int
	NotificationMaxAttempts  int
	NotificationSendTimeout  time.Duration
	NotificationPollSpec     string // cron spec for the background sender
	NotificationStaleAfter   time.Duration
	NotificationRetryBackoff time.Duration // delay before the first retry, doubled per failed attempt
	ConfirmationDedupeWindow time.Duration
	ReminderSpec             string
	// Public booking rate limit (requests per minute per IP)
	PublicRateLimit int
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		ServerPort:               getEnv("SERVER_PORT", "8080"),
		DBPath:                   getEnv("DB_PATH", "db/app.db"),
		Environment:              getEnv("ENVIRONMENT", "development"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		AppURL:                   getEnv("APP_URL", "http://localhost:8080"),
		ResendAPIKey:             getEnv("RESEND_API_KEY", ""),
		EmailFrom:                getEnv("EMAIL_FROM", "noreply@lawconsult.local"),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "Law Consultations"),
		EmailTestMode:            getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		DefaultLanguage:          getEnv("DEFAULT_LANGUAGE", "es"),
		DefaultBookingWeeks:      getEnvInt("DEFAULT_BOOKING_WEEKS", DefaultBookingWeeks),
		MaxBookingWeeks:          getEnvInt("MAX_BOOKING_WEEKS", MaxBookingWeeks),
		NotificationBatchSize:    getEnvInt("NOTIFICATION_BATCH_SIZE", 10),
		NotificationMaxAttempts:  getEnvInt("NOTIFICATION_MAX_ATTEMPTS", 3),
		NotificationSendTimeout:  getEnvDuration("NOTIFICATION_SEND_TIMEOUT", 10*time.Second),
		NotificationPollSpec:     getEnv("NOTIFICATION_POLL_SPEC", "@every 1m"),
		NotificationStaleAfter:   getEnvDuration("NOTIFICATION_STALE_AFTER", 10*time.Minute),
		NotificationRetryBackoff: getEnvDuration("NOTIFICATION_RETRY_BACKOFF", time.Minute),
		ConfirmationDedupeWindow: getEnvDuration("CONFIRMATION_DEDUPE_WINDOW", 5*time.Minute),
		ReminderSpec:             getEnv("REMINDER_SPEC", "0 8 * * *"),
		PublicRateLimit:          getEnvInt("PUBLIC_RATE_LIMIT", 10),
	}
}

// Default returns the configuration used when no environment is available (tests, tools)
func Default() *Config {
	return &Config{
		Environment:              "test",
		LogLevel:                 "debug",
		AppURL:                   "http://localhost:8080",
		EmailTestMode:            true,
		DefaultLanguage:          "es",
		DefaultBookingWeeks:      DefaultBookingWeeks,
		MaxBookingWeeks:          MaxBookingWeeks,
		NotificationBatchSize:    10,
		NotificationMaxAttempts:  3,
		NotificationSendTimeout:  10 * time.Second,
		NotificationPollSpec:     "@every 1m",
		NotificationStaleAfter:   10 * time.Minute,
		NotificationRetryBackoff: time.Minute,
		ConfirmationDedupeWindow: 5 * time.Minute,
		ReminderSpec:             "0 8 * * *",
		PublicRateLimit:          10,
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("[WARNING] Invalid value for %s (%q), using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("[WARNING] Invalid duration for %s (%q), using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
