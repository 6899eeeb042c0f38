package config

import (
	"os"
	"strconv"
	"time"
)

// Config collects every tunable the service reads from the environment.
// main calls godotenv.Load() before Load so a local .env works too.
type Config struct {
	HTTPPort    string
	DatabaseURL string
	JWTSecret   string
	LogLevel    string

	// SessionTTL bounds a login; expired sessions resolve to nothing.
	SessionTTL time.Duration
	// MaxOpenLoans caps how many keys one user may hold at once.
	MaxOpenLoans int
	// MinLoanDwell rejects a checkin sooner than this after checkout.
	// Zero disables the guard.
	MinLoanDwell time.Duration
	// OverdueAfter is the derived-overdue threshold for open loans.
	OverdueAfter time.Duration
}

func Load() Config {
	return Config{
		HTTPPort:     getString("HTTP_PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		LogLevel:     getString("LOG_LEVEL", "info"),
		SessionTTL:   getDuration("SESSION_TTL", 8*time.Hour),
		MaxOpenLoans: getInt("MAX_OPEN_LOANS", 5),
		MinLoanDwell: getDuration("CHECKIN_MIN_DWELL", 0),
		OverdueAfter: getDuration("OVERDUE_AFTER", 12*time.Hour),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return def
}
