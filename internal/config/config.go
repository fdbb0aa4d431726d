package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.  Database settings are
// required; everything else has a working default so a fresh checkout
// runs against local services.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	CutoffHour int    // end-of-day hour judging overdue keys with no due time
	BaseURL    string // public base URL encoded into QR deep links

	AdminPass      string        // shared admin secret, plain (ADMIN_PASS)
	AdminPassHash  string        // bcrypt hash alternative (ADMIN_PASS_HASH wins over ADMIN_PASS)
	AdminTokenTTL  time.Duration // lifetime of the admin gate token
	TokenSecret    string        // HS256 secret for the gate token
	StatusCacheTTL time.Duration // redis status-board cache lifetime; 0 disables
	CheckoutBurst  int           // per-IP requests per minute on checkout/checkin
}

// Load reads configuration from environment variables.  Missing
// required variables cause a fatal log message.
func Load() Config {
	return Config{
		Env:    getenv("APP_ENV", "dev"),
		Port:   getenv("APP_PORT", "8080"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		CutoffHour: envInt("CUTOFF_HOUR", 23),
		BaseURL:    getenv("BASE_URL", "http://localhost:8080"),

		AdminPass:      os.Getenv("ADMIN_PASS"),
		AdminPassHash:  os.Getenv("ADMIN_PASS_HASH"),
		AdminTokenTTL:  envDur("ADMIN_TOKEN_TTL", 8*time.Hour),
		TokenSecret:    must("TOKEN_SECRET"),
		StatusCacheTTL: envDur("STATUS_CACHE_TTL", 15*time.Second),
		CheckoutBurst:  envInt("CHECKOUT_RATE_PER_MIN", 30),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
