package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time expresses the refresh intervals
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. Only bootstrap values live
// here; the capacity limit itself is a settings-table row so it can
// change at runtime without restarting the service.
type Config struct {
	Env                string        // application environment (e.g. "dev", "prod")
	Port               string        // HTTP port to listen on
	DBUser             string        // database username
	DBPass             string        // database password (optional)
	DBHost             string        // database host address
	DBPort             string        // database port number
	DBName             string        // database name
	JWTSecret          string        // secret used to verify admin tokens
	DefaultMaxPerSlot  int           // capacity used until max_per_slot is set
	AvailabilityRefresh time.Duration // safety-net interval for snapshot recompute
	SettingsPoll       time.Duration // safety-net interval for setting re-read
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:                 must("APP_ENV"),      // environment (dev/test/prod)
		Port:                must("APP_PORT"),     // port to bind the HTTP server
		DBUser:              must("DB_USER"),      // database user
		DBPass:              os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:              must("DB_HOST"),      // database host
		DBPort:              must("DB_PORT"),      // database port
		DBName:              must("DB_NAME"),      // database name
		JWTSecret:           must("JWT_SECRET"),   // secret for admin bearer tokens
		DefaultMaxPerSlot:   envInt("MAX_PER_SLOT_DEFAULT", 2),
		AvailabilityRefresh: envDur("AVAILABILITY_REFRESH", 30*time.Second),
		SettingsPoll:        envDur("SETTINGS_POLL", time.Minute),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// envInt reads an optional integer variable with a default.
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

// envDur reads an optional duration variable (e.g. "30s") with a default.
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
