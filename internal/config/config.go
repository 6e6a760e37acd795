// Package config loads runtime settings from .env files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAirports is the set of arrival airports tracked when AIRPORTS is unset.
var DefaultAirports = []string{
	"AER", "GDZ", "AAQ", "SIP", "KHE", "NLV", "ODS", "CND", "VAR", "BOJ",
	"IST", "ONQ", "NOP", "SZF", "OGU", "TZX", "RZV", "BUS", "KUT",
}

// Config holds the application configuration.
type Config struct {
	Airports []string

	StoreDriver string // "postgres" or "sqlite".
	SQLitePath  string
	Postgres    PostgresConfig

	ClickHouseAddr     string // Empty disables the flight archive.
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string

	NATSURL string // Empty disables ingestion events.

	FR24Limit   int
	FR24Timeout time.Duration

	GeocodeUserAgent  string
	GeocodeMinDelay   time.Duration
	GeocodeMaxRetries int
	GeocodeErrorWait  time.Duration
	GeocodeTimeout    time.Duration
	CoordsCacheFile   string

	MapMaxFlights int
	MapLookback   time.Duration
	MapOutput     string
	MissingOutput string

	HTTPAddr string
	APIKeys  []string // Empty leaves the HTTP API open.
	LogLevel string
	LogFile  string
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		Airports:    getEnvList("AIRPORTS", DefaultAirports),
		StoreDriver: strings.ToLower(getEnvString("STORE_DRIVER", "postgres")),
		SQLitePath:  getEnvString("SQLITE_PATH", "air_data.db"),
		Postgres: PostgresConfig{
			Host:     getEnvString("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			Database: getEnvString("POSTGRES_DATABASE", "air_data"),
			User:     getEnvString("POSTGRES_USER", "postgres"),
			Password: getEnvString("POSTGRES_PASSWORD", ""),
		},
		ClickHouseAddr:     getEnvString("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnvString("CLICKHOUSE_DATABASE", "air_data"),
		ClickHouseUser:     getEnvString("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnvString("CLICKHOUSE_PASSWORD", ""),
		NATSURL:            getEnvString("NATS_URL", ""),
		FR24Limit:          getEnvInt("FR24_LIMIT", 20),
		FR24Timeout:        getEnvDuration("FR24_TIMEOUT", 15*time.Second),
		GeocodeUserAgent:   getEnvString("GEOCODE_USER_AGENT", "flight_tracker"),
		GeocodeMinDelay:    getEnvDuration("GEOCODE_MIN_DELAY", time.Second),
		GeocodeMaxRetries:  getEnvInt("GEOCODE_MAX_RETRIES", 2),
		GeocodeErrorWait:   getEnvDuration("GEOCODE_ERROR_WAIT", 5*time.Second),
		GeocodeTimeout:     getEnvDuration("GEOCODE_TIMEOUT", 10*time.Second),
		CoordsCacheFile:    getEnvString("COORDS_CACHE_FILE", "airport_coords_cache.json"),
		MapMaxFlights:      getEnvInt("MAP_MAX_FLIGHTS", 1000),
		MapLookback:        getEnvDuration("MAP_LOOKBACK", 7*24*time.Hour),
		MapOutput:          getEnvString("MAP_OUTPUT", "flights_map.geojson"),
		MissingOutput:      getEnvString("MISSING_OUTPUT", "missing_airports.txt"),
		HTTPAddr:           getEnvString("HTTP_ADDR", ":8081"),
		APIKeys:            getEnvKeys("API_KEYS"),
		LogLevel:           getEnvString("LOG_LEVEL", "info"),
		LogFile:            getEnvString("LOG_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or sqlite, got %q", c.StoreDriver)
	}
	if len(c.Airports) == 0 {
		return fmt.Errorf("AIRPORTS must list at least one airport")
	}
	if c.FR24Limit <= 0 {
		return fmt.Errorf("FR24_LIMIT must be positive, got %d", c.FR24Limit)
	}
	if c.MapMaxFlights <= 0 {
		return fmt.Errorf("MAP_MAX_FLIGHTS must be positive, got %d", c.MapMaxFlights)
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
	}
	return paths
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms", or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable into upper-cased codes.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvKeys splits a comma separated variable, keeping case.
func getEnvKeys(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
