package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/publictransport/timetables/pkg/util"
	iso8601 "github.com/senseyeio/duration"
)

type Config struct {
	ProvidersDir string
	FiltersFile  string

	RedisAddress  string
	RedisPassword string
	RedisDatabase int

	Listen        string
	MetricsListen string

	MaxDepartures int
	HTTPTimeout   time.Duration

	LogJSON bool
	Debug   bool
}

// Load reads the PT_* environment variables. A .env file in the working directory is loaded
// first if present, variables already set win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := util.GetEnvironmentVariables()
	get := func(name string, fallback string) string {
		if value := strings.TrimSpace(env[name]); value != "" {
			return value
		}
		return fallback
	}

	config := &Config{
		ProvidersDir:  get("PT_PROVIDERS_DIR", "data/providers"),
		FiltersFile:   get("PT_FILTERS_FILE", "data/filters.yaml"),
		RedisAddress:  get("PT_REDIS_ADDRESS", ""),
		RedisPassword: get("PT_REDIS_PASSWORD", ""),
		Listen:        get("PT_LISTEN", ":8080"),
		MetricsListen: get("PT_METRICS_LISTEN", ":9090"),
		LogJSON:       get("PT_LOG_FORMAT", "") == "JSON",
		Debug:         get("PT_DEBUG", "") == "YES",
	}

	var err error
	if config.RedisDatabase, err = strconv.Atoi(get("PT_REDIS_DATABASE", "0")); err != nil {
		return nil, fmt.Errorf("invalid PT_REDIS_DATABASE: %w", err)
	}

	if config.MaxDepartures, err = strconv.Atoi(get("PT_MAX_DEPARTURES", "200")); err != nil || config.MaxDepartures <= 0 {
		return nil, fmt.Errorf("invalid PT_MAX_DEPARTURES: %q", env["PT_MAX_DEPARTURES"])
	}

	if config.HTTPTimeout, err = ParseDuration(get("PT_HTTP_TIMEOUT", "30s")); err != nil || config.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("invalid PT_HTTP_TIMEOUT: %q", env["PT_HTTP_TIMEOUT"])
	}

	return config, nil
}

// ParseDuration accepts Go durations ("45s") and ISO 8601 durations ("PT45S")
func ParseDuration(value string) (time.Duration, error) {
	if strings.HasPrefix(strings.ToUpper(value), "P") {
		duration, err := iso8601.ParseISO8601(strings.ToUpper(value))
		if err != nil {
			return 0, err
		}

		start := time.Unix(0, 0).UTC()
		return duration.Shift(start).Sub(start), nil
	}

	return time.ParseDuration(value)
}

// UseRedis reports whether a redis server is configured
func (c *Config) UseRedis() bool {
	return c.RedisAddress != ""
}
