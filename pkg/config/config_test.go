package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{"PT_PROVIDERS_DIR", "PT_REDIS_ADDRESS", "PT_MAX_DEPARTURES", "PT_HTTP_TIMEOUT", "PT_DEBUG"} {
		t.Setenv(name, "")
	}

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/providers", config.ProvidersDir)
	assert.Equal(t, 200, config.MaxDepartures)
	assert.Equal(t, 30*time.Second, config.HTTPTimeout)
	assert.False(t, config.UseRedis())
	assert.False(t, config.Debug)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PT_PROVIDERS_DIR", "/etc/timetables/providers")
	t.Setenv("PT_REDIS_ADDRESS", "redis:6379")
	t.Setenv("PT_REDIS_DATABASE", "2")
	t.Setenv("PT_MAX_DEPARTURES", "50")
	t.Setenv("PT_HTTP_TIMEOUT", "PT1M")
	t.Setenv("PT_DEBUG", "YES")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/etc/timetables/providers", config.ProvidersDir)
	assert.Equal(t, "redis:6379", config.RedisAddress)
	assert.Equal(t, 2, config.RedisDatabase)
	assert.Equal(t, 50, config.MaxDepartures)
	assert.Equal(t, time.Minute, config.HTTPTimeout)
	assert.True(t, config.UseRedis())
	assert.True(t, config.Debug)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"database", "PT_REDIS_DATABASE", "first"},
		{"max departures", "PT_MAX_DEPARTURES", "-1"},
		{"timeout", "PT_HTTP_TIMEOUT", "soon"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv(test.key, test.value)

			_, err := Load()
			assert.ErrorContains(t, err, test.key)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"45s", 45 * time.Second},
		{"PT45S", 45 * time.Second},
		{"pt2m", 2 * time.Minute},
		{"PT1H30M", 90 * time.Minute},
	}

	for _, test := range tests {
		t.Run(test.value, func(t *testing.T) {
			duration, err := ParseDuration(test.value)
			require.NoError(t, err)
			assert.Equal(t, test.expected, duration)
		})
	}
}
