package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "5175", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 14, cfg.JWTExpiresDays)
	assert.Equal(t, 8, cfg.DefaultPairs)
	assert.Equal(t, time.Second, cfg.MismatchDelay)
	assert.False(t, cfg.Production())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MISMATCH_DELAY", "250ms")
	t.Setenv("DEFAULT_PAIRS", "12")
	t.Setenv("APP_ENV", "production")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.MismatchDelay)
	assert.Equal(t, 12, cfg.DefaultPairs)
	assert.True(t, cfg.Production())
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad level", "LOG_LEVEL", "loud"},
		{"too many pairs", "DEFAULT_PAIRS", "99"},
		{"short secret", "JWT_SECRET", "short"},
		{"non numeric port", "PORT", "http"},
		{"unknown env", "APP_ENV", "staging"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
