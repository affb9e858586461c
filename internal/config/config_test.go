package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("APP_ENV", "dev")
		t.Setenv("UPSTREAM_API_URL", "")
		t.Setenv("COOKIE_SECURE", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8000/api", cfg.UpstreamAPIURL)
		assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
		assert.Equal(t, 5*time.Second, cfg.RefreshTimeout)
		assert.False(t, cfg.CookieSecure, "dev defaults to insecure cookies")
		assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
	})

	t.Run("prod defaults to secure cookies", func(t *testing.T) {
		t.Setenv("APP_ENV", "prod")
		t.Setenv("COOKIE_SECURE", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.CookieSecure)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("UPSTREAM_API_URL", "https://api.nextstep.example/api/")
		t.Setenv("SESSION_IDLE_TTL", "2m")
		t.Setenv("LOGIN_RL_LIMIT", "3")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://api.nextstep.example/api", cfg.UpstreamAPIURL)
		assert.Equal(t, 2*time.Minute, cfg.SessionIdleTTL)
		assert.Equal(t, 3, cfg.LoginRLLimit)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	})

	t.Run("invalid values fail", func(t *testing.T) {
		cases := map[string]string{
			"REFRESH_TIMEOUT":  "soon",
			"SESSION_TTL":      "-1h",
			"REDIS_DB":         "zero",
			"RL_ENABLED":       "maybe",
			"UPSTREAM_API_URL": "localhost",
		}
		for key, val := range cases {
			t.Run(key, func(t *testing.T) {
				t.Setenv(key, val)
				cfg, err := Load()
				assert.Nil(t, cfg)
				assert.Error(t, err)
			})
		}
	})
}
