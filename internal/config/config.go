package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string // dev / staging / prod

	// HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Upstream NeXTStep API, e.g. http://localhost:8000/api
	UpstreamAPIURL       string
	UpstreamReadTimeout  time.Duration
	UpstreamWriteTimeout time.Duration
	RefreshTimeout       time.Duration

	// Redis (session persistence + login limiter). Empty keeps sessions in
	// process memory, which only suits a single dev replica.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Sessions
	SessionTTL     time.Duration // sliding TTL of the persisted entry
	SessionIdleTTL time.Duration // in-process Registry eviction
	CookieSecure   bool

	CORSAllowedOrigins []string

	// Rate limiting
	RLEnabled     bool
	RLIPLimit     int
	RLIPWindow    time.Duration
	LoginRLLimit  int
	LoginRLWindow time.Duration

	// Tracing
	OTELEnabled  bool
	OTELEndpoint string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		UpstreamAPIURL: strings.TrimRight(getEnv("UPSTREAM_API_URL", "http://localhost:8000/api"), "/"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		OTELEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	u, err := url.Parse(cfg.UpstreamAPIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid UPSTREAM_API_URL: %q", cfg.UpstreamAPIURL)
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"HTTP_READ_TIMEOUT", 10 * time.Second, &cfg.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.HTTPWriteTimeout},
		{"HTTP_IDLE_TIMEOUT", 60 * time.Second, &cfg.HTTPIdleTimeout},
		{"UPSTREAM_READ_TIMEOUT", 5 * time.Second, &cfg.UpstreamReadTimeout},
		{"UPSTREAM_WRITE_TIMEOUT", 10 * time.Second, &cfg.UpstreamWriteTimeout},
		{"REFRESH_TIMEOUT", 5 * time.Second, &cfg.RefreshTimeout},
		{"SESSION_TTL", 7 * 24 * time.Hour, &cfg.SessionTTL},
		{"SESSION_IDLE_TTL", 15 * time.Minute, &cfg.SessionIdleTTL},
		{"RL_IP_WINDOW", time.Minute, &cfg.RLIPWindow},
		{"LOGIN_RL_WINDOW", time.Minute, &cfg.LoginRLWindow},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, fmt.Errorf("%s must be positive", d.key)
		}
		*d.dst = v
	}

	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RLIPLimit, err = getInt("RL_IP_LIMIT", 300); err != nil {
		return nil, err
	}
	if cfg.LoginRLLimit, err = getInt("LOGIN_RL_LIMIT", 10); err != nil {
		return nil, err
	}

	if cfg.RLEnabled, err = getBool("RL_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", cfg.AppEnv != "dev"); err != nil {
		return nil, err
	}
	if cfg.OTELEnabled, err = getBool("OTEL_ENABLED", false); err != nil {
		return nil, err
	}

	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"))

	return cfg, nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return i, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
