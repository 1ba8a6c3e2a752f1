package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr string
	// DBPath is the sqlite database file.
	DBPath string
	// TokenSecret signs session tokens. It has no default on purpose:
	// main refuses to start without it.
	TokenSecret string
	TokenTTL    time.Duration
	// PageSize is the public home page size.
	PageSize int
	// LoginPerMinute caps login/register attempts per client IP.
	LoginPerMinute int
}

func Load() Config {
	addr := envString("QUILLPAD_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}
	return Config{
		Addr:           addr,
		DBPath:         envString("QUILLPAD_DB", "quillpad.db"),
		TokenSecret:    os.Getenv("QUILLPAD_TOKEN_SECRET"),
		TokenTTL:       envDuration("QUILLPAD_TOKEN_TTL", 24*time.Hour),
		PageSize:       envInt("QUILLPAD_PAGE_SIZE", 10),
		LoginPerMinute: envInt("QUILLPAD_RL_LOGIN_PER_MIN", 10),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
