package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultCORSOrigins are the browser origins allowed to call the relay
// when CORS_ORIGINS is not set.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5000",
	"https://tabysty-urpaq.web.app",
}

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	// Server
	Port string
	Env  string

	// OpenAI
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	UpstreamTimeout time.Duration
	// Models reported under their own metrics label; empty keeps the built-in list.
	KnownModels []string

	// CORS
	CORSOrigins []string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "5000"),
		Env:             getEnvOrDefault("ENV", "development"),
		OpenAIAPIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:   strings.TrimRight(getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
		OpenAIModel:     getEnvOrDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
		UpstreamTimeout: getEnvAsDurationOrDefault("UPSTREAM_TIMEOUT", 60*time.Second),
		KnownModels:     getEnvAsListOrDefault("OPENAI_KNOWN_MODELS", nil),
		CORSOrigins:     getEnvAsListOrDefault("CORS_ORIGINS", DefaultCORSOrigins),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "text"),
	}

	return cfg
}

// HasAPIKey reports whether the upstream credential is configured.
func (c *Config) HasAPIKey() bool {
	return c.OpenAIAPIKey != ""
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go durations ("30s") or a bare number of seconds.
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if secs := getEnvAsIntOrDefault(key, 0); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultVal...)
	}
	return out
}
