package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultGeminiModel = "gemini-2.0-flash"

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64

	// GeminiAPIKey may be empty; the reply client then reports itself unconfigured.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	MaxTransmissionSizeMB int
	MaxWorkers            int

	ResultTTL       time.Duration
	ResultCacheSize int

	RateLimitRPS   float64
	RateLimitBurst int

	AzureStorageAccount string
	AzureStorageKey     string

	LogLevel string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether Azure Blob credentials were supplied.
func (c *Config) AzureEnabled() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

// LoadFromEnv reads configuration from the process environment, after
// merging a .env file from the working directory when one exists.
func LoadFromEnv() (*Config, error) {
	// Values already in the environment win over .env.
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 45*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 52*1024*1024), // 50MB upload + multipart overhead

		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:   getEnvOrDefault("GEMINI_MODEL", defaultGeminiModel),
		GeminiBaseURL: strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),

		MaxTransmissionSizeMB: int(parseIntOrDefault("MAX_TRANSMISSION_SIZE_MB", 10)),
		MaxWorkers:            int(parseIntOrDefault("MAX_WORKERS", 0)),

		ResultTTL:       parseDurationOrDefault("RESULT_TTL", 30*time.Minute),
		ResultCacheSize: int(parseIntOrDefault("RESULT_CACHE_SIZE", 500)),

		RateLimitRPS:   parseFloatOrDefault("RATE_LIMIT_RPS", 2),
		RateLimitBurst: int(parseIntOrDefault("RATE_LIMIT_BURST", 5)),

		AzureStorageAccount: strings.TrimSpace(os.Getenv("AZURE_STORAGE_ACCOUNT")),
		AzureStorageKey:     strings.TrimSpace(os.Getenv("AZURE_STORAGE_KEY")),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.ImageFetchTimeout <= 0 || cfg.AnalysisTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			cfg.RequestTimeout, cfg.ImageFetchTimeout, cfg.AnalysisTimeout)
	}
	if cfg.MaxTransmissionSizeMB < 1 || cfg.MaxTransmissionSizeMB > 50 {
		return nil, fmt.Errorf("MAX_TRANSMISSION_SIZE_MB must be between 1 and 50 (got %d)", cfg.MaxTransmissionSizeMB)
	}
	if cfg.ResultCacheSize <= 0 {
		return nil, fmt.Errorf("RESULT_CACHE_SIZE must be > 0 (got %d)", cfg.ResultCacheSize)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("rate limit must be > 0 (got rps=%v, burst=%d)", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
