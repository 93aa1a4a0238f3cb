package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64

	// Detector settings
	TagConfigPath string
	TagProfile    string
	TagFamily     string
	TagBlur       float64
	TagThreads    int

	// Zero decimate and negative hamming keep the profile values
	TagDecimate        float64
	MaxHammingDistance int
	RemoveDuplicates   bool
	DefaultTagSize     float64
	Tags               *TagLayout

	// Broadcast channel
	PublishTopic  string
	KafkaBrokers  []string
	KafkaTopic    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
	HistoryDBPath string
	HistoryLimit  int

	// Remote image hosts; empty allows all
	AllowedImageHosts []string

	// Azure blob storage for azblob:// paths
	AzureAccountName string
	AzureAccountKey  string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether azblob:// paths can be served
func (c *Config) AzureEnabled() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != ""
}

func LoadFromEnv() (*Config, error) {
	if err := loadDotEnv(getEnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 20*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 1024*1024), // 1MB

		TagConfigPath:      os.Getenv("TAG_CONFIG_PATH"),
		TagProfile:         getEnvOrDefault("TAG_PROFILE", "accurate"),
		TagFamily:          getEnvOrDefault("TAG_FAMILY", "tag36h11"),
		TagDecimate:        parseFloatOrDefault("TAG_DECIMATE", 0),
		TagBlur:            parseFloatOrDefault("TAG_BLUR", 0.0),
		TagThreads:         int(parseIntOrDefault("TAG_THREADS", 2)),
		MaxHammingDistance: int(parseIntOrDefault("TAG_MAX_HAMMING", -1)),
		RemoveDuplicates:   parseBoolOrDefault("TAG_REMOVE_DUPLICATES", true),
		DefaultTagSize:     parseFloatOrDefault("TAG_DEFAULT_SIZE", 0.1),

		PublishTopic:  getEnvOrDefault("PUBLISH_TOPIC", "tag_detections"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    getEnvOrDefault("KAFKA_TOPIC", "tag_detections"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       int(parseIntOrDefault("REDIS_DB", 0)),
		RedisChannel:  getEnvOrDefault("REDIS_CHANNEL", "tag_detections"),
		HistoryDBPath: getEnvOrDefault("HISTORY_DB_PATH", "tag_detections.db"),
		HistoryLimit:  int(parseIntOrDefault("HISTORY_LIMIT", 50)),

		AllowedImageHosts: splitList(os.Getenv("ALLOWED_IMAGE_HOSTS")),

		AzureAccountName: os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureAccountKey:  os.Getenv("AZURE_STORAGE_KEY"),
	}

	// Validate port is numeric and in range
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
	if cfg.TagDecimate != 0 && cfg.TagDecimate < 1 {
		return nil, fmt.Errorf("TAG_DECIMATE must be >= 1 (got %g)", cfg.TagDecimate)
	}
	if cfg.TagBlur < 0 {
		return nil, fmt.Errorf("TAG_BLUR must be >= 0 (got %g)", cfg.TagBlur)
	}
	if cfg.DefaultTagSize < 0 {
		return nil, fmt.Errorf("TAG_DEFAULT_SIZE must be >= 0 (got %g)", cfg.DefaultTagSize)
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("HISTORY_LIMIT must be > 0 (got %d)", cfg.HistoryLimit)
	}

	cfg.Tags = &TagLayout{}
	if cfg.TagConfigPath != "" {
		layout, err := LoadTagLayout(cfg.TagConfigPath)
		if err != nil {
			return nil, err
		}
		cfg.Tags = layout
	}
	return cfg, nil
}

// loadDotEnv reads KEY=value pairs from path without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
