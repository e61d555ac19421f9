package config

import (
	"fmt"
	"os"
	"time"

	"github.com/vjranagit/trendline/pkg/storage"
)

// Config holds the application configuration, populated from the
// environment with sensible defaults.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Storage StorageConfig `json:"storage"`
	Trend   TrendConfig   `json:"trend"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	ListenAddr string        `json:"listen_addr"`
	Timeout    time.Duration `json:"timeout"`
}

// StorageConfig holds block store configuration.
type StorageConfig struct {
	Path             string        `json:"path"`
	CompressionLevel int           `json:"compression_level"`
	EnableWAL        bool          `json:"enable_wal"`
	CacheSize        int           `json:"cache_size"`
	CacheTTL         time.Duration `json:"cache_ttl"`
}

// TrendConfig holds calendar settings for trend queries.
type TrendConfig struct {
	// Timezone anchors wall-clock alignment; empty or "Local" uses
	// the host zone.
	Timezone string `json:"timezone"`
	// WeekStart names the first day of the week for Week intervals.
	WeekStart string `json:"week_start"`
}

// DefaultConfig returns configuration from the environment.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: getEnv("LISTEN_ADDR", ":9111"),
			Timeout:    30 * time.Second,
		},
		Storage: StorageConfig{
			Path:             getEnv("STORAGE_PATH", "./data"),
			CompressionLevel: getEnvInt("COMPRESSION_LEVEL", 3),
			EnableWAL:        getEnvBool("ENABLE_WAL", true),
			CacheSize:        getEnvInt("CACHE_SIZE", 256),
			CacheTTL:         time.Duration(getEnvInt("CACHE_TTL_SECONDS", 60)) * time.Second,
		},
		Trend: TrendConfig{
			Timezone:  getEnv("TIMEZONE", "Local"),
			WeekStart: getEnv("WEEK_START", "Monday"),
		},
	}
}

// ToStorageConfig converts to storage.Config.
func (c *Config) ToStorageConfig() *storage.Config {
	return &storage.Config{
		Path:             c.Storage.Path,
		CompressionLevel: c.Storage.CompressionLevel,
		EnableWAL:        c.Storage.EnableWAL,
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Trend.Timezone == "" || c.Trend.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Trend.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Trend.Timezone, err)
	}
	return loc, nil
}

// WeekStart resolves the configured first day of the week.
func (c *Config) WeekStart() (time.Weekday, error) {
	switch c.Trend.WeekStart {
	case "Sunday":
		return time.Sunday, nil
	case "Monday", "":
		return time.Monday, nil
	case "Tuesday":
		return time.Tuesday, nil
	case "Wednesday":
		return time.Wednesday, nil
	case "Thursday":
		return time.Thursday, nil
	case "Friday":
		return time.Friday, nil
	case "Saturday":
		return time.Saturday, nil
	default:
		return time.Monday, fmt.Errorf("invalid week start %q", c.Trend.WeekStart)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	if c.Storage.CompressionLevel < 1 || c.Storage.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}
	if c.Storage.CacheSize < 1 {
		return fmt.Errorf("cache size must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.WeekStart(); err != nil {
		return err
	}
	return nil
}

// Helper functions for environment variables.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
