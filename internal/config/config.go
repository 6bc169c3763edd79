package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultBaseURL = "http://localhost:8080/api"

type Config struct {
	Environment string
	LogLevel    string
	API         APIConfig
	Session     SessionConfig
	Cache       CacheConfig
	Console     ConsoleConfig
	Database    DatabaseConfig
	ScreensFile string
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	Store    string // "file" or "redis"
	FilePath string
	RedisURL string
	RedisKey string
}

type CacheConfig struct {
	StaleTime  time.Duration
	Retry      int
	RetryDelay time.Duration
	GCTime     time.Duration
}

type ConsoleConfig struct {
	Port    string
	KeyHash string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SESSION_STORE", "file")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("CACHE_RETRY", 1)

	viper.AutomaticEnv()

	// A missing .env is fine, env vars cover everything.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	timeout, err := getDurationOrViper("API_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	staleTime, err := getDurationOrViper("CACHE_STALE_TIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	retryDelay, err := getDurationOrViper("CACHE_RETRY_DELAY", time.Second)
	if err != nil {
		return nil, err
	}
	gcTime, err := getDurationOrViper("CACHE_GC_TIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		API: APIConfig{
			BaseURL: strings.TrimSuffix(getEnvOrViper("API_BASE_URL", DefaultBaseURL), "/"),
			Timeout: timeout,
		},
		Session: SessionConfig{
			Store:    getEnvOrViper("SESSION_STORE", "file"),
			FilePath: getEnvOrViper("SESSION_FILE", defaultSessionFile()),
			RedisURL: getEnvOrViper("REDIS_URL", "redis://localhost:6379/0"),
			RedisKey: getEnvOrViper("SESSION_REDIS_KEY", "groceryadmin:session"),
		},
		Cache: CacheConfig{
			StaleTime:  staleTime,
			Retry:      viper.GetInt("CACHE_RETRY"),
			RetryDelay: retryDelay,
			GCTime:     gcTime,
		},
		Console: ConsoleConfig{
			Port:    getEnvOrViper("CONSOLE_PORT", "8090"),
			KeyHash: getEnvOrViper("CONSOLE_KEY_HASH", ""),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvOrViper("AUDIT_ENABLED", "false") == "true",
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "groceryadmin"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		ScreensFile: getEnvOrViper("SCREENS_FILE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.API.BaseURL)
	}
	switch c.Session.Store {
	case "file", "redis":
	default:
		return fmt.Errorf("SESSION_STORE must be \"file\" or \"redis\", got %q", c.Session.Store)
	}
	if c.Cache.Retry < 0 {
		return fmt.Errorf("CACHE_RETRY must not be negative")
	}
	return nil
}

// DSN returns the lib/pq connection string for the audit database.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getDurationOrViper(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".groceryadmin-session.json"
	}
	return filepath.Join(home, ".groceryadmin", "session.json")
}
