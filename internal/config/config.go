package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds system-wide settings, kept apart from business logic.
type Config struct {
	Database *DatabaseConfig `json:"database"`
	HTTP     *HTTPConfig     `json:"http"`
	Call     *CallConfig     `json:"call"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type CallConfig struct {
	// RingTimeout bounds how long an unanswered invite rings before the
	// caller is told no_answer.
	RingTimeout time.Duration `json:"ring_timeout"`
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Path: "./campushub.db",
		},
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Call: &CallConfig{
			RingTimeout: 45 * time.Second,
		},
	}
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}

	if c.Call == nil {
		return fmt.Errorf("call configuration is required")
	}
	if c.Call.RingTimeout <= 0 {
		return fmt.Errorf("call ring timeout must be positive")
	}

	return nil
}

// LoadFromEnv builds a config from defaults overridden by CAMPUSHUB_*
// environment variables. A .env file in the working directory, if present, is
// loaded first; absence is normal in deployed environments.
func LoadFromEnv() *Config {
	_ = godotenv.Load()

	config := DefaultConfig()

	if host := os.Getenv("CAMPUSHUB_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}

	if port := os.Getenv("CAMPUSHUB_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}

	if readTimeout := os.Getenv("CAMPUSHUB_HTTP_READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			config.HTTP.ReadTimeout = timeout
		}
	}

	if writeTimeout := os.Getenv("CAMPUSHUB_HTTP_WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			config.HTTP.WriteTimeout = timeout
		}
	}

	if dbPath := os.Getenv("CAMPUSHUB_DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}

	if ringTimeout := os.Getenv("CAMPUSHUB_CALL_RING_TIMEOUT"); ringTimeout != "" {
		if timeout, err := time.ParseDuration(ringTimeout); err == nil {
			config.Call.RingTimeout = timeout
		}
	}

	return config
}
