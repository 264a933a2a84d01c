package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Backend
	APIURL         string
	RequestTimeout time.Duration
	ReadRetries    int
	LogoutOn401    bool

	// Cache
	StaleTime       time.Duration
	GCTime          time.Duration
	CleanupInterval time.Duration
	MaxEntries      int

	// Credential storage (empty path keeps credentials in memory)
	StorePath string
	StoreKey  string

	// AMQP change notifications (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// PDF export
	ExportDir      string
	GCSBucket      string
	GCSCredentials string // service account file; empty uses default credentials

	// Reference backend
	DevServerPort string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		APIURL:         getEnv("FINSYNC_API_URL", "http://localhost:8090"),
		RequestTimeout: getEnvDuration("FINSYNC_REQUEST_TIMEOUT", 10*time.Second),
		ReadRetries:    getEnvInt("FINSYNC_READ_RETRIES", 2),
		LogoutOn401:    getEnvBool("FINSYNC_LOGOUT_ON_401", true),

		StaleTime:       getEnvDuration("FINSYNC_STALE_TIME", 5*time.Minute),
		GCTime:          getEnvDuration("FINSYNC_GC_TIME", 10*time.Minute),
		CleanupInterval: getEnvDuration("FINSYNC_CLEANUP_INTERVAL", time.Minute),
		MaxEntries:      getEnvInt("FINSYNC_MAX_ENTRIES", 512),

		StorePath: getEnv("FINSYNC_STORE_PATH", ""),
		StoreKey:  getEnv("FINSYNC_STORE_KEY", ""),

		AMQPURL:      getEnv("FINSYNC_AMQP_URL", ""),
		AMQPExchange: getEnv("FINSYNC_AMQP_EXCHANGE", "finsync"),
		AMQPQueue:    getEnv("FINSYNC_AMQP_QUEUE", defaultQueue()),

		ExportDir:      getEnv("FINSYNC_EXPORT_DIR", filepath.Join(os.TempDir(), "finsync")),
		GCSBucket:      getEnv("FINSYNC_GCS_BUCKET", ""),
		GCSCredentials: getEnv("FINSYNC_GCS_CREDENTIALS", ""),

		DevServerPort: getEnv("FINSYNC_DEVSERVER_PORT", "8090"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate API URL
	if parsedURL, err := url.Parse(c.APIURL); err != nil || c.APIURL == "" {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s'", c.APIURL))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.RequestTimeout < time.Second || c.RequestTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be between 1s and 2m", c.RequestTimeout))
	}

	// Reads get at least two retries
	if c.ReadRetries < 2 || c.ReadRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid read retries %d: must be between 2 and 10", c.ReadRetries))
	}

	if c.StaleTime < 0 {
		errors = append(errors, fmt.Sprintf("invalid stale time %v: must not be negative", c.StaleTime))
	}
	if c.GCTime < c.StaleTime {
		errors = append(errors, fmt.Sprintf("invalid GC time %v: must be at least the stale time %v", c.GCTime, c.StaleTime))
	}
	if c.CleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cleanup interval %v: must be at least 1 second", c.CleanupInterval))
	}
	if c.MaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("invalid max entries %d: must be at least 1", c.MaxEntries))
	}

	// Validate credential store configuration if a path is set
	if c.StorePath != "" {
		key, err := hex.DecodeString(c.StoreKey)
		if err != nil || len(key) != 32 {
			errors = append(errors, "store key must be 64 hex characters when a store path is set")
		}
		dir := filepath.Dir(c.StorePath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o700); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create store directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if port, err := strconv.Atoi(c.DevServerPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid dev server port '%s': must be a number", c.DevServerPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid dev server port %d: must be between 1 and 65535", port))
	}

	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// StoreKeyBytes decodes StoreKey. Call after Validate.
func (c *Config) StoreKeyBytes() [32]byte {
	var key [32]byte
	b, _ := hex.DecodeString(c.StoreKey)
	copy(key[:], b)
	return key
}

func defaultQueue() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return "finsync." + host
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
