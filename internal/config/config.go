package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds configuration settings for the taskmaster service
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Workflows
		WorkflowDir    string
		RunParallelism int
		EventQueueSize int

		// Redis (db trigger and redis action)
		Redis RedisConfig

		// Outbound calls
		HTTPTimeout   time.Duration
		OpenAIBaseURL string
		OpenAIAPIKey  string

		ShutdownTimeout time.Duration
	}

	// RedisConfig locates the Redis server used by db triggers and redis
	// actions
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}
)

const (
	DefaultAPIPort         = 8080
	DefaultAPIHost         = "0.0.0.0"
	DefaultLogLevel        = "info"
	DefaultWorkflowDir     = "workflows"
	DefaultRunParallelism  = 1
	DefaultEventQueueSize  = 1024
	DefaultRedisEndpoint   = "localhost:6379"
	DefaultRedisDB         = 0
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	MaxTCPPort        = 65535
	MaxRedisDB        = 15
	MaxRunParallelism = 1024
	MaxEventQueueSize = 1_000_000
	MaxTimeoutMillis  = 24 * 60 * 60 * 1000
)

var (
	ErrInvalidAPIPort         = errors.New("invalid API port")
	ErrInvalidLogLevel        = errors.New("invalid log level")
	ErrInvalidRunParallelism  = errors.New("run parallelism must be positive")
	ErrInvalidEventQueueSize  = errors.New("event queue size must be positive")
	ErrInvalidHTTPTimeout     = errors.New("HTTP timeout must be positive")
	ErrInvalidShutdownTimeout = errors.New(
		"shutdown timeout must be positive",
	)
	ErrInvalidRedisDB = errors.New("invalid redis database")
	ErrInvalidEnv     = errors.New("invalid environment variable")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// API server, workflow loading, and outbound clients
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:        DefaultAPIHost,
		APIPort:        DefaultAPIPort,
		LogLevel:       DefaultLogLevel,
		WorkflowDir:    DefaultWorkflowDir,
		RunParallelism: DefaultRunParallelism,
		EventQueueSize: DefaultEventQueueSize,
		Redis: RedisConfig{
			Addr: DefaultRedisEndpoint,
			DB:   DefaultRedisDB,
		},
		HTTPTimeout:     DefaultHTTPTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any numeric env var cannot be parsed or is out of range
func (c *Config) LoadFromEnv() error {
	loadEnvString("API_HOST", &c.APIHost)
	loadEnvString("LOG_LEVEL", &c.LogLevel)
	loadEnvString("WORKFLOW_DIR", &c.WorkflowDir)
	loadEnvString("REDIS_ADDR", &c.Redis.Addr)
	loadEnvString("REDIS_PASSWORD", &c.Redis.Password)
	loadEnvString("OPENAI_BASE_URL", &c.OpenAIBaseURL)
	loadEnvString("OPENAI_API_KEY", &c.OpenAIAPIKey)

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RUN_PARALLELISM", &c.RunParallelism, 0, MaxRunParallelism,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"EVENT_QUEUE_SIZE", &c.EventQueueSize, 0, MaxEventQueueSize,
	); err != nil {
		return err
	}
	if err := loadEnvInt("REDIS_DB", &c.Redis.DB, -1, MaxRedisDB); err != nil {
		return err
	}
	if err := loadEnvMillis("HTTP_TIMEOUT", &c.HTTPTimeout); err != nil {
		return err
	}
	return loadEnvMillis("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, c.LogLevel)
	}

	if c.RunParallelism <= 0 {
		return ErrInvalidRunParallelism
	}

	if c.EventQueueSize <= 0 {
		return ErrInvalidEventQueueSize
	}

	if c.Redis.DB < 0 || c.Redis.DB > MaxRedisDB {
		return fmt.Errorf("%w: %d", ErrInvalidRedisDB, c.Redis.DB)
	}

	if c.HTTPTimeout <= 0 {
		return ErrInvalidHTTPTimeout
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// Addr returns the host:port the API server listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

func loadEnvString(key string, dst *string) {
	if s := os.Getenv(key); s != "" {
		*dst = s
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]. Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s: %q", ErrInvalidEnv, key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("%w: %s: %d out of range [%d, %d]",
			ErrInvalidEnv, key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

func loadEnvMillis(key string, dst *time.Duration) error {
	ms := int64(*dst / time.Millisecond)
	if err := loadEnvInt(key, &ms, 0, MaxTimeoutMillis); err != nil {
		return err
	}
	*dst = time.Duration(ms) * time.Millisecond
	return nil
}
