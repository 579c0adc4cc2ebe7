package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/taskmaster/internal/assert/helpers"
	"github.com/kode4food/taskmaster/internal/config"
)

func TestConfigValidation(t *testing.T) {
	t.Run("valid_default_config", func(t *testing.T) {
		assert.NoError(t, config.NewDefaultConfig().Validate())
	})

	t.Run("valid_test_config", func(t *testing.T) {
		assert.NoError(t, helpers.NewTestConfig().Validate())
	})

	tests := []struct {
		name      string
		configMod func(*config.Config)
		err       error
	}{
		{
			name:      "invalid_api_port_zero",
			configMod: func(c *config.Config) { c.APIPort = 0 },
			err:       config.ErrInvalidAPIPort,
		},
		{
			name:      "invalid_api_port_too_high",
			configMod: func(c *config.Config) { c.APIPort = 70000 },
			err:       config.ErrInvalidAPIPort,
		},
		{
			name:      "invalid_log_level",
			configMod: func(c *config.Config) { c.LogLevel = "loud" },
			err:       config.ErrInvalidLogLevel,
		},
		{
			name:      "zero_parallelism",
			configMod: func(c *config.Config) { c.RunParallelism = 0 },
			err:       config.ErrInvalidRunParallelism,
		},
		{
			name:      "zero_event_queue",
			configMod: func(c *config.Config) { c.EventQueueSize = 0 },
			err:       config.ErrInvalidEventQueueSize,
		},
		{
			name:      "negative_redis_db",
			configMod: func(c *config.Config) { c.Redis.DB = -1 },
			err:       config.ErrInvalidRedisDB,
		},
		{
			name:      "zero_http_timeout",
			configMod: func(c *config.Config) { c.HTTPTimeout = 0 },
			err:       config.ErrInvalidHTTPTimeout,
		},
		{
			name:      "zero_shutdown_timeout",
			configMod: func(c *config.Config) { c.ShutdownTimeout = 0 },
			err:       config.ErrInvalidShutdownTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := helpers.NewTestConfig()
			tt.configMod(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.err)
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := config.NewDefaultConfig()

	assert.Equal(t, config.DefaultAPIPort, cfg.APIPort)
	assert.Equal(t, "0.0.0.0", cfg.APIHost)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, config.DefaultRedisEndpoint, cfg.Redis.Addr)
	assert.Equal(t, config.DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestConfigLoadFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(*testing.T, *config.Config)
	}{
		{
			name:    "load_api_port",
			envVars: map[string]string{"API_PORT": "9090"},
			check: func(t *testing.T, c *config.Config) {
				assert.Equal(t, 9090, c.APIPort)
			},
		},
		{
			name: "load_strings",
			envVars: map[string]string{
				"API_HOST":        "127.0.0.1",
				"LOG_LEVEL":       "debug",
				"WORKFLOW_DIR":    "/etc/taskmaster",
				"REDIS_ADDR":      "redis:6379",
				"REDIS_PASSWORD":  "secret",
				"OPENAI_BASE_URL": "http://llm.local/v1",
				"OPENAI_API_KEY":  "key",
			},
			check: func(t *testing.T, c *config.Config) {
				assert.Equal(t, "127.0.0.1", c.APIHost)
				assert.Equal(t, "debug", c.LogLevel)
				assert.Equal(t, "/etc/taskmaster", c.WorkflowDir)
				assert.Equal(t, "redis:6379", c.Redis.Addr)
				assert.Equal(t, "secret", c.Redis.Password)
				assert.Equal(t, "http://llm.local/v1", c.OpenAIBaseURL)
				assert.Equal(t, "key", c.OpenAIAPIKey)
			},
		},
		{
			name: "load_numbers",
			envVars: map[string]string{
				"RUN_PARALLELISM":  "4",
				"EVENT_QUEUE_SIZE": "16",
				"REDIS_DB":         "0",
			},
			check: func(t *testing.T, c *config.Config) {
				assert.Equal(t, 4, c.RunParallelism)
				assert.Equal(t, 16, c.EventQueueSize)
				assert.Equal(t, 0, c.Redis.DB)
			},
		},
		{
			name: "load_timeouts",
			envVars: map[string]string{
				"HTTP_TIMEOUT":     "1500",
				"SHUTDOWN_TIMEOUT": "2000",
			},
			check: func(t *testing.T, c *config.Config) {
				assert.Equal(t, 1500*time.Millisecond, c.HTTPTimeout)
				assert.Equal(t, 2*time.Second, c.ShutdownTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg := config.NewDefaultConfig()
			assert.NoError(t, cfg.LoadFromEnv())
			tt.check(t, cfg)
		})
	}
}

func TestConfigLoadFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"api_port_not_a_number", "API_PORT", "not_a_number"},
		{"api_port_zero", "API_PORT", "0"},
		{"parallelism_negative", "RUN_PARALLELISM", "-2"},
		{"redis_db_too_high", "REDIS_DB", "99"},
		{"http_timeout_zero", "HTTP_TIMEOUT", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			cfg := config.NewDefaultConfig()
			err := cfg.LoadFromEnv()
			assert.ErrorIs(t, err, config.ErrInvalidEnv)
			assert.ErrorContains(t, err, tt.key)
		})
	}
}
