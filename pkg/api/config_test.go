package api_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/taskmaster/pkg/api"
)

func TestConfigNumbers(t *testing.T) {
	cfg := api.Config{
		"yaml": 5,
		"json": 5.0,
		"str":  "7",
		"bad":  "seven",
	}

	assert.Equal(t, 5, cfg.Int("yaml", 0))
	assert.Equal(t, 5, cfg.Int("json", 0))
	assert.Equal(t, 7, cfg.Int("str", 0))
	assert.Equal(t, 3, cfg.Int("bad", 3))
	assert.Equal(t, 3, cfg.Int("missing", 3))
	assert.Equal(t, 5.0, cfg.Float("yaml", 0))
}

func TestConfigDuration(t *testing.T) {
	cfg := api.Config{
		"secs":   2,
		"frac":   0.5,
		"go":     "150ms",
		"broken": "soon",
	}

	assert.Equal(t, 2*time.Second, cfg.Duration("secs", 0))
	assert.Equal(t, 500*time.Millisecond, cfg.Duration("frac", 0))
	assert.Equal(t, 150*time.Millisecond, cfg.Duration("go", 0))
	assert.Equal(t, time.Minute, cfg.Duration("broken", time.Minute))
	assert.Equal(t, time.Minute, cfg.Duration("missing", time.Minute))
}

func TestConfigStrings(t *testing.T) {
	cfg := api.Config{
		"one":  "*.txt",
		"many": []any{"*.txt", "*.md"},
		"none": 42,
	}

	assert.Equal(t, []string{"*.txt"}, cfg.Strings("one"))
	assert.Equal(t, []string{"*.txt", "*.md"}, cfg.Strings("many"))
	assert.Nil(t, cfg.Strings("none"))
	assert.Nil(t, cfg.Strings("missing"))
}

func TestConfigMaps(t *testing.T) {
	cfg := api.Config{
		"headers": map[string]any{"X-Count": 3, "Accept": "text/plain"},
		"loose":   map[any]any{"a": 1},
		"scalar":  "x",
	}

	assert.Equal(t, map[string]string{
		"X-Count": "3",
		"Accept":  "text/plain",
	}, cfg.StringMap("headers"))
	assert.Equal(t, map[string]any{"a": 1}, cfg.Map("loose"))
	assert.Nil(t, cfg.Map("scalar"))
	assert.Nil(t, cfg.StringMap("missing"))
}

func TestConfigScalars(t *testing.T) {
	cfg := api.Config{
		"flag":  true,
		"text":  "true",
		"name":  "hello",
		"count": 12,
		"nil":   nil,
	}

	assert.True(t, cfg.Bool("flag", false))
	assert.True(t, cfg.Bool("text", false))
	assert.False(t, cfg.Bool("missing", false))
	assert.Equal(t, "hello", cfg.String("name", ""))
	assert.Equal(t, "12", cfg.String("count", ""))
	assert.Equal(t, "dflt", cfg.String("nil", "dflt"))
	assert.True(t, cfg.Has("nil"))
	assert.False(t, cfg.Has("missing"))
}
