package trigger_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/taskmaster/internal/trigger"
	"github.com/kode4food/taskmaster/pkg/api"
)

func TestFileTriggerCreated(t *testing.T) {
	dir := t.TempDir()
	tr, err := trigger.NewFile("files", api.Config{
		"path":            dir,
		"patterns":        []any{"*.csv"},
		"ignore_patterns": "skip_*",
		"event_types":     []any{"created"},
	})
	require.NoError(t, err)
	assert.Equal(t, trigger.KindFile, tr.Kind())
	fired := collect(tr)

	require.NoError(t, tr.Activate())
	defer tr.Deactivate()

	write := func(name string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("a,b\n"), 0o644))
		return p
	}
	write("notes.txt")
	write("skip_me.csv")
	want := write("data.csv")

	data := receive(t, fired)
	assert.Equal(t, "created", data["event_type"])
	assert.Equal(t, want, data["path"])
	assert.Equal(t, false, data["is_directory"])

	select {
	case extra := <-fired:
		t.Fatalf("unexpected event: %v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFileTriggerRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))

	tr, err := trigger.NewFile("files", api.Config{
		"path":               dir,
		"ignore_directories": true,
		"event_types":        []any{"created"},
	})
	require.NoError(t, err)
	fired := collect(tr)

	require.NoError(t, tr.Activate())
	defer tr.Deactivate()

	p := filepath.Join(sub, "inner.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	data := receive(t, fired)
	assert.Equal(t, p, data["path"])
}

func TestFileTriggerDebounce(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "log.txt")
	require.NoError(t, os.WriteFile(p, []byte("start"), 0o644))

	tr, err := trigger.NewFile("files", api.Config{
		"path":              dir,
		"event_types":       []any{"modified"},
		"debounce_interval": "1m",
	})
	require.NoError(t, err)
	fired := collect(tr)

	require.NoError(t, tr.Activate())
	defer tr.Deactivate()

	for i := range 3 {
		f, err := os.OpenFile(p, os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString(string(rune('a' + i)))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	data := receive(t, fired)
	assert.Equal(t, "modified", data["event_type"])

	select {
	case extra := <-fired:
		t.Fatalf("debounced event delivered: %v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFileTriggerErrors(t *testing.T) {
	_, err := trigger.NewFile("files", api.Config{
		"event_types": []any{"renamed"},
	})
	assert.ErrorIs(t, err, trigger.ErrInvalidCondition)

	tr, err := trigger.NewFile("files", api.Config{
		"path": filepath.Join(t.TempDir(), "missing"),
	})
	require.NoError(t, err)
	assert.Error(t, tr.Activate())
	assert.False(t, tr.IsActive())
	tr.Deactivate()
}
