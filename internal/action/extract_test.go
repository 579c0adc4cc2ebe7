package action_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/taskmaster/internal/action"
	"github.com/kode4food/taskmaster/pkg/api"
)

func TestExtractFromValue(t *testing.T) {
	e, err := action.NewExtract(api.Config{
		"input": "resp",
		"path":  "items.#.name",
	})
	require.NoError(t, err)

	res, err := e.Execute(context.Background(), newContext(map[string]any{
		"resp": map[string]any{
			"items": []any{
				map[string]any{"name": "a"},
				map[string]any{"name": "b"},
			},
		},
	}))
	assert.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, res)
}

func TestExtractFromJSONString(t *testing.T) {
	e, err := action.NewExtract(api.Config{
		"input": "raw",
		"path":  "user.age",
	})
	require.NoError(t, err)

	res, err := e.Execute(context.Background(), newContext(map[string]any{
		"raw": `{"user":{"age":42}}`,
	}))
	assert.NoError(t, err)
	assert.Equal(t, float64(42), res)

	_, err = e.Execute(context.Background(), newContext(map[string]any{
		"raw": "not json",
	}))
	assert.ErrorIs(t, err, action.ErrInvalidOption)
}

func TestExtractMissingPath(t *testing.T) {
	c := newContext(map[string]any{"resp": map[string]any{"a": 1}})

	e, err := action.NewExtract(api.Config{"input": "resp", "path": "b"})
	require.NoError(t, err)
	_, err = e.Execute(context.Background(), c)
	assert.ErrorIs(t, err, action.ErrPathNotFound)

	e, err = action.NewExtract(api.Config{
		"input": "resp", "path": "b", "default": "none",
	})
	require.NoError(t, err)
	res, err := e.Execute(context.Background(), c)
	assert.NoError(t, err)
	assert.Equal(t, "none", res)
}

func TestExtractOptions(t *testing.T) {
	_, err := action.NewExtract(api.Config{"input": "x"})
	assert.ErrorIs(t, err, action.ErrMissingOption)

	_, err = action.NewExtract(api.Config{"path": "a"})
	assert.ErrorIs(t, err, action.ErrMissingOption)
}
