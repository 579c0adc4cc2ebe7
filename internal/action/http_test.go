package action_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/taskmaster/internal/action"
	"github.com/kode4food/taskmaster/internal/client"
	"github.com/kode4food/taskmaster/pkg/api"
)

func TestHTTPGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[1,2,3]}`))
		},
	))
	defer server.Close()

	h, err := action.NewHTTP(client.NewHTTPClient(time.Second), api.Config{
		"url":     server.URL,
		"headers": map[string]any{"X-Api-Key": "secret"},
	})
	require.NoError(t, err)

	res, err := h.Execute(context.Background(), newContext(nil))
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{
		"status_code": http.StatusOK,
		"data":        map[string]any{"items": []any{1.0, 2.0, 3.0}},
	}, res)
}

func TestHTTPPostsInput(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &got)
			_, _ = w.Write([]byte("accepted"))
		},
	))
	defer server.Close()

	h, err := action.NewHTTP(client.NewHTTPClient(time.Second), api.Config{
		"url":           server.URL,
		"input":         "record",
		"response_type": "text",
	})
	require.NoError(t, err)

	res, err := h.Execute(context.Background(), newContext(map[string]any{
		"record": map[string]any{"id": "r1"},
	}))
	assert.NoError(t, err)
	assert.Equal(t, "accepted", res.(map[string]any)["data"])
	assert.Equal(t, map[string]any{"id": "r1"}, got)
}

func TestHTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
	))
	defer server.Close()

	h, err := action.NewHTTP(client.NewHTTPClient(time.Second), api.Config{
		"url": server.URL,
	})
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), newContext(nil))
	assert.ErrorIs(t, err, client.ErrHTTPError)
}

func TestHTTPOptions(t *testing.T) {
	cl := client.NewHTTPClient(time.Second)

	_, err := action.NewHTTP(cl, api.Config{})
	assert.ErrorIs(t, err, action.ErrMissingOption)

	_, err = action.NewHTTP(cl, api.Config{
		"url":           "http://localhost",
		"response_type": "binary",
	})
	assert.ErrorIs(t, err, client.ErrUnknownResponse)
}
