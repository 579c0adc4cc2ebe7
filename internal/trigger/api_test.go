package trigger_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/taskmaster/internal/client"
	"github.com/kode4food/taskmaster/internal/trigger"
	"github.com/kode4food/taskmaster/pkg/api"
)

func counterServer(t *testing.T, body func(n int32) string) *httptest.Server {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "token", r.Header.Get("X-Token"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body(calls.Add(1))))
		},
	))
	t.Cleanup(server.Close)
	return server
}

func newAPITrigger(
	t *testing.T, url string, cfg api.Config,
) *trigger.API {
	t.Helper()
	cfg["url"] = url
	cfg["interval"] = "10ms"
	cfg["headers"] = map[string]any{"X-Token": "token"}
	tr, err := trigger.NewAPI("poll", cfg, client.NewHTTPClient(time.Second))
	require.NoError(t, err)
	return tr
}

func TestAPITriggerAnyChange(t *testing.T) {
	server := counterServer(t, func(n int32) string {
		if n < 3 {
			return `{"version":1}`
		}
		return `{"version":2}`
	})
	tr := newAPITrigger(t, server.URL, api.Config{})
	fired := collect(tr)

	require.NoError(t, tr.Activate())
	defer tr.Deactivate()

	data := receive(t, fired)
	assert.Equal(t, server.URL, data["url"])
	assert.Equal(t, http.StatusOK, data["status_code"])
	assert.Equal(t, map[string]any{"version": 2.0}, data["response"])
}

func TestAPITriggerSpecificValue(t *testing.T) {
	server := counterServer(t, func(n int32) string {
		if n == 2 {
			return `{"state":"ready"}`
		}
		return `{"state":"waiting"}`
	})
	tr := newAPITrigger(t, server.URL, api.Config{
		"trigger_condition": "specific_value",
		"condition_value":   map[string]any{"state": "ready"},
	})
	fired := collect(tr)

	require.NoError(t, tr.Activate())
	defer tr.Deactivate()

	data := receive(t, fired)
	assert.Equal(t, map[string]any{"state": "ready"}, data["response"])
}

func TestAPITriggerPathCondition(t *testing.T) {
	server := counterServer(t, func(n int32) string {
		if n >= 2 {
			return `{"jobs":[{"done":true}]}`
		}
		return `{"jobs":[]}`
	})
	tr := newAPITrigger(t, server.URL, api.Config{
		"trigger_condition": "path",
		"path":              "jobs.#(done==true)",
	})
	fired := collect(tr)

	require.NoError(t, tr.Activate())
	defer tr.Deactivate()

	data := receive(t, fired)
	assert.NotNil(t, data["response"])
}

func TestAPITriggerSurvivesErrors(t *testing.T) {
	server := counterServer(t, func(n int32) string {
		switch n {
		case 1:
			return `not json`
		case 2:
			return `{"v":1}`
		default:
			return `{"v":2}`
		}
	})
	tr := newAPITrigger(t, server.URL, api.Config{})
	fired := collect(tr)

	require.NoError(t, tr.Activate())
	defer tr.Deactivate()

	data := receive(t, fired)
	assert.Equal(t, map[string]any{"v": 2.0}, data["response"])
}

func TestAPITriggerConfigErrors(t *testing.T) {
	cl := client.NewHTTPClient(time.Second)
	_, err := trigger.NewAPI("poll", api.Config{}, cl)
	assert.ErrorIs(t, err, trigger.ErrMissingOption)

	_, err = trigger.NewAPI("poll", api.Config{
		"url":               "http://localhost",
		"trigger_condition": "row_count_change",
	}, cl)
	assert.ErrorIs(t, err, trigger.ErrInvalidCondition)

	_, err = trigger.NewAPI("poll", api.Config{
		"url":               "http://localhost",
		"trigger_condition": "jmespath",
	}, cl)
	assert.ErrorIs(t, err, trigger.ErrMissingOption)
}
