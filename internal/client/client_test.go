package client_test

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

	"github.com/kode4food/taskmaster/internal/client"
)

func TestNewHTTPClient(t *testing.T) {
	c := client.NewHTTPClient(30 * time.Second)
	assert.NotNil(t, c)
}

func TestJSONRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "Taskmaster/1.0", r.Header.Get("User-Agent"))
			assert.Equal(t, "abc", r.Header.Get("X-Key"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "value", body["input"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":"ok","count":2}`))
		},
	))
	defer server.Close()

	cl := client.NewHTTPClient(5 * time.Second)
	resp, err := cl.Do(context.Background(), &client.Request{
		Method:  "post",
		URL:     server.URL,
		Headers: map[string]string{"X-Key": "abc"},
		Body:    map[string]any{"input": "value"},
	})
	require.NoError(t, err)
	assert.NoError(t, resp.Err())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	decoded, err := resp.Decode(client.ResponseJSON)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": "ok", "count": 2.0}, decoded)
}

func TestTextRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			body, _ := io.ReadAll(r.Body)
			assert.Empty(t, body)
			_, _ = w.Write([]byte("plain"))
		},
	))
	defer server.Close()

	cl := client.Wrap(server.Client())
	resp, err := cl.Do(context.Background(), &client.Request{URL: server.URL})
	require.NoError(t, err)

	text, err := resp.Decode(client.ResponseText)
	require.NoError(t, err)
	assert.Equal(t, "plain", text)

	_, err = resp.Decode(client.ResponseJSON)
	assert.Error(t, err)

	_, err = resp.Decode("binary")
	assert.ErrorIs(t, err, client.ErrUnknownResponse)
}

func TestStringBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "raw body", string(body))
			w.WriteHeader(http.StatusNoContent)
		},
	))
	defer server.Close()

	cl := client.NewHTTPClient(5 * time.Second)
	resp, err := cl.Do(context.Background(), &client.Request{
		Method: "PUT",
		URL:    server.URL,
		Body:   "raw body",
	})
	require.NoError(t, err)

	decoded, err := resp.Decode(client.ResponseJSON)
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("Internal Server Error"))
		},
	))
	defer server.Close()

	cl := client.NewHTTPClient(5 * time.Second)
	resp, err := cl.Do(context.Background(), &client.Request{URL: server.URL})
	require.NoError(t, err)
	assert.ErrorIs(t, resp.Err(), client.ErrHTTPError)
	assert.Contains(t, resp.Err().Error(), "500")
}

func TestMissingURL(t *testing.T) {
	cl := client.NewHTTPClient(5 * time.Second)
	_, err := cl.Do(context.Background(), &client.Request{})
	assert.ErrorIs(t, err, client.ErrMissingURL)
}

func TestConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(http.ResponseWriter, *http.Request) {},
	))
	url := server.URL
	server.Close()

	cl := client.NewHTTPClient(time.Second)
	_, err := cl.Do(context.Background(), &client.Request{URL: url})
	assert.Error(t, err)
}
