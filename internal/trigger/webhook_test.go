package trigger_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/taskmaster/internal/trigger"
	"github.com/kode4food/taskmaster/pkg/api"
)

func TestWebhookDeliver(t *testing.T) {
	hub := trigger.NewWebhookHub()
	w, err := trigger.NewWebhook("hook", api.Config{
		"endpoint_id": "orders",
	}, hub)
	require.NoError(t, err)
	assert.Equal(t, "orders", w.EndpointID())
	fired := collect(w)

	err = hub.Deliver("orders", &trigger.WebhookRequest{Method: "POST"})
	assert.ErrorIs(t, err, trigger.ErrEndpointNotFound)

	require.NoError(t, w.Activate())
	assert.Equal(t, []string{"orders"}, hub.Endpoints())

	err = hub.Deliver("orders", &trigger.WebhookRequest{
		Method:  "POST",
		Data:    map[string]any{"id": 7},
		Headers: map[string]string{"Content-Type": "application/json"},
	})
	require.NoError(t, err)

	data := receive(t, fired)
	assert.Equal(t, "POST", data["method"])
	assert.Equal(t, "orders", data["endpoint_id"])
	assert.Equal(t, map[string]any{"id": 7}, data["data"])

	w.Deactivate()
	assert.Empty(t, hub.Endpoints())
	err = hub.Deliver("orders", &trigger.WebhookRequest{})
	assert.ErrorIs(t, err, trigger.ErrEndpointNotFound)
}

func TestWebhookAuth(t *testing.T) {
	hub := trigger.NewWebhookHub()
	w, err := trigger.NewWebhook("secure", api.Config{
		"endpoint_id":  "secure",
		"require_auth": true,
		"auth_token":   "s3cret",
	}, hub)
	require.NoError(t, err)
	fired := collect(w)
	require.NoError(t, w.Activate())
	defer w.Deactivate()

	err = hub.Deliver("secure", &trigger.WebhookRequest{Token: "wrong"})
	assert.ErrorIs(t, err, trigger.ErrUnauthorized)
	assert.Empty(t, fired)

	err = hub.Deliver("secure", &trigger.WebhookRequest{Token: "s3cret"})
	require.NoError(t, err)
	receive(t, fired)

	_, err = trigger.NewWebhook("bad", api.Config{"require_auth": true}, hub)
	assert.ErrorIs(t, err, trigger.ErrMissingOption)
}

func TestWebhookEndpointInUse(t *testing.T) {
	hub := trigger.NewWebhookHub()
	cfg := api.Config{"endpoint_id": "shared"}
	first, err := trigger.NewWebhook("first", cfg, hub)
	require.NoError(t, err)
	second, err := trigger.NewWebhook("second", cfg, hub)
	require.NoError(t, err)

	require.NoError(t, first.Activate())
	defer first.Deactivate()

	assert.ErrorIs(t, second.Activate(), trigger.ErrEndpointInUse)
	assert.False(t, second.IsActive())

	second.Deactivate()
	assert.Equal(t, []string{"shared"}, hub.Endpoints())
}

func TestWebhookGeneratedEndpoint(t *testing.T) {
	w, err := trigger.NewWebhook("", nil, trigger.NewWebhookHub())
	require.NoError(t, err)
	assert.NotEmpty(t, w.EndpointID())
	assert.Contains(t, w.Name(), "webhook_")
}

func TestTokenFromHeaders(t *testing.T) {
	h := http.Header{}
	assert.Empty(t, trigger.TokenFromHeaders(h.Get))

	h.Set("X-Webhook-Token", "header")
	assert.Equal(t, "header", trigger.TokenFromHeaders(h.Get))

	h.Set("Authorization", "Bearer bearer")
	assert.Equal(t, "bearer", trigger.TokenFromHeaders(h.Get))

	h.Set("Authorization", "Basic abc")
	assert.Equal(t, "header", trigger.TokenFromHeaders(h.Get))
}
