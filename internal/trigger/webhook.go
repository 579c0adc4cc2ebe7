package trigger

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

type (
	// Webhook fires when an HTTP request is delivered to its endpoint
	// through a WebhookHub
	Webhook struct {
		*Base
		hub         *WebhookHub
		endpointID  string
		authToken   string
		requireAuth bool
	}

	// WebhookHub routes inbound webhook requests to the active webhook
	// trigger registered for each endpoint
	WebhookHub struct {
		endpoints map[string]*Webhook
		mu        sync.RWMutex
	}

	// WebhookRequest is an inbound request as seen by a webhook trigger
	WebhookRequest struct {
		Data    any
		Headers map[string]string
		Method  string
		Token   string
	}
)

// NewWebhookHub creates an empty hub
func NewWebhookHub() *WebhookHub {
	return &WebhookHub{
		endpoints: map[string]*Webhook{},
	}
}

// NewWebhook creates a webhook trigger. Without an "endpoint_id" option, a
// random endpoint is assigned
func NewWebhook(name string, cfg api.Config, hub *WebhookHub) (*Webhook, error) {
	w := &Webhook{
		Base:        NewBase(KindWebhook, name, cfg),
		hub:         hub,
		endpointID:  cfg.String("endpoint_id", ""),
		requireAuth: cfg.Bool("require_auth", false),
		authToken:   cfg.String("auth_token", ""),
	}
	w.bind(w)
	if w.endpointID == "" {
		w.endpointID = string(api.NewTriggerID())
	}
	if w.requireAuth && w.authToken == "" {
		return nil, fmt.Errorf("%w: auth_token", ErrMissingOption)
	}
	return w, nil
}

// EndpointID returns the path segment the webhook listens on
func (w *Webhook) EndpointID() string {
	return w.endpointID
}

// Activate registers the endpoint with the hub
func (w *Webhook) Activate() error {
	if !w.markActive() {
		return nil
	}
	if err := w.hub.register(w); err != nil {
		w.markInactive()
		return err
	}
	slog.Info("Trigger activated",
		log.TriggerID(w.ID()),
		slog.String("kind", w.Kind()),
		slog.String("endpoint_id", w.endpointID))
	return nil
}

// Deactivate removes the endpoint from the hub
func (w *Webhook) Deactivate() {
	if !w.markInactive() {
		return
	}
	w.hub.unregister(w)
	slog.Info("Trigger deactivated", log.TriggerID(w.ID()))
}

func (w *Webhook) authorized(token string) bool {
	if !w.requireAuth {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(w.authToken)) == 1
}

// Deliver fires the webhook registered for endpointID. The firing runs on
// the caller's goroutine
func (h *WebhookHub) Deliver(endpointID string, req *WebhookRequest) error {
	h.mu.RLock()
	w, ok := h.endpoints[endpointID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrEndpointNotFound, endpointID)
	}
	if !w.authorized(req.Token) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, endpointID)
	}
	w.Fire(api.EventData{
		"method":      req.Method,
		"endpoint_id": endpointID,
		"data":        req.Data,
		"headers":     req.Headers,
		"time":        time.Now().Unix(),
	})
	return nil
}

// Endpoints returns the registered endpoint ids in ascending order
func (h *WebhookHub) Endpoints() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Sorted(maps.Keys(h.endpoints))
}

func (h *WebhookHub) register(w *Webhook) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if other, ok := h.endpoints[w.endpointID]; ok && other != w {
		return fmt.Errorf("%w: %s", ErrEndpointInUse, w.endpointID)
	}
	h.endpoints[w.endpointID] = w
	return nil
}

func (h *WebhookHub) unregister(w *Webhook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.endpoints[w.endpointID] == w {
		delete(h.endpoints, w.endpointID)
	}
}

// TokenFromHeaders extracts a webhook token from a bearer Authorization
// header or an X-Webhook-Token header
func TokenFromHeaders(get func(string) string) string {
	if auth := get("Authorization"); auth != "" {
		if tok, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return tok
		}
	}
	return get("X-Webhook-Token")
}
