package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kode4food/taskmaster/internal/client"
	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

// API polls an HTTP endpoint and fires when the configured condition holds
// for the response
type API struct {
	*Base
	poller
	client       client.Client
	cond         *condition
	data         any
	headers      map[string]string
	url          string
	method       string
	responseType string
	interval     time.Duration
}

// NewAPI creates a polling trigger for the "url" option
func NewAPI(name string, cfg api.Config, cl client.Client) (*API, error) {
	url := cfg.String("url", "")
	if url == "" {
		return nil, fmt.Errorf("%w: url", ErrMissingOption)
	}
	cond, err := newCondition(cfg,
		ConditionAnyChange, ConditionSpecificValue, ConditionPath,
	)
	if err != nil {
		return nil, err
	}
	res := &API{
		Base:         NewBase(KindAPI, name, cfg),
		client:       cl,
		cond:         cond,
		url:          url,
		method:       cfg.String("method", "GET"),
		headers:      cfg.StringMap("headers"),
		data:         cfg["data"],
		responseType: cfg.String("response_type", client.ResponseJSON),
		interval:     cfg.Duration("interval", defaultPollInterval),
	}
	res.bind(res)
	return res, nil
}

// Activate starts polling. The first poll happens immediately
func (a *API) Activate() error {
	if !a.markActive() {
		return nil
	}
	a.start(a.ID(), a.interval, a.poll)
	slog.Info("Trigger activated",
		log.TriggerID(a.ID()),
		slog.String("kind", a.Kind()),
		slog.String("url", a.url))
	return nil
}

// Deactivate stops polling and waits for an in-flight poll to return
func (a *API) Deactivate() {
	if !a.markInactive() {
		return
	}
	a.stop()
	slog.Info("Trigger deactivated", log.TriggerID(a.ID()))
}

func (a *API) poll(ctx context.Context) error {
	resp, err := a.client.Do(ctx, &client.Request{
		Method:  a.method,
		URL:     a.url,
		Headers: a.headers,
		Body:    a.data,
	})
	if err != nil {
		return err
	}
	data, err := resp.Decode(a.responseType)
	if err != nil {
		return err
	}
	obs, err := newObservation(data, 1)
	if err != nil {
		return err
	}
	if !a.cond.check(obs) || !a.IsActive() {
		return nil
	}
	a.Fire(api.EventData{
		"url":         a.url,
		"response":    data,
		"status_code": resp.StatusCode,
		"time":        time.Now().Unix(),
	})
	return nil
}
