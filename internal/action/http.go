package action

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kode4food/taskmaster/internal/client"
	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
)

// HTTP calls an endpoint and returns its status code and decoded body
type HTTP struct {
	client       client.Client
	data         any
	headers      map[string]string
	url          string
	method       string
	responseType string
	input        input
}

var _ workflow.Executor = (*HTTP)(nil)

// NewHTTP creates an HTTP action. The request body is the context value
// named by `input` when set, otherwise the static `data` option
func NewHTTP(cl client.Client, cfg api.Config) (*HTTP, error) {
	url, err := requireString(cfg, "url")
	if err != nil {
		return nil, err
	}
	in := inputFrom(cfg)
	method := http.MethodGet
	if in.isSet() || cfg.Has("data") {
		method = http.MethodPost
	}
	res := &HTTP{
		client:       cl,
		url:          url,
		method:       cfg.String("method", method),
		headers:      cfg.StringMap("headers"),
		data:         cfg["data"],
		responseType: cfg.String("response_type", client.ResponseJSON),
		input:        in,
	}
	switch res.responseType {
	case client.ResponseJSON, client.ResponseText:
		return res, nil
	default:
		return nil, fmt.Errorf("%w: %s",
			client.ErrUnknownResponse, res.responseType)
	}
}

func (h *HTTP) Execute(ctx context.Context, c *workflow.Context) (any, error) {
	body := h.data
	if h.input.isSet() {
		in, err := h.input.get(c)
		if err != nil {
			return nil, err
		}
		body = in
	}

	resp, err := h.client.Do(ctx, &client.Request{
		URL:     h.url,
		Method:  h.method,
		Headers: h.headers,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	data, err := resp.Decode(h.responseType)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status_code": resp.StatusCode,
		"data":        data,
	}, nil
}
