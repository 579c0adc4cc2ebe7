package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type (
	// Client performs outbound HTTP requests for actions and triggers
	Client interface {
		Do(context.Context, *Request) (*Response, error)
	}

	// Request describes an outbound call. A string or []byte Body is sent
	// as-is; any other non-nil Body is encoded as JSON
	Request struct {
		Body    any
		Headers map[string]string
		Method  string
		URL     string
	}

	// Response is a fully read HTTP response
	Response struct {
		Header     http.Header
		Body       []byte
		StatusCode int
	}

	HTTPClient struct {
		httpClient *http.Client
		timeout    time.Duration
	}
)

const (
	ResponseJSON = "json"
	ResponseText = "text"

	userAgent = "Taskmaster/1.0"
)

var (
	ErrHTTPError       = errors.New("request returned HTTP error")
	ErrMissingURL      = errors.New("request has no URL")
	ErrUnknownResponse = errors.New("unknown response type")
)

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Wrap adapts an existing http.Client, such as one returned by an
// httptest server
func Wrap(c *http.Client) *HTTPClient {
	return &HTTPClient{
		httpClient: c,
		timeout:    c.Timeout,
	}
}

func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.URL == "" {
		return nil, ErrMissingURL
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		slog.Error("Failed to encode request body",
			slog.String("url", req.URL),
			slog.Any("error", err))
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		slog.Error("Failed to create HTTP request",
			slog.String("url", req.URL),
			slog.Any("error", err))
		return nil, err
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	dur := time.Since(start)

	if err != nil {
		slog.Error("HTTP request failed",
			slog.String("url", req.URL),
			slog.Duration("duration", dur),
			slog.Any("error", err))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Failed to read response body",
			slog.String("url", req.URL),
			slog.Any("error", err))
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// Err returns ErrHTTPError for 4xx and 5xx responses
func (r *Response) Err() error {
	if r.StatusCode < http.StatusBadRequest {
		return nil
	}
	return fmt.Errorf("%w: HTTP %d", ErrHTTPError, r.StatusCode)
}

// Decode interprets the body as JSON or text
func (r *Response) Decode(responseType string) (any, error) {
	switch responseType {
	case "", ResponseJSON:
		if len(bytes.TrimSpace(r.Body)) == 0 {
			return nil, nil
		}
		var res any
		if err := json.Unmarshal(r.Body, &res); err != nil {
			return nil, err
		}
		return res, nil
	case ResponseText:
		return string(r.Body), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownResponse, responseType)
	}
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(b), "text/plain", nil
	case []byte:
		return bytes.NewReader(b), "application/octet-stream", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}
