package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/taskmaster/internal/trigger"
	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

func (s *Server) handleWebhook(c *gin.Context) {
	endpointID := c.Param("endpointID")

	data, err := webhookData(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	req := &trigger.WebhookRequest{
		Method:  c.Request.Method,
		Data:    data,
		Headers: webhookHeaders(c.Request.Header),
		Token:   trigger.TokenFromHeaders(c.GetHeader),
	}
	if err := s.webhooks.Deliver(endpointID, req); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, trigger.ErrEndpointNotFound):
			status = http.StatusNotFound
		case errors.Is(err, trigger.ErrUnauthorized):
			status = http.StatusUnauthorized
		}
		slog.Warn("Webhook rejected",
			slog.String("endpoint_id", endpointID),
			log.Error(err))
		c.JSON(status, api.ErrorResponse{
			Error:  err.Error(),
			Status: status,
		})
		return
	}

	c.JSON(http.StatusOK, api.WebhookResponse{
		Status:     "success",
		Message:    "Webhook received",
		EndpointID: endpointID,
	})
}

// webhookData decodes the request body as JSON when it is JSON, keeps it
// as a string otherwise, and falls back to the query parameters for
// requests without a body
func webhookData(c *gin.Context) (any, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		res := map[string]any{}
		for k, v := range c.Request.URL.Query() {
			if len(v) > 0 {
				res[k] = v[0]
			}
		}
		return res, nil
	}
	var res any
	if err := json.Unmarshal(body, &res); err != nil {
		return string(body), nil
	}
	return res, nil
}

func webhookHeaders(h http.Header) map[string]string {
	res := make(map[string]string, len(h))
	for k := range h {
		res[k] = h.Get(k)
	}
	return res
}
