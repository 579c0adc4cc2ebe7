package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/taskmaster/internal/loader"
	"github.com/kode4food/taskmaster/internal/runner"
	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

var (
	ErrInvalidJSON      = errors.New("invalid JSON request")
	ErrInvalidDocument  = errors.New("invalid workflow document")
	ErrRegisterWorkflow = errors.New("failed to register workflow")
)

func (s *Server) listWorkflows(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.List())
}

func (s *Server) createWorkflow(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.badRequest(c, fmt.Errorf("%w: %v", ErrInvalidDocument, err))
		return
	}

	doc, err := loader.Parse(body, documentFormat(c))
	if err != nil {
		s.badRequest(c, fmt.Errorf("%w: %v", ErrInvalidDocument, err))
		return
	}

	wf, err := s.registry.Build(doc)
	if err != nil {
		s.badRequest(c, fmt.Errorf("%w: %v", ErrInvalidDocument, err))
		return
	}

	if err := s.runner.Register(wf); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, runner.ErrWorkflowExists) {
			status = http.StatusConflict
		}
		c.JSON(status, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrRegisterWorkflow, err),
			Status: status,
		})
		return
	}

	c.JSON(http.StatusCreated, api.RegisterResponse{
		ID:   wf.ID(),
		Name: wf.Name(),
	})
}

func (s *Server) getWorkflow(c *gin.Context) {
	st, err := s.runner.Status(workflowID(c))
	if err != nil {
		s.runnerError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) deleteWorkflow(c *gin.Context) {
	if err := s.runner.Unregister(workflowID(c)); err != nil {
		s.runnerError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) runWorkflow(c *gin.Context) {
	id := workflowID(c)
	data, err := readEventData(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	res, err := s.runner.RunNow(c.Request.Context(), id, data)
	if errors.Is(err, runner.ErrWorkflowNotFound) {
		s.runnerError(c, err)
		return
	}

	st, stErr := s.runner.Status(id)
	if stErr != nil {
		s.runnerError(c, stErr)
		return
	}
	resp := api.RunResponse{
		Context: res.Snapshot(),
		Status:  st,
	}
	if err != nil {
		slog.Warn("Workflow run reported an error",
			log.WorkflowID(id),
			log.Error(err))
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) enqueueWorkflow(c *gin.Context) {
	data, err := readEventData(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	if err := s.runner.Enqueue(workflowID(c), data); err != nil {
		s.runnerError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) startWorkflow(c *gin.Context) {
	id := workflowID(c)
	if err := s.runner.Start(id); err != nil {
		s.runnerError(c, err)
		return
	}
	s.getWorkflow(c)
}

func (s *Server) stopWorkflow(c *gin.Context) {
	if err := s.runner.Stop(workflowID(c)); err != nil {
		s.runnerError(c, err)
		return
	}
	s.getWorkflow(c)
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, api.ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusBadRequest,
	})
}

func (s *Server) runnerError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, runner.ErrWorkflowNotFound):
		status = http.StatusNotFound
	case errors.Is(err, runner.ErrQueueFull):
		status = http.StatusTooManyRequests
	case errors.Is(err, runner.ErrRunnerClosed):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, api.ErrorResponse{
		Error:  err.Error(),
		Status: status,
	})
}

func workflowID(c *gin.Context) api.WorkflowID {
	return api.WorkflowID(c.Param("id"))
}

// documentFormat picks the document format from the format query
// parameter, falling back to the request's content type
func documentFormat(c *gin.Context) string {
	if f := c.Query("format"); f != "" {
		return f
	}
	if strings.Contains(c.ContentType(), "yaml") {
		return loader.FormatYAML
	}
	return loader.FormatJSON
}

// readEventData decodes an optional JSON object body
func readEventData(c *gin.Context) (api.EventData, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return api.EventData{}, nil
	}
	var data api.EventData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return data, nil
}
