package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kode4food/taskmaster/internal/loader"
	"github.com/kode4food/taskmaster/internal/runner"
	"github.com/kode4food/taskmaster/internal/trigger"
	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/util"
)

// Server implements the HTTP API for managing and running workflows
type Server struct {
	runner   *runner.Runner
	registry *loader.Registry
	webhooks *trigger.WebhookHub
	sockets  util.Set[*Client]
	mu       sync.Mutex
}

// NewServer creates a new HTTP API server. Documents posted to the server
// are built with reg, and webhook requests are delivered through hub
func NewServer(
	r *runner.Runner, reg *loader.Registry, hub *trigger.WebhookHub,
) *Server {
	return &Server{
		runner:   r,
		registry: reg,
		webhooks: hub,
		sockets:  util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization, X-Webhook-Token",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)

	// Webhook ingress
	router.Any("/webhook/:endpointID", s.handleWebhook)

	wf := router.Group("/workflows")
	{
		wf.GET("", s.listWorkflows)
		wf.POST("", s.createWorkflow)
		wf.GET("/:id", s.getWorkflow)
		wf.DELETE("/:id", s.deleteWorkflow)
		wf.POST("/:id/run", s.runWorkflow)
		wf.POST("/:id/enqueue", s.enqueueWorkflow)
		wf.POST("/:id/start", s.startWorkflow)
		wf.POST("/:id/stop", s.stopWorkflow)
	}

	router.GET("/ws", s.handleWebSocket)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	list := s.runner.List()
	active := 0
	for _, st := range list {
		if st.IsActive {
			active++
		}
	}
	c.JSON(http.StatusOK, api.HealthResponse{
		Status:    "ok",
		Workflows: len(list),
		Active:    active,
	})
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
