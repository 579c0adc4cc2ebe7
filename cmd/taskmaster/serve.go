package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kode4food/taskmaster/internal/config"
	"github.com/kode4food/taskmaster/internal/loader"
	"github.com/kode4food/taskmaster/internal/runner"
	"github.com/kode4food/taskmaster/internal/server"
	"github.com/kode4food/taskmaster/pkg/log"
)

type taskmaster struct {
	cfg        *config.Config
	registry   *loader.Registry
	deps       loader.Dependencies
	closeDeps  func()
	runner     *runner.Runner
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

func newTaskmaster(cfg *config.Config) *taskmaster {
	return &taskmaster{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
}

func (s *taskmaster) run() error {
	slog.Info("Taskmaster starting",
		slog.String("log_level", s.cfg.LogLevel),
		slog.String("workflow_dir", s.cfg.WorkflowDir),
		slog.String("redis_addr", s.cfg.Redis.Addr),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))

	s.deps, s.closeDeps = newDependencies(s.cfg)
	s.registry = loader.NewDefaultRegistry(s.deps)
	s.runner = runner.New(runner.WithQueueSize(s.cfg.EventQueueSize))

	if err := s.loadWorkflows(); err != nil {
		s.runner.Close()
		s.closeDeps()
		return err
	}
	if err := s.runner.StartAll(); err != nil {
		slog.Error("Some workflows failed to start", log.Error(err))
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

// loadWorkflows builds and registers every document in the workflow
// directory. A missing directory is not an error, and a document that
// fails to load or build is logged and skipped
func (s *taskmaster) loadWorkflows() error {
	paths, err := loader.ListDir(s.cfg.WorkflowDir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Workflow directory not found",
			slog.String("workflow_dir", s.cfg.WorkflowDir))
		return nil
	}
	if err != nil {
		return err
	}

	for _, path := range paths {
		if err := s.loadWorkflow(path); err != nil {
			slog.Error("Failed to load workflow",
				slog.String("path", path),
				log.Error(err))
		}
	}
	return nil
}

func (s *taskmaster) loadWorkflow(path string) error {
	doc, err := loader.LoadFile(path)
	if err != nil {
		return err
	}
	wf, err := s.registry.Build(doc, parallelism(doc, s.cfg)...)
	if err != nil {
		return err
	}
	return s.runner.Register(wf)
}

func (s *taskmaster) startServer() {
	s.apiServer = server.NewServer(s.runner, s.registry, s.deps.Webhooks)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *taskmaster) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.runner.Close()
	s.closeDeps()

	slog.Info("Server exited")
}
