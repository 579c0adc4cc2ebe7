package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	app "github.com/kode4food/taskmaster"
	"github.com/kode4food/taskmaster/internal/action"
	"github.com/kode4food/taskmaster/internal/action/script"
	"github.com/kode4food/taskmaster/internal/client"
	"github.com/kode4food/taskmaster/internal/config"
	"github.com/kode4food/taskmaster/internal/loader"
	"github.com/kode4food/taskmaster/internal/trigger"
	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

var (
	ErrInvalidEvent = errors.New("invalid event data")
	ErrRunFailed    = errors.New("workflow run failed")
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          app.Name,
		Short:        "Workflow automation engine",
		Version:      app.Version,
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newRunCmd(),
		newValidateCmd(),
		newListCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the workflow directory and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg, os.Stdout)
			return newTaskmaster(cfg).run()
		},
	}
}

func newRunCmd() *cobra.Command {
	var event string
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a workflow document once and print its context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg, cmd.ErrOrStderr())
			return runOnce(cmd.OutOrStdout(), cfg, args[0], event)
		},
	}
	cmd.Flags().StringVar(&event, "event", "", "event data as a JSON object")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse and validate a workflow document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loader.LoadFile(args[0])
			if err != nil {
				return err
			}
			reg := loader.NewDefaultRegistry(loader.Dependencies{})
			if err := reg.Validate(doc); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"%s is valid: %d actions, %d triggers\n",
				doc.Name, len(doc.Actions), len(doc.Triggers),
			)
			return err
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <dir>",
		Short: "List the workflow documents in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := loader.ListDir(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range paths {
				doc, err := loader.LoadFile(path)
				if err != nil {
					fmt.Fprintf(out, "%s\t(invalid: %v)\n", path, err)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", path, doc.Name, doc.Description)
			}
			return nil
		},
	}
}

func runOnce(out io.Writer, cfg *config.Config, path, event string) error {
	doc, err := loader.LoadFile(path)
	if err != nil {
		return err
	}

	data := api.EventData{}
	if event != "" {
		if err := json.Unmarshal([]byte(event), &data); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
	}

	deps, closeDeps := newDependencies(cfg)
	defer closeDeps()

	reg := loader.NewDefaultRegistry(deps)
	wf, err := reg.Build(doc, parallelism(doc, cfg)...)
	if err != nil {
		return err
	}

	c, runErr := wf.Run(context.Background(), data)
	resp := api.RunResponse{
		Context: c.Snapshot(),
		Status:  wf.Status(),
	}
	if runErr != nil {
		resp.Error = runErr.Error()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if failed := resp.Status.Failed(); len(failed) > 0 {
		return fmt.Errorf("%w: %d actions failed", ErrRunFailed, len(failed))
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config, w io.Writer) {
	level := log.ParseLevel(cfg.LogLevel)
	env := os.Getenv("ENV")
	logger := log.NewWithWriter(w, app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)
}

// newDependencies creates the shared clients used by the action and
// trigger catalog. The OpenAI client is only created when an API key or
// base URL is configured
func newDependencies(cfg *config.Config) (loader.Dependencies, func()) {
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	deps := loader.Dependencies{
		HTTP:     client.NewHTTPClient(cfg.HTTPTimeout),
		Redis:    rc,
		Webhooks: trigger.NewWebhookHub(),
		Buckets:  action.NewBuckets(),
		Scripts:  script.NewRegistry(),
		Logger:   slog.Default(),
	}
	if cfg.OpenAIAPIKey != "" || cfg.OpenAIBaseURL != "" {
		oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
		if cfg.OpenAIBaseURL != "" {
			oc.BaseURL = cfg.OpenAIBaseURL
		}
		deps.OpenAI = openai.NewClientWithConfig(oc)
	}
	return deps, func() {
		if err := deps.Buckets.Close(); err != nil {
			slog.Warn("Failed to close buckets", log.Error(err))
		}
		_ = rc.Close()
	}
}

// parallelism applies the configured run parallelism to documents that do
// not set their own
func parallelism(doc *loader.Document, cfg *config.Config) []workflow.Option {
	if doc.Parallelism > 0 {
		return nil
	}
	return []workflow.Option{workflow.WithParallelism(cfg.RunParallelism)}
}
