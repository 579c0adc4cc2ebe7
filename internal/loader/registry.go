package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"

	"github.com/kode4food/taskmaster/internal/action"
	"github.com/kode4food/taskmaster/internal/action/script"
	"github.com/kode4food/taskmaster/internal/client"
	"github.com/kode4food/taskmaster/internal/trigger"
	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
)

type (
	// Registry maps document type names to the factories that build them
	Registry struct {
		actions  map[string]ActionFactory
		triggers map[string]TriggerFactory
	}

	// ActionFactory builds an executor from an action's options
	ActionFactory func(cfg api.Config) (workflow.Executor, error)

	// TriggerFactory builds a trigger from its name and options
	TriggerFactory func(name string, cfg api.Config) (trigger.Trigger, error)

	// Dependencies are the shared clients handed to the default factories.
	// A nil client leaves the types that need it registered, but building
	// one of them fails with ErrMissingDependency
	Dependencies struct {
		HTTP     client.Client
		Redis    redis.UniversalClient
		Webhooks *trigger.WebhookHub
		Buckets  *action.Buckets
		OpenAI   *openai.Client
		Scripts  *script.Registry
		Logger   *slog.Logger
		Schedule []trigger.ScheduleOption
	}
)

var ErrMissingDependency = errors.New("missing dependency")

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		actions:  map[string]ActionFactory{},
		triggers: map[string]TriggerFactory{},
	}
}

// NewDefaultRegistry creates a registry holding the full action and
// trigger catalog, wired to deps
func NewDefaultRegistry(deps Dependencies) *Registry {
	if deps.HTTP == nil {
		deps.HTTP = client.NewHTTPClient(0)
	}
	if deps.Webhooks == nil {
		deps.Webhooks = trigger.NewWebhookHub()
	}
	if deps.Buckets == nil {
		deps.Buckets = action.NewBuckets()
	}
	if deps.Scripts == nil {
		deps.Scripts = script.NewRegistry()
	}

	r := NewRegistry()
	r.registerActions(deps)
	r.registerTriggers(deps)
	return r
}

// RegisterAction adds or replaces the factory for an action type
func (r *Registry) RegisterAction(typ string, f ActionFactory) {
	r.actions[typ] = f
}

// RegisterTrigger adds or replaces the factory for a trigger type
func (r *Registry) RegisterTrigger(typ string, f TriggerFactory) {
	r.triggers[typ] = f
}

func (r *Registry) ActionTypes() []string {
	return slices.Sorted(maps.Keys(r.actions))
}

func (r *Registry) TriggerTypes() []string {
	return slices.Sorted(maps.Keys(r.triggers))
}

func (r *Registry) registerActions(deps Dependencies) {
	r.RegisterAction(action.TypeScript, executor(
		func(cfg api.Config) (*action.Script, error) {
			return action.NewScript(deps.Scripts, cfg)
		},
	))
	r.RegisterAction(action.TypeHTTP, executor(
		func(cfg api.Config) (*action.HTTP, error) {
			return action.NewHTTP(deps.HTTP, cfg)
		},
	))
	r.RegisterAction(action.TypeExtract, executor(action.NewExtract))
	r.RegisterAction(action.TypeLoad, executor(
		func(cfg api.Config) (*action.Load, error) {
			return action.NewLoad(deps.Buckets, cfg)
		},
	))
	r.RegisterAction(action.TypeSave, executor(
		func(cfg api.Config) (*action.Save, error) {
			return action.NewSave(deps.Buckets, cfg)
		},
	))
	r.RegisterAction(action.TypeRedis, executor(
		func(cfg api.Config) (*action.Redis, error) {
			if deps.Redis == nil {
				return nil, fmt.Errorf("%w: redis", ErrMissingDependency)
			}
			return action.NewRedis(deps.Redis, cfg)
		},
	))
	r.RegisterAction(action.TypeNotify, executor(
		func(cfg api.Config) (*action.Notify, error) {
			return action.NewNotify(deps.Logger, cfg)
		},
	))
	r.RegisterAction(action.TypeShell, executor(action.NewShell))
	r.RegisterAction(action.TypeLLM, executor(
		func(cfg api.Config) (*action.LLM, error) {
			if deps.OpenAI == nil {
				return nil, fmt.Errorf("%w: openai", ErrMissingDependency)
			}
			return action.NewLLM(deps.OpenAI, cfg)
		},
	))
}

func (r *Registry) registerTriggers(deps Dependencies) {
	r.RegisterTrigger(trigger.KindManual, source(
		func(name string, cfg api.Config) (*trigger.Manual, error) {
			return trigger.NewManual(name, cfg), nil
		},
	))
	r.RegisterTrigger(trigger.KindTime, source(
		func(name string, cfg api.Config) (*trigger.Scheduled, error) {
			return trigger.NewTime(name, cfg, deps.Schedule...)
		},
	))
	r.RegisterTrigger(trigger.KindCron, source(
		func(name string, cfg api.Config) (*trigger.Scheduled, error) {
			return trigger.NewCron(name, cfg, deps.Schedule...)
		},
	))
	r.RegisterTrigger(trigger.KindFile, source(trigger.NewFile))
	r.RegisterTrigger(trigger.KindAPI, source(
		func(name string, cfg api.Config) (*trigger.API, error) {
			return trigger.NewAPI(name, cfg, deps.HTTP)
		},
	))
	r.RegisterTrigger(trigger.KindDB, source(
		func(name string, cfg api.Config) (*trigger.DB, error) {
			if deps.Redis == nil {
				return nil, fmt.Errorf("%w: redis", ErrMissingDependency)
			}
			return trigger.NewDB(name, cfg, deps.Redis)
		},
	))
	r.RegisterTrigger(trigger.KindWebhook, source(
		func(name string, cfg api.Config) (*trigger.Webhook, error) {
			return trigger.NewWebhook(name, cfg, deps.Webhooks)
		},
	))
}

func executor[T workflow.Executor](
	build func(api.Config) (T, error),
) ActionFactory {
	return func(cfg api.Config) (workflow.Executor, error) {
		res, err := build(cfg)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
}

func source[T trigger.Trigger](
	build func(string, api.Config) (T, error),
) TriggerFactory {
	return func(name string, cfg api.Config) (trigger.Trigger, error) {
		res, err := build(name, cfg)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
}
