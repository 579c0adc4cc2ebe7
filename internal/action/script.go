package action

import (
	"context"

	"github.com/kode4food/taskmaster/internal/action/script"
	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
)

// Script runs a Lua or JavaScript snippet. The snippet sees three values:
// `input` (the configured input), `event` (the run's event data) and
// `context` (a snapshot of every context value)
type Script struct {
	env      script.Environment
	compiled script.Compiled
	input    input
}

const defaultLanguage = script.LangLua

var scriptArgs = []string{"context", "event", "input"}

var _ workflow.Executor = (*Script)(nil)

// NewScript compiles the `script` option in the `language` environment
func NewScript(reg *script.Registry, cfg api.Config) (*Script, error) {
	src, err := requireString(cfg, "script")
	if err != nil {
		return nil, err
	}
	env, err := reg.Get(cfg.String("language", defaultLanguage))
	if err != nil {
		return nil, err
	}
	compiled, err := env.Compile(src, scriptArgs)
	if err != nil {
		return nil, err
	}
	return &Script{
		env:      env,
		compiled: compiled,
		input:    inputFrom(cfg),
	}, nil
}

func (s *Script) Execute(_ context.Context, c *workflow.Context) (any, error) {
	in, err := s.input.get(c)
	if err != nil {
		return nil, err
	}
	args, err := normalize(map[string]any{
		"context": c.Snapshot(),
		"event":   c.EventData(),
		"input":   in,
	})
	if err != nil {
		return nil, err
	}
	return s.env.Execute(s.compiled, args.(map[string]any))
}
