package loader

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/kode4food/taskmaster/internal/action"
	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/util/call"
)

var (
	ErrUnknownActionType  = errors.New("unknown action type")
	ErrUnknownTriggerType = errors.New("unknown trigger type")
	ErrUnknownDependency  = errors.New("unknown dependency")
	ErrDuplicateAction    = errors.New("duplicate action name")
)

// templateOptions are the string options whose {{name}} placeholders are
// rewritten to action ids
var templateOptions = []string{"message", "prompt"}

// inputTypes are the action types whose `input` defaults to the result of
// their single dependency
var inputTypes = []string{
	action.TypeScript, action.TypeExtract, action.TypeSave, action.TypeLLM,
}

// Validate checks a document's structure without building any executor:
// names are present and unique, types are registered, and every
// dependency names an action in the document
func (r *Registry) Validate(doc *Document) error {
	return call.Each(doc,
		validateName,
		r.validateActions,
		validateDependencies,
		r.validateTriggers,
	)
}

func validateName(doc *Document) error {
	if doc.Name == "" {
		return fmt.Errorf("workflow %w", ErrNameRequired)
	}
	return nil
}

func (r *Registry) validateActions(doc *Document) error {
	names := make(map[string]struct{}, len(doc.Actions))
	for i, spec := range doc.Actions {
		if spec.Name == "" {
			return fmt.Errorf("action %d: %w", i, ErrNameRequired)
		}
		if _, ok := names[spec.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateAction, spec.Name)
		}
		names[spec.Name] = struct{}{}
		if _, ok := r.actions[spec.Type]; !ok {
			return fmt.Errorf("action %s: %w: %q",
				spec.Name, ErrUnknownActionType, spec.Type)
		}
	}
	return nil
}

func validateDependencies(doc *Document) error {
	names := make(map[string]struct{}, len(doc.Actions))
	for _, spec := range doc.Actions {
		names[spec.Name] = struct{}{}
	}
	for _, spec := range doc.Actions {
		for _, dep := range spec.DependsOn {
			if _, ok := names[dep]; !ok {
				return fmt.Errorf("action %s: %w: %s",
					spec.Name, ErrUnknownDependency, dep)
			}
		}
	}
	return nil
}

func (r *Registry) validateTriggers(doc *Document) error {
	for i, spec := range doc.Triggers {
		if _, ok := r.triggers[spec.Type]; !ok {
			return fmt.Errorf("trigger %d: %w: %q",
				i, ErrUnknownTriggerType, spec.Type)
		}
	}
	return nil
}

// Build validates a document and assembles the workflow it describes.
// Action names referenced by an action's `input` option or by {{name}}
// placeholders are rewritten to action ids. A script, extract, save, or llm
// action with exactly one dependency and no `input` reads that dependency's
// result
func (r *Registry) Build(
	doc *Document, opts ...workflow.Option,
) (*workflow.Workflow, error) {
	if err := r.Validate(doc); err != nil {
		return nil, err
	}

	wfOpts := []workflow.Option{
		workflow.WithName(doc.Name),
		workflow.WithDescription(doc.Description),
	}
	if doc.ID != "" {
		wfOpts = append(wfOpts, workflow.WithID(api.WorkflowID(doc.ID)))
	}
	if doc.Parallelism > 0 {
		wfOpts = append(wfOpts, workflow.WithParallelism(doc.Parallelism))
	}
	wf := workflow.New(append(wfOpts, opts...)...)

	ids := make(map[string]api.ActionID, len(doc.Actions))
	for _, spec := range doc.Actions {
		ids[spec.Name] = api.NewActionID()
	}
	rename := func(name string) (string, bool) {
		id, ok := ids[name]
		return string(id), ok
	}

	for _, spec := range doc.Actions {
		cfg := resolveConfig(spec, ids, rename)
		exec, err := r.actions[spec.Type](cfg)
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", spec.Name, err)
		}
		a := workflow.NewAction(spec.Name, exec,
			workflow.WithActionID(ids[spec.Name]),
			workflow.WithConfig(cfg),
			workflow.WithKind(spec.Type),
		)
		if err := wf.AddAction(a); err != nil {
			return nil, err
		}
	}

	for _, spec := range doc.Actions {
		for _, dep := range spec.DependsOn {
			if err := wf.AddDependency(ids[spec.Name], ids[dep]); err != nil {
				return nil, err
			}
		}
	}

	for _, spec := range doc.Triggers {
		t, err := r.triggers[spec.Type](spec.Name, maps.Clone(spec.Config))
		if err != nil {
			return nil, fmt.Errorf("trigger %s: %w", spec.Type, err)
		}
		wf.AddTrigger(t)
	}
	return wf, nil
}

func resolveConfig(
	spec ActionSpec, ids map[string]api.ActionID,
	rename func(string) (string, bool),
) api.Config {
	cfg := api.Config{}
	maps.Copy(cfg, spec.Config)

	if in := cfg.String(action.KeyInput, ""); in != "" {
		if id, ok := ids[in]; ok {
			cfg[action.KeyInput] = string(id)
		}
	} else if len(spec.DependsOn) == 1 &&
		slices.Contains(inputTypes, spec.Type) {
		cfg[action.KeyInput] = string(ids[spec.DependsOn[0]])
	}

	for _, key := range templateOptions {
		if tmpl, ok := cfg[key].(string); ok {
			cfg[key] = action.RewriteRefs(tmpl, rename)
		}
	}
	return cfg
}
