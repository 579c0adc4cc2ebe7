package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
)

// Extract evaluates a gjson path against a context value
type Extract struct {
	def    any
	path   string
	input  input
	hasDef bool
}

var ErrPathNotFound = errors.New("path not found")

var _ workflow.Executor = (*Extract)(nil)

// NewExtract creates an Extract action. When the path matches nothing, the
// `default` option is returned if present, otherwise the action fails
func NewExtract(cfg api.Config) (*Extract, error) {
	path, err := requireString(cfg, "path")
	if err != nil {
		return nil, err
	}
	in := inputFrom(cfg)
	if !in.isSet() {
		return nil, fmt.Errorf("%w: %s", ErrMissingOption, KeyInput)
	}
	return &Extract{
		path:   path,
		input:  in,
		def:    cfg["default"],
		hasDef: cfg.Has("default"),
	}, nil
}

func (e *Extract) Execute(_ context.Context, c *workflow.Context) (any, error) {
	in, err := e.input.get(c)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch v := in.(type) {
	case string:
		if !gjson.Valid(v) {
			return nil, fmt.Errorf("%w: input is not JSON", ErrInvalidOption)
		}
		data = []byte(v)
	default:
		if data, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}

	res := gjson.GetBytes(data, e.path)
	if !res.Exists() {
		if e.hasDef {
			return e.def, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, e.path)
	}
	return res.Value(), nil
}
