package action

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
)

const (
	TypeScript  = "script"
	TypeHTTP    = "http"
	TypeExtract = "extract"
	TypeLoad    = "load"
	TypeSave    = "save"
	TypeRedis   = "redis"
	TypeNotify  = "notify"
	TypeShell   = "shell"
	TypeLLM     = "llm"
)

// KeyInput is the option naming the context key an action reads its
// primary input from
const KeyInput = "input"

var (
	ErrMissingOption    = errors.New("missing required action option")
	ErrInvalidOption    = errors.New("invalid action option")
	ErrInputNotFound    = errors.New("input not found in context")
	ErrUnknownFormat    = errors.New("unknown data format")
	ErrUnknownOperation = errors.New("unknown operation")
)

// input resolves a context key named by an action's `input` option
type input string

func inputFrom(cfg api.Config) input {
	return input(cfg.String(KeyInput, ""))
}

func (i input) isSet() bool {
	return i != ""
}

// get returns the input value. An unset input resolves to nil
func (i input) get(c *workflow.Context) (any, error) {
	if !i.isSet() {
		return nil, nil
	}
	v, ok := c.Get(string(i))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, i)
	}
	return v, nil
}

func requireString(cfg api.Config, key string) (string, error) {
	res := cfg.String(key, "")
	if res == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingOption, key)
	}
	return res, nil
}

// normalize converts an arbitrary Go value into the plain JSON data model
// (maps, slices, strings, float64, bool, nil)
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var res any
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return res, nil
}
