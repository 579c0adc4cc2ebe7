package trigger

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/kode4food/taskmaster/pkg/api"
)

type (
	// condition decides whether a polled observation should fire a trigger
	condition struct {
		value     any
		kind      string
		path      string
		last      string
		lastCount int
		seen      bool
		mu        sync.Mutex
	}

	// observation is a single polled value with its canonical encoding
	observation struct {
		value any
		raw   []byte
		count int
	}
)

const (
	ConditionAnyChange      = "any_change"
	ConditionSpecificValue  = "specific_value"
	ConditionPath           = "path"
	ConditionRowCountChange = "row_count_change"
)

func newCondition(cfg api.Config, allowed ...string) (*condition, error) {
	c := &condition{
		kind:  cfg.String("trigger_condition", ConditionAnyChange),
		value: cfg["condition_value"],
		path: cfg.String("path",
			cfg.String("jmespath_expression", "")),
	}
	if c.kind == "jmespath" {
		c.kind = ConditionPath
	}
	ok := false
	for _, a := range allowed {
		ok = ok || a == c.kind
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCondition, c.kind)
	}
	if c.kind == ConditionPath && c.path == "" {
		return nil, fmt.Errorf("%w: path", ErrMissingOption)
	}
	return c, nil
}

// check records the observation and reports whether it fires. For
// any_change the first observation only establishes the baseline
func (c *condition) check(o observation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := string(o.raw)
	defer func() {
		c.last = current
		c.lastCount = o.count
		c.seen = true
	}()

	switch c.kind {
	case ConditionAnyChange:
		return c.seen && current != c.last
	case ConditionRowCountChange:
		return o.count != c.lastCount
	case ConditionSpecificValue:
		return sameValue(o.value, c.value)
	case ConditionPath:
		return truthy(gjson.GetBytes(o.raw, c.path))
	default:
		return false
	}
}

func newObservation(value any, count int) (observation, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return observation{}, err
	}
	return observation{value: value, raw: raw, count: count}, nil
}

func sameValue(a, b any) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ra) == string(rb)
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		return len(r.Map()) > 0
	default:
		return false
	}
}
