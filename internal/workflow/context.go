package workflow

import (
	"maps"
	"slices"
	"sync"

	"github.com/kode4food/taskmaster/pkg/api"
)

// Context is the run-scoped key-value store that threads data between
// actions. It is seeded with the triggering event's data and receives one
// entry per completed action, keyed by the action's id
type Context struct {
	values map[string]any
	mu     sync.RWMutex
}

// NewContext creates a Context seeded with the provided event data
func NewContext(data api.EventData) *Context {
	if data == nil {
		data = api.EventData{}
	}
	return &Context{
		values: map[string]any{
			api.EventDataKey: data,
		},
	}
}

// Get returns the value stored at key
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Set stores a value at key
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Result returns the result stored by a completed action
func (c *Context) Result(id api.ActionID) (any, bool) {
	return c.Get(string(id))
}

// EventData returns the data of the event that launched the run
func (c *Context) EventData() api.EventData {
	v, _ := c.Get(api.EventDataKey)
	switch data := v.(type) {
	case api.EventData:
		return data
	case map[string]any:
		return data
	default:
		return api.EventData{}
	}
}

// Keys returns every key in ascending order
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.values))
}

// Len returns the number of entries, including the event data entry
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Snapshot returns a shallow copy of the stored values
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.values)
}
