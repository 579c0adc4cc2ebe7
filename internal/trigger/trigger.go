package trigger

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

type (
	// Trigger is an event source that invokes its registered callbacks when
	// its condition fires. Activate starts whatever background mechanism the
	// source needs, and Deactivate stops it. Deactivate is idempotent and is
	// safe to call on a trigger that was never activated
	Trigger interface {
		Source
		Kind() string
		Config() api.Config
		IsActive() bool
		Activate() error
		Deactivate()
		RegisterCallback(Callback)
		Fire(api.EventData)
	}

	// Source identifies the trigger that produced an event
	Source interface {
		ID() api.TriggerID
		Name() string
	}

	// Callback receives every firing of a trigger. The Source is the
	// concrete trigger that fired
	Callback func(Source, api.EventData)

	// Base supplies identity, configuration, the callback list and the active
	// flag. Concrete triggers embed it and provide Activate and Deactivate
	Base struct {
		config    api.Config
		source    Source
		id        api.TriggerID
		name      string
		kind      string
		callbacks []Callback
		mu        sync.RWMutex
		active    atomic.Bool
	}
)

const (
	KindManual  = "manual"
	KindTime    = "time"
	KindCron    = "cron"
	KindFile    = "file"
	KindAPI     = "api"
	KindDB      = "db"
	KindWebhook = "webhook"
)

var (
	ErrMissingOption    = errors.New("required trigger option missing")
	ErrInvalidCondition = errors.New("invalid trigger condition")
	ErrInvalidSchedule  = errors.New("invalid schedule")
	ErrInvalidCron      = errors.New("invalid cron expression")
	ErrEndpointInUse    = errors.New("webhook endpoint already in use")
	ErrEndpointNotFound = errors.New("webhook endpoint not found")
	ErrUnauthorized     = errors.New("webhook request unauthorized")
)

// NewBase creates the shared portion of a trigger. An empty name defaults to
// one derived from the trigger's kind and id
func NewBase(kind, name string, cfg api.Config) *Base {
	id := api.NewTriggerID()
	if name == "" {
		name = kind + "_" + api.ShortID(id)
	}
	if cfg == nil {
		cfg = api.Config{}
	}
	return &Base{
		id:     id,
		name:   name,
		kind:   kind,
		config: cfg,
	}
}

func (b *Base) ID() api.TriggerID {
	return b.id
}

func (b *Base) Name() string {
	return b.name
}

// Kind returns the catalog type of the trigger
func (b *Base) Kind() string {
	return b.kind
}

func (b *Base) Config() api.Config {
	return b.config
}

func (b *Base) IsActive() bool {
	return b.active.Load()
}

// RegisterCallback appends a callback. Callbacks are invoked in the order
// they were registered
func (b *Base) RegisterCallback(cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = append(b.callbacks, cb)
}

// Fire invokes every registered callback synchronously, in registration
// order, with the same event data. A panicking callback is logged and does
// not prevent the remaining callbacks from running
func (b *Base) Fire(data api.EventData) {
	if data == nil {
		data = api.EventData{}
	}
	b.mu.RLock()
	callbacks := make([]Callback, len(b.callbacks))
	copy(callbacks, b.callbacks)
	b.mu.RUnlock()

	for _, cb := range callbacks {
		b.invoke(cb, data)
	}
}

// bind records the concrete trigger embedding b, which callbacks receive as
// their Source
func (b *Base) bind(src Source) {
	b.source = src
}

// markActive flips the active flag, returning false when it was already set
func (b *Base) markActive() bool {
	return b.active.CompareAndSwap(false, true)
}

// markInactive clears the active flag, returning false when it was not set
func (b *Base) markInactive() bool {
	return b.active.CompareAndSwap(true, false)
}

func (b *Base) invoke(cb Callback, data api.EventData) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Trigger callback panicked",
				log.TriggerID(b.id),
				slog.Any("panic", r))
		}
	}()
	var src Source = b
	if b.source != nil {
		src = b.source
	}
	cb(src, data)
}
