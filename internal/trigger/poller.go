package trigger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

// poller runs a polling function on a fixed interval until stopped. The
// first poll happens immediately. Errors and panics are logged and the loop
// keeps going
type poller struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

const defaultPollInterval = 60 * time.Second

func (p *poller) start(
	id api.TriggerID, interval time.Duration, fn func(context.Context) error,
) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			pollOnce(ctx, id, fn)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	})
}

func (p *poller) stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func pollOnce(
	ctx context.Context, id api.TriggerID, fn func(context.Context) error,
) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Trigger poll panicked",
				log.TriggerID(id),
				slog.Any("panic", r))
		}
	}()
	if err := fn(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Trigger poll failed",
			log.TriggerID(id),
			log.Error(err))
	}
}
