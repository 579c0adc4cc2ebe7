package helpers

import (
	"testing"
	"time"

	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/taskmaster/pkg/api"
)

const DefaultTimeout = 5 * time.Second

// WaitFor polls cond until it holds, failing the test after timeout
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// WaitForEvent receives from the consumer until an event of the given type
// arrives, failing the test after timeout
func WaitForEvent(
	t *testing.T, cons topic.Consumer[api.Event], typ api.EventType,
	timeout time.Duration,
) api.Event {
	t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-cons.Receive():
			if !ok {
				t.Fatalf("event consumer closed waiting for %s", typ)
			}
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s", typ)
		}
	}
}
