package log_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

type errStub string

func TestWorkflowID(t *testing.T) {
	attr := log.WorkflowID(api.WorkflowID("wf-123"))
	assertAttrEqual(t, attr, "workflow_id", "wf-123")
}

func TestActionID(t *testing.T) {
	attr := log.ActionID(api.ActionID("act-abc"))
	assertAttrEqual(t, attr, "action_id", "act-abc")
}

func TestTriggerID(t *testing.T) {
	attr := log.TriggerID(api.TriggerID("trg-1"))
	assertAttrEqual(t, attr, "trigger_id", "trg-1")
}

func TestStatus(t *testing.T) {
	attr := log.Status(api.StatusCompleted)
	assertAttrEqual(t, attr, "status", "completed")
}

func TestError(t *testing.T) {
	attr := log.Error(nil)
	assertAttrEqual(t, attr, "error", "")

	attr = log.Error(errStub("boom"))
	assertAttrEqual(t, attr, "error", "boom")
}

func TestErrorString(t *testing.T) {
	attr := log.ErrorString("badness")
	assertAttrEqual(t, attr, "error", "badness")
}

func (e errStub) Error() string { return string(e) }

func assertAttrEqual(t *testing.T, attr slog.Attr, key, value string) {
	t.Helper()
	assert.Equal(t, key, attr.Key)
	assert.Equal(t, value, attr.Value.String())
}
