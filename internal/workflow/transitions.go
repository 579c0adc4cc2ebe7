package workflow

import (
	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/util"
)

var actionTransitions = util.StateTransitions[api.Status]{
	api.StatusPending: util.SetOf(
		api.StatusRunning,
	),
	api.StatusRunning: util.SetOf(
		api.StatusCompleted,
		api.StatusFailed,
	),
	api.StatusCompleted: {},
	api.StatusFailed:    {},
}
