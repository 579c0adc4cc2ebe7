package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/taskmaster/internal/assert/helpers"
	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
)

func TestNewActionDefaults(t *testing.T) {
	a := workflow.NewAction("", helpers.Value(1))
	assert.NotEmpty(t, a.ID())
	assert.Contains(t, a.Name(), "Action_")
	assert.Equal(t, api.StatusPending, a.Status())
	assert.NotNil(t, a.Config())
	assert.Empty(t, a.Dependencies())

	b := workflow.NewAction("load", helpers.Value(1),
		workflow.WithActionID("load-id"),
		workflow.WithKind("script"),
		workflow.WithConfig(api.Config{"input": "x"}),
	)
	assert.Equal(t, api.ActionID("load-id"), b.ID())
	assert.Equal(t, "script", b.Kind())
	assert.Equal(t, "x", b.Config().String("input", ""))
}

func TestActionRunSuccess(t *testing.T) {
	a := workflow.NewAction("ok", helpers.Value(42))
	res, err := a.Run(context.Background(), workflow.NewContext(nil))
	assert.NoError(t, err)
	assert.Equal(t, 42, res)
	assert.Equal(t, api.StatusCompleted, a.Status())
	assert.Equal(t, 42, a.Result())
	assert.NoError(t, a.Err())
}

func TestActionRunFailure(t *testing.T) {
	boom := errors.New("boom")
	rec := helpers.NewRecorder()
	a := workflow.NewAction("bad", rec.Failing("bad", boom))

	res, err := a.Run(context.Background(), workflow.NewContext(nil))
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)
	assert.Equal(t, api.StatusFailed, a.Status())
	assert.ErrorIs(t, a.Err(), boom)
	assert.Equal(t, 1, rec.Count("bad"))
}

func TestActionRunPanics(t *testing.T) {
	a := workflow.NewAction("panic", workflow.ExecutorFunc(
		func(context.Context, *workflow.Context) (any, error) {
			panic("kaboom")
		},
	))

	_, err := a.Run(context.Background(), workflow.NewContext(nil))
	assert.ErrorIs(t, err, workflow.ErrActionPanicked)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, api.StatusFailed, a.Status())
}

func TestActionRunWithoutExecutor(t *testing.T) {
	a := workflow.NewAction("empty", nil)
	_, err := a.Run(context.Background(), workflow.NewContext(nil))
	assert.ErrorIs(t, err, workflow.ErrNoExecutor)
	assert.Equal(t, api.StatusFailed, a.Status())
}

func TestActionRunTwiceRequiresReset(t *testing.T) {
	a := workflow.NewAction("once", helpers.Value(1))
	c := workflow.NewContext(nil)

	_, err := a.Run(context.Background(), c)
	assert.NoError(t, err)

	_, err = a.Run(context.Background(), c)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	assert.Equal(t, api.StatusCompleted, a.Status())

	a.Reset()
	assert.Equal(t, api.StatusPending, a.Status())
	assert.Nil(t, a.Result())

	_, err = a.Run(context.Background(), c)
	assert.NoError(t, err)
}

func TestActionCanExecute(t *testing.T) {
	w := workflow.New()
	dep := workflow.NewAction("dep", helpers.Value(1))
	a := workflow.NewAction("a", helpers.Value(2))
	assert.NoError(t, w.AddAction(dep))
	assert.NoError(t, w.AddAction(a))
	assert.NoError(t, w.AddDependency(a.ID(), dep.ID()))

	assert.True(t, dep.CanExecute())
	assert.False(t, a.CanExecute())
	assert.True(t, a.DependsOn(dep.ID()))

	_, err := dep.Run(context.Background(), workflow.NewContext(nil))
	assert.NoError(t, err)
	assert.True(t, a.CanExecute())
}
