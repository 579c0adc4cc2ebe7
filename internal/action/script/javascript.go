package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

type (
	// JSEnv provides a JavaScript execution environment. Every execution
	// gets a fresh runtime, so scripts never observe each other's globals
	JSEnv struct {
		*compiler[*CompiledJS]
	}

	// CompiledJS represents a compiled JavaScript function body
	CompiledJS struct {
		program  *goja.Program
		argNames []string
	}
)

const jsFunctionTemplate = "(function(%s) {\n%s\n})"

var (
	ErrJSCompile   = errors.New("javascript compile error")
	ErrJSExecution = errors.New("javascript execution error")
	ErrJSCompiled  = errors.New("not a compiled javascript script")
)

// NewJSEnv creates a new JavaScript execution environment. Scripts are
// function bodies: the argument names are bound as parameters and the value
// of a return statement is the script's result
func NewJSEnv() *JSEnv {
	return &JSEnv{
		compiler: newCompiler(compileJS),
	}
}

// Execute runs a compiled JavaScript function body with the provided inputs
// and returns its exported result
func (e *JSEnv) Execute(c Compiled, inputs map[string]any) (any, error) {
	proc, ok := c.(*CompiledJS)
	if !ok {
		return nil, ErrJSCompiled
	}

	vm := goja.New()
	fn, err := vm.RunProgram(proc.program)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSExecution, err)
	}
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("%w: script is not callable", ErrJSExecution)
	}

	args := make([]goja.Value, len(proc.argNames))
	for i, name := range proc.argNames {
		args[i] = vm.ToValue(inputs[name])
	}

	res, err := call(goja.Undefined(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSExecution, err)
	}
	return res.Export(), nil
}

func compileJS(script string, argNames []string) (*CompiledJS, error) {
	src := fmt.Sprintf(jsFunctionTemplate, strings.Join(argNames, ", "), script)
	prog, err := goja.Compile("script", src, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSCompile, err)
	}
	return &CompiledJS{
		program:  prog,
		argNames: argNames,
	}, nil
}
