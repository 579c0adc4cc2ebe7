package script

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"
)

type (
	// LuaEnv provides a Lua script execution environment with state pooling
	LuaEnv struct {
		*compiler[*CompiledLua]
		statePool chan *lua.State
	}

	// CompiledLua represents a compiled Lua script
	CompiledLua struct {
		bytecode []byte
		argNames []string
	}
)

const (
	luaStatePoolSize    = 10
	luaArgLocalTemplate = "local %s = select(%d, ...)"
	luaGlobalTableName  = "_G"
	luaSeparator        = "\n"
)

var (
	ErrLuaLoad      = errors.New("lua load error")
	ErrLuaExecution = errors.New("lua execution error")
	ErrLuaCompiled  = errors.New("not a compiled lua script")
)

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// NewLuaEnv creates a new Lua script execution environment with a state pool
// for efficient script reuse
func NewLuaEnv() *LuaEnv {
	luaEnv := &LuaEnv{
		statePool: make(chan *lua.State, luaStatePoolSize),
	}
	luaEnv.compiler = newCompiler(
		func(script string, argNames []string) (*CompiledLua, error) {
			src := luaEnv.wrapSource(script, argNames)
			return luaEnv.compile(src, argNames)
		},
	)
	return luaEnv
}

// Execute runs a compiled Lua script with the provided inputs and returns
// the script's single return value converted to Go
func (e *LuaEnv) Execute(c Compiled, inputs map[string]any) (any, error) {
	proc, ok := c.(*CompiledLua)
	if !ok {
		return nil, ErrLuaCompiled
	}

	L := e.getState()
	defer e.returnState(L)

	e.setupSandbox(L)
	if err := L.Load(bytes.NewReader(proc.bytecode), "chunk", "b"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	for _, name := range proc.argNames {
		goToLua(L, inputs[name])
	}

	if err := L.ProtectedCall(len(proc.argNames), 1, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}

	res := luaToGo(L, -1)
	L.Pop(1)
	return res, nil
}

func (e *LuaEnv) wrapSource(script string, argNames []string) string {
	argLocals := make([]string, len(argNames))
	for i, name := range argNames {
		argLocals[i] = fmt.Sprintf(luaArgLocalTemplate, name, i+1)
	}
	return strings.Join([]string{
		strings.Join(argLocals, luaSeparator), script,
	}, luaSeparator)
}

func (e *LuaEnv) compile(src string, argNames []string) (*CompiledLua, error) {
	L := lua.NewState()

	e.setupSandbox(L)

	if err := lua.LoadString(L, src); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	return &CompiledLua{
		bytecode: buf.Bytes(),
		argNames: argNames,
	}, nil
}

func (e *LuaEnv) setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(-2, name)
	}
	L.Pop(1)
}

func (e *LuaEnv) getState() *lua.State {
	select {
	case L := <-e.statePool:
		return L
	default:
		return lua.NewState()
	}
}

func (e *LuaEnv) returnState(L *lua.State) {
	L.SetTop(0)

	select {
	case e.statePool <- L:
	default:
	}
}

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
	case nil:
		L.PushNil()
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case int64:
		L.PushInteger(int(v))
	case float64:
		L.PushNumber(v)
	case float32:
		L.PushNumber(float64(v))
	case []any:
		pushLuaArray(L, v)
	case []string:
		arr := make([]any, len(v))
		for i, s := range v {
			arr[i] = s
		}
		pushLuaArray(L, arr)
	case map[string]any:
		pushLuaMap(L, v)
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func pushLuaArray(L *lua.State, arr []any) {
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		goToLua(L, item)
		L.RawSetInt(-2, i+1)
	}
}

func pushLuaMap(L *lua.State, m map[string]any) {
	L.CreateTable(0, len(m))
	for k, val := range m {
		goToLua(L, val)
		L.SetField(-2, k)
	}
}

func luaNumberToGo(L *lua.State, index int) any {
	num, _ := L.ToNumber(index)
	if num == float64(int(num)) {
		return int(num)
	}
	return num
}

func luaToGo(L *lua.State, index int) any {
	switch L.TypeOf(index) {
	case lua.TypeBoolean:
		return L.ToBoolean(index)
	case lua.TypeNumber:
		return luaNumberToGo(L, index)
	case lua.TypeString:
		s, _ := L.ToString(index)
		return s
	case lua.TypeTable:
		return luaTableToAny(L, L.AbsIndex(index))
	default:
		return nil
	}
}

func luaTableToAny(L *lua.State, index int) any {
	if length, ok := luaArrayLength(L, index); ok {
		return convertLuaArray(L, index, length)
	}

	result := map[string]any{}
	L.PushNil()
	for L.Next(index) {
		var key string
		if L.TypeOf(-2) == lua.TypeString {
			key, _ = L.ToString(-2)
		} else {
			key = fmt.Sprintf("%v", luaToGo(L, -2))
		}
		result[key] = luaToGo(L, -1)
		L.Pop(1)
	}
	return result
}

func luaArrayLength(L *lua.State, index int) (int, bool) {
	length := 0
	L.PushNil()
	for L.Next(index) {
		if L.TypeOf(-2) != lua.TypeNumber {
			L.Pop(2)
			return 0, false
		}
		length++
		L.Pop(1)
	}
	return length, length > 0
}

func convertLuaArray(L *lua.State, index, length int) []any {
	arr := make([]any, length)
	for i := 1; i <= length; i++ {
		L.RawGetInt(index, i)
		arr[i-1] = luaToGo(L, -1)
		L.Pop(1)
	}
	return arr
}
