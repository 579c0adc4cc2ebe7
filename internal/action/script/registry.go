package script

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

type (
	// Registry manages script environments for different languages
	Registry struct {
		envs map[string]Environment
	}

	// Environment defines the interface for script environments
	Environment interface {
		// Validate checks if a script is syntactically valid
		Validate(script string, argNames []string) error

		// Compile compiles a script and returns the compiled form
		Compile(script string, argNames []string) (Compiled, error)

		// Execute runs a compiled script. The inputs are bound positionally
		// to the argument names the script was compiled with
		Execute(c Compiled, inputs map[string]any) (any, error)
	}

	// Compiled represents a compiled script for any supported language
	Compiled any

	compileFunc[T any] func(script string, argNames []string) (T, error)

	compiler[T any] struct {
		cache *cache.Cache
		build compileFunc[T]
	}
)

const (
	LangLua        = "lua"
	LangJavaScript = "javascript"
	LangJS         = "js"
)

const (
	compileCacheTTL     = 30 * time.Minute
	compileCacheCleanup = 10 * time.Minute
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported script language")
	ErrEmptyScript         = errors.New("script is empty")
)

// NewRegistry creates a new script registry with Lua and JavaScript
// execution environments
func NewRegistry() *Registry {
	js := NewJSEnv()
	return &Registry{
		envs: map[string]Environment{
			LangLua:        NewLuaEnv(),
			LangJavaScript: js,
			LangJS:         js,
		},
	}
}

func (r *Registry) Register(language string, env Environment) {
	r.envs[strings.ToLower(language)] = env
}

// Get returns the script environment for the given language
func (r *Registry) Get(language string) (Environment, error) {
	env, ok := r.envs[strings.ToLower(language)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	return env, nil
}

func newCompiler[T any](build compileFunc[T]) *compiler[T] {
	return &compiler[T]{
		cache: cache.New(compileCacheTTL, compileCacheCleanup),
		build: build,
	}
}

func (c *compiler[T]) Validate(script string, argNames []string) error {
	_, err := c.Compile(script, argNames)
	return err
}

func (c *compiler[T]) Compile(script string, argNames []string) (Compiled, error) {
	if strings.TrimSpace(script) == "" {
		return nil, ErrEmptyScript
	}

	key := hashScript(script, argNames)
	if res, ok := c.cache.Get(key); ok {
		return res, nil
	}
	res, err := c.build(script, argNames)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, res)
	return res, nil
}

func hashScript(script string, argNames []string) string {
	h := sha256.New()
	_, _ = h.Write([]byte(script))
	for _, arg := range argNames {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(arg))
	}
	return hex.EncodeToString(h.Sum(nil))
}
