package action

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
)

// Shell runs a subprocess. A `command` string runs through `sh -c`; an
// `args` list runs directly. The configured input is written to stdin as
// JSON and the run is killed once `timeout` elapses
type Shell struct {
	env       map[string]string
	command   []string
	dir       string
	timeout   time.Duration
	input     input
	check     bool
	parseJSON bool
}

const (
	defaultShellTimeout = 60 * time.Second
	shellWaitDelay      = 500 * time.Millisecond
)

var (
	ErrCommandFailed  = errors.New("command failed")
	ErrCommandTimeout = errors.New("command timed out")
)

var _ workflow.Executor = (*Shell)(nil)

func NewShell(cfg api.Config) (*Shell, error) {
	var command []string
	if cmd := cfg.String("command", ""); cmd != "" {
		command = []string{"sh", "-c", cmd}
	} else if args := cfg.Strings("args"); len(args) > 0 {
		command = args
	} else {
		return nil, fmt.Errorf("%w: command or args", ErrMissingOption)
	}
	return &Shell{
		command:   command,
		dir:       cfg.String("cwd", ""),
		env:       cfg.StringMap("env"),
		timeout:   cfg.Duration("timeout", defaultShellTimeout),
		check:     cfg.Bool("check", true),
		parseJSON: cfg.Bool("parse_json", false),
		input:     inputFrom(cfg),
	}, nil
}

// Execute returns stdout, stderr and the exit code. Unless `check` is
// disabled, a non-zero exit fails the action
func (s *Shell) Execute(ctx context.Context, c *workflow.Context) (any, error) {
	in, err := s.input.get(c)
	if err != nil {
		return nil, err
	}

	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)
	cmd.Dir = s.dir
	cmd.WaitDelay = shellWaitDelay
	if len(s.env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range s.env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		cmd.Stdin = bytes.NewReader(payload)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrCommandTimeout, s.timeout)
	}
	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return nil, runErr
	}

	code := 0
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	if s.check && code != 0 {
		return nil, fmt.Errorf("%w: exit code %d: %s",
			ErrCommandFailed, code, bytes.TrimSpace(stderr.Bytes()))
	}

	var out any = stdout.String()
	if s.parseJSON {
		var parsed any
		if err := json.Unmarshal(stdout.Bytes(), &parsed); err == nil {
			out = parsed
		}
	}
	return map[string]any{
		"stdout":    out,
		"stderr":    stderr.String(),
		"exit_code": code,
	}, nil
}
