// Package proc spawns the external backup tool. It never goes through a
// shell: callers hand over a fully rendered argv vector and an environment
// overlay, and get captured output back.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrExecutableNotFound is returned when argv[0] cannot be resolved on PATH.
var ErrExecutableNotFound = errors.New("executable not found")

// ExitError reports a command that started but finished with a non-zero
// status. Stderr holds the trimmed diagnostic output the tool produced.
type ExitError struct {
	Cmd    string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with status %d", e.Cmd, e.Code)
	}

	return fmt.Sprintf("%s exited with status %d: %s", e.Cmd, e.Code, e.Stderr)
}

// Runner executes argv vectors built elsewhere.
type Runner struct {
	log *zap.Logger
}

// New returns a Runner logging through logger. A nil logger disables logging.
func New(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{log: logger}
}

// Run executes argv with env layered over the ambient environment and
// returns the captured stdout. A non-zero exit surfaces as *ExitError with
// the stdout still returned, since some tools emit usable JSON on failure.
// Context cancellation kills the subprocess and returns the context error.
func (r *Runner) Run(ctx context.Context, argv []string, env map[string]string) (string, error) {
	cmd, err := r.command(ctx, argv, env)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("running command", zap.Strings("argv", argv))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stdout.String(), ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExitError{
				Cmd:    argv[0],
				Code:   exitErr.ExitCode(),
				Stderr: strings.TrimSpace(stderr.String()),
			}
		}
		return stdout.String(), err
	}

	return stdout.String(), nil
}

// Combined executes argv and returns stdout and stderr interleaved. The
// output is returned even when the command fails, which suits callers that
// scrape help text and do not care how the tool exited.
func (r *Runner) Combined(ctx context.Context, argv []string, env map[string]string) (string, error) {
	cmd, err := r.command(ctx, argv, env)
	if err != nil {
		return "", err
	}

	r.log.Debug("running command", zap.Strings("argv", argv))
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return string(out), ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), &ExitError{Cmd: argv[0], Code: exitErr.ExitCode()}
		}
		return string(out), err
	}

	return string(out), nil
}

func (r *Runner) command(ctx context.Context, argv []string, env map[string]string) (*exec.Cmd, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty argv")
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExecutableNotFound, argv[0])
	}

	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Env = environ(env)

	return cmd, nil
}

// environ appends the overrides to the ambient environment in sorted key
// order. os/exec resolves duplicate keys to the last occurrence, so the
// overlay wins without any filtering.
func environ(overrides map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}

	return env
}
