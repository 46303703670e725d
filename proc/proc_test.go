//go:build linux || darwin

package proc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Run(t *testing.T) {
	r := New(nil)

	out, err := r.Run(context.Background(), []string{"sh", "-c", "echo hello"}, nil)
	require.NoError(t, err, "a zero exit should not error")
	assert.Equal(t, "hello\n", out, "stdout should be captured verbatim")
}

func TestRunner_RunMergesEnvironment(t *testing.T) {
	r := New(nil)

	out, err := r.Run(context.Background(),
		[]string{"sh", "-c", `printf '%s' "$RESTIX_TEST_VALUE"`},
		map[string]string{"RESTIX_TEST_VALUE": "from-overlay"})
	require.NoError(t, err)
	assert.Equal(t, "from-overlay", out, "overlay variables should reach the subprocess")

	t.Setenv("RESTIX_TEST_AMBIENT", "ambient")
	out, err = r.Run(context.Background(),
		[]string{"sh", "-c", `printf '%s' "$RESTIX_TEST_AMBIENT"`}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ambient", out, "ambient environment should pass through")

	t.Setenv("RESTIX_TEST_SHADOWED", "old")
	out, err = r.Run(context.Background(),
		[]string{"sh", "-c", `printf '%s' "$RESTIX_TEST_SHADOWED"`},
		map[string]string{"RESTIX_TEST_SHADOWED": "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", out, "overlay should win over the ambient value")
}

func TestRunner_RunExitError(t *testing.T) {
	r := New(nil)

	out, err := r.Run(context.Background(),
		[]string{"sh", "-c", "echo partial; echo broken >&2; exit 3"}, nil)
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr, "non-zero exits should surface as *ExitError")
	assert.Equal(t, "sh", exitErr.Cmd)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "broken", exitErr.Stderr, "stderr should be captured and trimmed")
	assert.Equal(t, "partial\n", out, "stdout produced before the failure should still be returned")
	assert.Contains(t, exitErr.Error(), "exited with status 3")
}

func TestRunner_RunExecutableNotFound(t *testing.T) {
	r := New(nil)

	_, err := r.Run(context.Background(), []string{"restix-no-such-binary-xyzzy"}, nil)
	assert.ErrorIs(t, err, ErrExecutableNotFound)
	assert.Contains(t, err.Error(), "restix-no-such-binary-xyzzy", "error should name the missing binary")
}

func TestRunner_RunEmptyArgv(t *testing.T) {
	r := New(nil)

	_, err := r.Run(context.Background(), nil, nil)
	assert.Error(t, err, "an empty argv cannot be executed")
}

func TestRunner_RunContextCancellation(t *testing.T) {
	r := New(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, []string{"sh", "-c", "sleep 30"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "cancellation should surface the context error, got %v", err)
	assert.Less(t, time.Since(start), 10*time.Second, "the subprocess should be killed promptly")
}

func TestRunner_Combined(t *testing.T) {
	r := New(nil)

	out, err := r.Combined(context.Background(),
		[]string{"sh", "-c", "echo to-stdout; echo to-stderr >&2"}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "to-stdout")
	assert.Contains(t, out, "to-stderr", "stderr should be folded into the combined output")
}

func TestRunner_CombinedKeepsOutputOnFailure(t *testing.T) {
	r := New(nil)

	out, err := r.Combined(context.Background(),
		[]string{"sh", "-c", "echo usage text; exit 1"}, nil)
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, out, "usage text", "output should be usable despite the exit status")
}
