//go:build !windows

package executor

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		req      Request
		stdout   string
		stderr   string
		exitCode int
	}{
		"ok": {
			req:    Request{Command: "sh", Args: []string{"-c", "echo hello"}},
			stdout: "hello\n",
		},
		"non-zero exit": {
			req:      Request{Command: "sh", Args: []string{"-c", "echo oops >&2; exit 3"}},
			stderr:   "oops\n",
			exitCode: 3,
		},
		"env and cwd": {
			req: Request{
				Command: "sh", Args: []string{"-c", `echo "$SMOKER_TEST $(pwd)"`},
				Env: []string{"SMOKER_TEST=yes"}, Cwd: "/",
			},
			stdout: "yes /\n",
		},
	}

	for name, tc := range tests {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			e := NewExec(WithLog{Log: testr.New(t)})
			res, err := e.Exec(context.Background(), tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.stdout, res.Stdout)
			assert.Equal(t, tc.stderr, res.Stderr)
			assert.Equal(t, tc.exitCode, res.ExitCode)
			assert.Equal(t, tc.exitCode != 0, res.Failed())
		})
	}
}

func TestExec_NotFound(t *testing.T) {
	t.Parallel()

	_, err := NewExec().Exec(context.Background(), Request{Command: "smoker-does-not-exist"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExec_Cancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewExec().Exec(ctx, Request{Command: "sh", Args: []string{"-c", "sleep 10"}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
