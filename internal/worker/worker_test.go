package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("explosion")

func TestActor_Run(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		Fn              Func[int, int]
		CancelBefore    bool
		CancelDuring    bool
		ExpectedStatus  Status
		ExpectedPayload int
		ExpectedCalls   int
	}{
		"ok": {
			Fn:              func(_ context.Context, in int) (int, error) { return in * 2, nil },
			ExpectedStatus:  StatusOk,
			ExpectedPayload: 42,
			ExpectedCalls:   1,
		},
		"error": {
			Fn:             func(context.Context, int) (int, error) { return 0, errTest },
			ExpectedStatus: StatusError,
			ExpectedCalls:  1,
		},
		"skipped before call": {
			Fn:             func(_ context.Context, in int) (int, error) { return in, nil },
			CancelBefore:   true,
			ExpectedStatus: StatusSkipped,
			ExpectedCalls:  0,
		},
		"result after cancel": {
			Fn:             func(_ context.Context, in int) (int, error) { return in, nil },
			CancelDuring:   true,
			ExpectedStatus: StatusSkipped,
			ExpectedCalls:  1,
		},
		"error after cancel": {
			Fn:             func(context.Context, int) (int, error) { return 0, errTest },
			CancelDuring:   true,
			ExpectedStatus: StatusSkipped,
			ExpectedCalls:  1,
		},
		"panic": {
			Fn:             func(context.Context, int) (int, error) { panic("oh no") },
			ExpectedStatus: StatusError,
			ExpectedCalls:  1,
		},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tc.CancelBefore {
				cancel()
			}

			calls := 0
			a := Actor[int, int]{
				ID:    "w1",
				Input: 21,
				Label: "double 21",
				Fn: func(ctx context.Context, in int) (int, error) {
					calls++
					if tc.CancelDuring {
						cancel()
					}
					return tc.Fn(ctx, in)
				},
			}

			out := a.Run(ctx)
			assert.Equal(t, "w1", out.ID)
			assert.Equal(t, "double 21", out.Context)
			assert.Equal(t, tc.ExpectedStatus, out.Status)
			assert.Equal(t, tc.ExpectedPayload, out.Payload)
			assert.Equal(t, tc.ExpectedCalls, calls)
			if tc.ExpectedStatus == StatusError {
				require.Error(t, out.Err)
			} else {
				require.NoError(t, out.Err)
			}
		})
	}
}

func TestActor_CancelledWhileRunning(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})

	a := Actor[struct{}, string]{
		ID: "slow",
		Fn: func(ctx context.Context, _ struct{}) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		},
	}

	done := make(chan Outcome[string], 1)
	a.Spawn(ctx, done)
	<-started
	cancel()

	out := <-done
	assert.Equal(t, StatusSkipped, out.Status)
	assert.NoError(t, out.Err)
}

func TestActor_PanicError(t *testing.T) {
	t.Parallel()

	a := Actor[int, int]{
		Label: "explode",
		Fn:    func(context.Context, int) (int, error) { panic(errTest) },
	}
	out := a.Run(context.Background())

	var perr *PanicError
	require.ErrorAs(t, out.Err, &perr)
	assert.Equal(t, "explode", perr.Context)
	assert.Equal(t, "error", out.Status.String())
}
