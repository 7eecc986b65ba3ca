package tx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dErrors "demarc/pkg/domain-errors"
)

// Services share one runner in production wiring, so a service invoked from
// inside another service's transaction re-enters RunInTx on the same runner.
func TestInMemoryRunner_NestedCallJoins(t *testing.T) {
	runner := NewInMemoryRunner()

	done := make(chan error, 1)
	go func() {
		done <- runner.RunInTx(context.Background(), func(ctx context.Context) error {
			return runner.RunInTx(ctx, func(context.Context) error { return nil })
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("nested RunInTx on the same runner must join the outer run, not block on it")
	}
}

func TestInMemoryRunner_NestedErrorPropagates(t *testing.T) {
	runner := NewInMemoryRunner()
	sentinelErr := errors.New("inner failure")

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		return runner.RunInTx(ctx, func(context.Context) error { return sentinelErr })
	})
	require.ErrorIs(t, err, sentinelErr)
}

func TestInMemoryRunner_CancelledContextRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewInMemoryRunner().RunInTx(ctx, func(context.Context) error { return nil })
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}
