package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPreservesInputOrder(t *testing.T) {
	pool := New(Config[int, int]{
		Workers: 4,
		Process: func(_ context.Context, n int) (int, error) {
			// Stagger completion so results arrive out of order.
			time.Sleep(time.Duration(10-n) * time.Millisecond)
			return n * n, nil
		},
	})

	results := pool.Run(context.Background(), []int{1, 2, 3, 4, 5})
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, (i+1)*(i+1), r.Output)
		assert.NoError(t, r.Err)
	}
}

func TestRunReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	pool := New(Config[int, int]{
		Workers: 2,
		Process: func(_ context.Context, n int) (int, error) {
			if n%2 == 0 {
				return 0, boom
			}
			return n, nil
		},
	})

	results := pool.Run(context.Background(), []int{1, 2, 3})
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
}

func TestRunProgressCallback(t *testing.T) {
	var calls atomic.Int32
	var lastTotal atomic.Int32
	pool := New(Config[int, int]{
		Workers: 2,
		Process: func(_ context.Context, n int) (int, error) { return n, nil },
		OnProgress: func(completed, total, failed int) {
			calls.Add(1)
			lastTotal.Store(int32(total))
		},
	})

	pool.Run(context.Background(), []int{1, 2, 3, 4})
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, int32(4), lastTotal.Load())
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := New(Config[int, int]{
		Workers: 1,
		Process: func(_ context.Context, n int) (int, error) { return n, nil },
	})

	results := pool.Run(ctx, []int{1, 2, 3})
	require.Len(t, results, 3)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestRunEmptyInput(t *testing.T) {
	pool := New(Config[int, int]{Workers: 2, Process: func(_ context.Context, n int) (int, error) { return n, nil }})
	assert.Nil(t, pool.Run(context.Background(), nil))
}
