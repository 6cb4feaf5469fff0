package execcore

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialExecutor_RunsSynchronouslyInSubmissionOrder(t *testing.T) {
	e := NewSerialExecutor()

	var order []int

	for i := range 3 {
		i := i

		future, err := e.Submit(func() ([]Result, error) {
			order = append(order, i)

			return []Result{i}, nil
		})
		require.NoError(t, err)

		results, awaitErr := future.Await()
		require.NoError(t, awaitErr)
		assert.Equal(t, []Result{i}, results)
	}

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestSerialExecutor_SubmitAfterShutdownErrors(t *testing.T) {
	e := NewSerialExecutor()
	e.Shutdown()

	_, err := e.Submit(func() ([]Result, error) { return nil, nil })
	require.ErrorIs(t, err, ErrExecutorClosed)
}

func TestParallelExecutor_RunsAllSubmittedTasks(t *testing.T) {
	e := NewParallelExecutor(4)
	defer e.Shutdown()

	const n = 20

	var completed atomic.Int64

	futures := make([]Future, 0, n)

	for range n {
		future, err := e.Submit(func() ([]Result, error) {
			completed.Add(1)

			return []Result{"ok"}, nil
		})
		require.NoError(t, err)

		futures = append(futures, future)
	}

	for _, f := range futures {
		results, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, []Result{"ok"}, results)
	}

	assert.Equal(t, int64(n), completed.Load())
}

func TestParallelExecutor_PropagatesTaskError(t *testing.T) {
	e := NewParallelExecutor(1)
	defer e.Shutdown()

	future, err := e.Submit(func() ([]Result, error) { return nil, errFakeAnalyzerGenerate })
	require.NoError(t, err)

	_, awaitErr := future.Await()
	require.ErrorIs(t, awaitErr, errFakeAnalyzerGenerate)
}

func TestParallelExecutor_SubmitAfterShutdownErrors(t *testing.T) {
	e := NewParallelExecutor(1)
	e.Shutdown()

	_, err := e.Submit(func() ([]Result, error) { return nil, nil })
	require.ErrorIs(t, err, ErrExecutorClosed)
}

func TestParallelExecutor_ShutdownIsIdempotent(t *testing.T) {
	e := NewParallelExecutor(2)
	e.Shutdown()

	assert.NotPanics(t, func() { e.Shutdown() })
}

func TestImmediateFuture_ReturnsGivenOutcome(t *testing.T) {
	f := NewImmediateFuture([]Result{"cached"}, nil)

	results, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, []Result{"cached"}, results)
}
