package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/phononflow/internal/common/config"
	"github.com/G-Research/phononflow/internal/common/flowerrors"
	"github.com/G-Research/phononflow/internal/phononflow/configuration"
)

func testExecutor(label string, maxWorkers int, walltime time.Duration) configuration.ExecutorConfig {
	return configuration.ExecutorConfig{
		Label:          label,
		MaxWorkers:     maxWorkers,
		CoresPerWorker: 1,
		Provider: configuration.SlurmProviderConfig{
			Account:       "test",
			Walltime:      config.Walltime(walltime),
			NodesPerBlock: 1,
			CoresPerNode:  64,
			MaxBlocks:     1,
			Launcher:      "simple",
		},
	}
}

func newTestEngine(t *testing.T, configs ...configuration.ExecutorConfig) *Engine {
	e, err := New(configs, prometheus.NewRegistry())
	require.NoError(t, err)
	return e
}

func TestNew_RequiresExecutors(t *testing.T) {
	_, err := New(nil, prometheus.NewRegistry())
	var invalid *flowerrors.ErrInvalidArgument
	assert.ErrorAs(t, err, &invalid)
}

func TestNew_DuplicateLabels(t *testing.T) {
	_, err := New([]configuration.ExecutorConfig{
		testExecutor("a", 1, time.Minute),
		testExecutor("a", 2, time.Minute),
	}, prometheus.NewRegistry())
	var invalid *flowerrors.ErrInvalidArgument
	assert.ErrorAs(t, err, &invalid)
}

func TestNew_Capacity(t *testing.T) {
	e := newTestEngine(t, testExecutor("small", 2, time.Minute), testExecutor("large", 8, time.Minute))
	assert.Equal(t, []string{"small", "large"}, e.Labels())

	stats := e.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, int64(2), stats[0].Capacity)
	assert.Equal(t, int64(8), stats[1].Capacity)
	assert.Equal(t, 2.0, testutil.ToFloat64(e.metrics.capacity.WithLabelValues("small")))
}

func TestSubmit_Result(t *testing.T) {
	e := newTestEngine(t, testExecutor("cpu", 1, time.Minute))

	f := Submit(context.Background(), e, "cpu", "answer", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	value, err := f.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, "answer", f.Name())

	assert.False(t, e.Wait(time.Second))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.finished.WithLabelValues("cpu", outcomeSucceeded)))
}

func TestSubmit_Error(t *testing.T) {
	e := newTestEngine(t, testExecutor("cpu", 1, time.Minute))
	expected := errors.New("solver crashed")

	_, err := Submit(context.Background(), e, "cpu", "job", func(ctx context.Context) (string, error) {
		return "", expected
	}).Result(context.Background())
	assert.ErrorIs(t, err, expected)

	assert.False(t, e.Wait(time.Second))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.finished.WithLabelValues("cpu", outcomeFailed)))
}

func TestSubmit_Panic(t *testing.T) {
	e := newTestEngine(t, testExecutor("cpu", 1, time.Minute))

	_, err := Submit(context.Background(), e, "cpu", "job", func(ctx context.Context) (int, error) {
		panic("boom")
	}).Result(context.Background())
	assert.EqualError(t, err, "job panicked: boom")

	// The worker is released after a panic.
	value, err := Submit(context.Background(), e, "cpu", "next", func(ctx context.Context) (int, error) {
		return 1, nil
	}).Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, value)
}

func TestSubmit_UnknownExecutor(t *testing.T) {
	e := newTestEngine(t, testExecutor("cpu", 1, time.Minute))
	called := false

	_, err := Submit(context.Background(), e, "gpu", "job", func(ctx context.Context) (int, error) {
		called = true
		return 0, nil
	}).Result(context.Background())

	var notFound *flowerrors.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
	assert.False(t, called)
}

func TestSubmit_LimitsConcurrency(t *testing.T) {
	const capacity = 3
	e := newTestEngine(t, testExecutor("cpu", capacity, time.Minute))

	var running, peak int64
	var mu sync.Mutex
	futures := make([]*Future[int], 12)
	for i := range futures {
		i := i
		futures[i] = Submit(context.Background(), e, "cpu", "job", func(ctx context.Context) (int, error) {
			n := atomic.AddInt64(&running, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return i, nil
		})
	}
	for i, f := range futures {
		value, err := f.Result(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, value)
	}

	assert.LessOrEqual(t, peak, int64(capacity))
	assert.False(t, e.Wait(time.Second))
	stats := e.Stats()[0]
	assert.Equal(t, int64(12), stats.Submitted)
	assert.Equal(t, int64(12), stats.Finished)
	assert.Equal(t, int64(0), stats.Running)
}

func TestSubmit_WalltimeExceeded(t *testing.T) {
	e := newTestEngine(t, testExecutor("cpu", 1, 20*time.Millisecond))

	_, err := Submit(context.Background(), e, "cpu", "slow", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}).Result(context.Background())

	var timeout *flowerrors.ErrWalltimeExceeded
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "slow", timeout.Job)
	assert.Equal(t, flowerrors.ExitCodeTimeout, flowerrors.ExitCodeFromError(err))

	assert.False(t, e.Wait(time.Second))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.finished.WithLabelValues("cpu", outcomeTimedOut)))
}

func TestSubmit_CancelledWhileWaitingForWorker(t *testing.T) {
	e := newTestEngine(t, testExecutor("cpu", 1, time.Minute))
	started := make(chan struct{})
	release := make(chan struct{})

	blocker := Submit(context.Background(), e, "cpu", "blocker", func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	waiting := Submit(ctx, e, "cpu", "waiting", func(ctx context.Context) (int, error) {
		t.Error("job should never start")
		return 0, nil
	})
	cancel()

	_, err := waiting.Result(context.Background())
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	_, err = blocker.Result(context.Background())
	assert.NoError(t, err)
}

func TestSubflow_DoesNotHoldWorker(t *testing.T) {
	// A single worker is enough for a subflow that fans out jobs and waits on them.
	e := newTestEngine(t, testExecutor("cpu", 1, time.Minute))

	f := Subflow(context.Background(), e, "flow", func(ctx context.Context) ([]int, error) {
		futures := make([]*Future[int], 4)
		for i := range futures {
			i := i
			futures[i] = Submit(ctx, e, "cpu", "job", func(ctx context.Context) (int, error) {
				return i * i, nil
			})
		}
		results := make([]int, 0, len(futures))
		for _, f := range futures {
			v, err := f.Result(ctx)
			if err != nil {
				return nil, err
			}
			results = append(results, v)
		}
		return results, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results, err := f.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4, 9}, results)
}

func TestFuture_ResultHonoursContext(t *testing.T) {
	f := newFuture[int]("never")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Result(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-f.Done():
		t.Fatal("future should not be resolved")
	default:
	}
}
