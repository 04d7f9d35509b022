package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	pkgcache "SignalDesk/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, clk *clock) *ResultCache {
	t.Helper()
	opts := []pkgcache.MemoryOption{}
	if clk != nil {
		opts = append(opts, pkgcache.WithClock(clk.Now))
	}
	mem := pkgcache.NewMemoryCache(opts...)
	t.Cleanup(func() { _ = mem.Close() })
	return NewResultCache(mem, time.Hour, nil, nil)
}

func fixedResult(symbol string, p float64) models.AnalysisResult {
	return models.AnalysisResult{Symbol: symbol, CurrentPrice: 130, Support: 110, Resistance: 130, ProbabilityOfRise: p}
}

func TestGetOrComputeCachesSuccess(t *testing.T) {
	rc := newTestCache(t, nil)
	ctx := context.Background()
	var calls int32
	compute := func(context.Context) (models.AnalysisResult, error) {
		atomic.AddInt32(&calls, 1)
		return fixedResult("AAA", 0.7), nil
	}

	res, hit, err := rc.GetOrCompute(ctx, "AAA", "fp", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0.7, res.ProbabilityOfRise)

	res, hit, err = rc.GetOrCompute(ctx, "AAA", "fp", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 0.7, res.ProbabilityOfRise)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, _, err = rc.GetOrCompute(ctx, "AAA", "other", compute)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "fingerprint is part of the key")
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	rc := newTestCache(t, nil)
	release := make(chan struct{})
	var calls int32
	compute := func(context.Context) (models.AnalysisResult, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return fixedResult("AAA", 0.5), nil
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := rc.GetOrCompute(context.Background(), "AAA", "fp", compute)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrComputeNeverCachesFailure(t *testing.T) {
	rc := newTestCache(t, nil)
	ctx := context.Background()
	boom := errors.New("upstream down")
	var calls int32

	_, _, err := rc.GetOrCompute(ctx, "AAA", "fp", func(context.Context) (models.AnalysisResult, error) {
		atomic.AddInt32(&calls, 1)
		return models.AnalysisResult{}, boom
	})
	assert.ErrorIs(t, err, boom)

	res, hit, err := rc.GetOrCompute(ctx, "AAA", "fp", func(context.Context) (models.AnalysisResult, error) {
		atomic.AddInt32(&calls, 1)
		return fixedResult("AAA", 0.4), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0.4, res.ProbabilityOfRise)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetOrComputeRecoversPanic(t *testing.T) {
	rc := newTestCache(t, nil)
	_, _, err := rc.GetOrCompute(context.Background(), "AAA", "fp", func(context.Context) (models.AnalysisResult, error) {
		panic("bad index")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad index")
}

func TestGetOrComputeExpires(t *testing.T) {
	clk := &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	rc := newTestCache(t, clk)
	ctx := context.Background()
	var calls int32
	compute := func(context.Context) (models.AnalysisResult, error) {
		atomic.AddInt32(&calls, 1)
		return fixedResult("AAA", 0.5), nil
	}

	_, _, err := rc.GetOrCompute(ctx, "AAA", "fp", compute)
	require.NoError(t, err)
	clk.Advance(30 * time.Minute)
	_, hit, err := rc.GetOrCompute(ctx, "AAA", "fp", compute)
	require.NoError(t, err)
	assert.True(t, hit)

	clk.Advance(31 * time.Minute)
	_, hit, err = rc.GetOrCompute(ctx, "AAA", "fp", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestInvalidate(t *testing.T) {
	rc := newTestCache(t, nil)
	ctx := context.Background()
	var calls int32
	compute := func(context.Context) (models.AnalysisResult, error) {
		atomic.AddInt32(&calls, 1)
		return fixedResult("AAA", 0.5), nil
	}

	for _, fp := range []string{"a", "b"} {
		_, _, err := rc.GetOrCompute(ctx, "AAA", fp, compute)
		require.NoError(t, err)
	}
	_, _, err := rc.GetOrCompute(ctx, "AAAB", "a", compute)
	require.NoError(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))

	require.NoError(t, rc.Invalidate(ctx, "AAA"))

	_, hit, err := rc.GetOrCompute(ctx, "AAA", "a", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = rc.GetOrCompute(ctx, "AAAB", "a", compute)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestGetOrComputeCallerCancellation(t *testing.T) {
	rc := newTestCache(t, nil)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := rc.GetOrCompute(ctx, "AAA", "fp", func(context.Context) (models.AnalysisResult, error) {
		<-release
		return fixedResult("AAA", 0.5), nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
