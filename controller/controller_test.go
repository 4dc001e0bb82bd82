package controller

import (
	"context"
	goerrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/openscripts/carrot2/attribute"
	"github.com/openscripts/carrot2/capability"
	"github.com/openscripts/carrot2/chain"
	"github.com/openscripts/carrot2/component"
	"github.com/openscripts/carrot2/errors"
)

// testComponent is a configurable component with optional lifecycle
// hooks and an instrumented process function.
type testComponent struct {
	name      string
	kind      component.Kind
	caps      capability.Set
	successor capability.Set
	inputs    []attribute.Descriptor
	outputs   []attribute.Descriptor

	processFn  func(ctx context.Context, attrs *attribute.Context) error
	startCalls atomic.Int32
	stopCalls  atomic.Int32
	startErr   error
}

func (c *testComponent) Name() string                          { return c.name }
func (c *testComponent) Kind() component.Kind                  { return c.kind }
func (c *testComponent) Capabilities() capability.Set          { return c.caps }
func (c *testComponent) SuccessorCapabilities() capability.Set { return c.successor }
func (c *testComponent) Inputs() []attribute.Descriptor        { return c.inputs }
func (c *testComponent) Outputs() []attribute.Descriptor       { return c.outputs }

func (c *testComponent) Process(ctx context.Context, attrs *attribute.Context) error {
	if c.processFn == nil {
		return nil
	}
	return c.processFn(ctx, attrs)
}

func (c *testComponent) Start(_ context.Context) error {
	c.startCalls.Add(1)
	return c.startErr
}

func (c *testComponent) Stop(_ time.Duration) error {
	c.stopCalls.Add(1)
	return nil
}

// newQuerySource builds a single-component chain body: one cache-relevant
// string input "q", one string output "out".
func newQuerySource(processFn func(ctx context.Context, attrs *attribute.Context) error) *testComponent {
	return &testComponent{
		name:      "query-source",
		kind:      component.Source,
		caps:      capability.NewSet("produces:text"),
		successor: capability.NewSet(),
		inputs: []attribute.Descriptor{
			{Key: "q", Type: attribute.TypeString, Direction: attribute.Input, CacheRelevant: true},
		},
		outputs: []attribute.Descriptor{
			{Key: "out", Type: attribute.TypeString, Direction: attribute.Output},
		},
		processFn: processFn,
	}
}

// echoProcess copies the query into the output attribute.
func echoProcess(_ context.Context, attrs *attribute.Context) error {
	q, _ := attrs.GetString("q")
	attrs.Set("out", "result:"+q)
	return nil
}

func mustChain(t *testing.T, comps ...component.Component) *chain.Chain {
	t.Helper()
	ch, err := chain.Assemble("test-chain", comps, nil)
	require.NoError(t, err)
	return ch
}

func newTestController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	ctrl, err := New(nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Close() })
	return ctrl
}

func TestProcessReturnsResult(t *testing.T) {
	ctrl := newTestController(t)
	ch := mustChain(t, newQuerySource(echoProcess))

	result, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
	require.NoError(t, err)

	out, ok := result.Output("out")
	require.True(t, ok)
	assert.Equal(t, "result:salsa", out)
	assert.Equal(t, map[string]any{"q": "salsa"}, result.Request())
	assert.Equal(t, int64(1), ctrl.Stats().Misses())
	assert.Equal(t, 1, ctrl.CacheSize())
}

func TestProcessNilChain(t *testing.T) {
	ctrl := newTestController(t)

	_, err := ctrl.Process(context.Background(), nil, nil)
	assert.True(t, goerrors.Is(err, errors.ErrInvalidData))
}

func TestProcessCacheHitSharesResult(t *testing.T) {
	ctrl := newTestController(t)

	var executions atomic.Int32
	ch := mustChain(t, newQuerySource(func(ctx context.Context, attrs *attribute.Context) error {
		executions.Add(1)
		return echoProcess(ctx, attrs)
	}))

	first, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
	require.NoError(t, err)
	second, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
	require.NoError(t, err)

	assert.Same(t, first, second, "a cache hit must return the shared result")
	assert.Equal(t, int32(1), executions.Load())
	assert.Equal(t, int64(1), ctrl.Stats().Hits())
}

func TestProcessIgnoresNonCacheRelevantAttributes(t *testing.T) {
	ctrl := newTestController(t)

	var executions atomic.Int32
	ch := mustChain(t, newQuerySource(func(ctx context.Context, attrs *attribute.Context) error {
		executions.Add(1)
		return echoProcess(ctx, attrs)
	}))

	first, err := ctrl.Process(context.Background(),
		map[string]any{"q": "salsa", "trace-id": "aaa"}, ch)
	require.NoError(t, err)
	second, err := ctrl.Process(context.Background(),
		map[string]any{"q": "salsa", "trace-id": "bbb"}, ch)
	require.NoError(t, err)

	assert.Same(t, first, second,
		"requests differing only in non-cache-relevant attributes share a fingerprint")
	assert.Equal(t, int32(1), executions.Load())
}

func TestProcessCoalescesConcurrentCallers(t *testing.T) {
	ctrl := newTestController(t)

	var executions atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	ch := mustChain(t, newQuerySource(func(ctx context.Context, attrs *attribute.Context) error {
		executions.Add(1)
		once.Do(func() { close(entered) })
		<-release
		return echoProcess(ctx, attrs)
	}))

	const callers = 5
	results := make([]*Result, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			r, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	<-entered
	// Give the remaining callers time to register as waiters
	time.Sleep(50 * time.Millisecond)
	close(release)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), executions.Load(), "identical concurrent requests share one execution")
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i], "caller %d received a different result", i)
	}
	assert.Equal(t, int64(1), ctrl.Stats().Misses())
	assert.Equal(t, int64(callers-1), ctrl.Stats().CoalescedWaiters()+ctrl.Stats().Hits())
}

func TestProcessDistinctFingerprintsRunInParallel(t *testing.T) {
	ctrl := newTestController(t)

	var inside atomic.Int32
	bothInside := make(chan struct{})
	var once sync.Once

	ch := mustChain(t, newQuerySource(func(ctx context.Context, attrs *attribute.Context) error {
		if inside.Add(1) == 2 {
			once.Do(func() { close(bothInside) })
		}
		<-bothInside
		return echoProcess(ctx, attrs)
	}))

	var g errgroup.Group
	g.Go(func() error {
		_, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
		return err
	})
	g.Go(func() error {
		_, err := ctrl.Process(context.Background(), map[string]any{"q": "mambo"}, ch)
		return err
	})

	// Both executions must be inside Process at the same time; the shared
	// channel only closes when the second one arrives.
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(2), ctrl.Stats().Executions())
	assert.Equal(t, 2, ctrl.CacheSize())
}

func TestProcessFailureBroadcastAndNeverCached(t *testing.T) {
	ctrl := newTestController(t)

	sentinel := fmt.Errorf("backend unavailable")
	var executions atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	ch := mustChain(t, newQuerySource(func(_ context.Context, _ *attribute.Context) error {
		executions.Add(1)
		once.Do(func() { close(entered) })
		<-release
		return sentinel
	}))

	const callers = 4
	errs := make([]error, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			_, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
			errs[i] = err
			return nil
		})
	}

	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), executions.Load())
	for i, err := range errs {
		require.Error(t, err, "caller %d", i)
		assert.True(t, goerrors.Is(err, sentinel), "caller %d: %v", i, err)
		assert.Equal(t, errs[0], err, "every coalesced caller receives the identical error")

		var perr *errors.ComponentProcessingError
		require.True(t, goerrors.As(err, &perr))
		assert.Equal(t, 0, perr.Index)
		assert.Equal(t, "query-source", perr.Component)
	}

	// The failure was not memoized: the next identical request re-executes
	assert.Equal(t, 0, ctrl.CacheSize())
	_, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
	require.Error(t, err)
	assert.Equal(t, int32(2), executions.Load())
	assert.Equal(t, int64(2), ctrl.Stats().Failures())
}

func TestProcessEvictsLeastRecentlyUsed(t *testing.T) {
	ctrl := newTestController(t, WithCapacity(2))

	var executions atomic.Int32
	ch := mustChain(t, newQuerySource(func(ctx context.Context, attrs *attribute.Context) error {
		executions.Add(1)
		return echoProcess(ctx, attrs)
	}))

	for _, q := range []string{"one", "two", "three"} {
		_, err := ctrl.Process(context.Background(), map[string]any{"q": q}, ch)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, ctrl.CacheSize())
	assert.Equal(t, int64(1), ctrl.Stats().Evictions())

	// "one" was evicted and re-executes; "three" is still cached
	_, err := ctrl.Process(context.Background(), map[string]any{"q": "one"}, ch)
	require.NoError(t, err)
	assert.Equal(t, int32(4), executions.Load())

	_, err = ctrl.Process(context.Background(), map[string]any{"q": "three"}, ch)
	require.NoError(t, err)
	assert.Equal(t, int32(4), executions.Load())
}

func TestProcessWaitTimeoutIsCallerLocal(t *testing.T) {
	ctrl := newTestController(t, WithWaitTimeout(30*time.Millisecond))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	ch := mustChain(t, newQuerySource(func(ctx context.Context, attrs *attribute.Context) error {
		once.Do(func() { close(entered) })
		<-release
		return echoProcess(ctx, attrs)
	}))

	execDone := make(chan error, 1)
	go func() {
		_, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
		execDone <- err
	}()
	<-entered

	// This caller coalesces and times out while the execution is blocked
	_, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
	require.Error(t, err)

	var terr *errors.CacheTimeoutError
	require.True(t, goerrors.As(err, &terr), "got %v", err)
	assert.True(t, goerrors.Is(err, errors.ErrWaitTimeout))
	assert.GreaterOrEqual(t, terr.Waited, 30*time.Millisecond)
	assert.Equal(t, int64(1), ctrl.Stats().Timeouts())

	// The in-flight execution was unaffected by the local timeout
	close(release)
	require.NoError(t, <-execDone)
	assert.Equal(t, 1, ctrl.CacheSize())
}

func TestProcessWaiterContextCancellation(t *testing.T) {
	ctrl := newTestController(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	ch := mustChain(t, newQuerySource(func(ctx context.Context, attrs *attribute.Context) error {
		once.Do(func() { close(entered) })
		<-release
		return echoProcess(ctx, attrs)
	}))

	execDone := make(chan error, 1)
	go func() {
		_, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
		execDone <- err
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := ctrl.Process(ctx, map[string]any{"q": "salsa"}, ch)
		waiterDone <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-waiterDone
	var terr *errors.CacheTimeoutError
	require.True(t, goerrors.As(err, &terr), "got %v", err)

	close(release)
	require.NoError(t, <-execDone)
}

func TestInvalidate(t *testing.T) {
	ctrl := newTestController(t)

	var executions atomic.Int32
	ch := mustChain(t, newQuerySource(func(ctx context.Context, attrs *attribute.Context) error {
		executions.Add(1)
		return echoProcess(ctx, attrs)
	}))

	attrs := map[string]any{"q": "salsa"}
	_, err := ctrl.Process(context.Background(), attrs, ch)
	require.NoError(t, err)

	fp := Fingerprint(ch, attrs)
	assert.True(t, ctrl.Invalidate(fp))
	assert.Equal(t, 0, ctrl.CacheSize())
	assert.False(t, ctrl.Invalidate(fp), "an absent fingerprint reports false")

	_, err = ctrl.Process(context.Background(), attrs, ch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), executions.Load())
}

func TestInvalidatePendingEntryIsDeferred(t *testing.T) {
	ctrl := newTestController(t)

	var executions atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	ch := mustChain(t, newQuerySource(func(ctx context.Context, attrs *attribute.Context) error {
		executions.Add(1)
		once.Do(func() { close(entered) })
		<-release
		return echoProcess(ctx, attrs)
	}))

	attrs := map[string]any{"q": "salsa"}
	execDone := make(chan error, 1)
	go func() {
		_, err := ctrl.Process(context.Background(), attrs, ch)
		execDone <- err
	}()
	<-entered

	// Invalidating a pending entry defers removal until it resolves
	assert.False(t, ctrl.Invalidate(Fingerprint(ch, attrs)))
	close(release)
	require.NoError(t, <-execDone)

	assert.Equal(t, 0, ctrl.CacheSize(), "the invalidated result must not be memoized")
	_, err := ctrl.Process(context.Background(), attrs, ch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), executions.Load())
}

func TestInvalidateAll(t *testing.T) {
	ctrl := newTestController(t)
	ch := mustChain(t, newQuerySource(echoProcess))

	for _, q := range []string{"one", "two", "three"} {
		_, err := ctrl.Process(context.Background(), map[string]any{"q": q}, ch)
		require.NoError(t, err)
	}
	require.Equal(t, 3, ctrl.CacheSize())

	assert.Equal(t, 3, ctrl.InvalidateAll())
	assert.Equal(t, 0, ctrl.CacheSize())
}

func TestLifecycleStartStopExactlyOnce(t *testing.T) {
	ctrl := newTestController(t)

	source := newQuerySource(echoProcess)
	source.caps = capability.NewSet("produces:text", capability.Lifecycle)
	ch := mustChain(t, source)

	for _, q := range []string{"one", "two", "three", "one"} {
		_, err := ctrl.Process(context.Background(), map[string]any{"q": q}, ch)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), source.startCalls.Load(), "Start runs exactly once per chain")
	assert.Equal(t, int32(0), source.stopCalls.Load())

	require.NoError(t, ctrl.Close())
	assert.Equal(t, int32(1), source.stopCalls.Load(), "Stop runs exactly once at teardown")
}

func TestStartFailureYieldsProcessingError(t *testing.T) {
	ctrl := newTestController(t)

	source := newQuerySource(echoProcess)
	source.caps = capability.NewSet("produces:text", capability.Lifecycle)
	source.startErr = fmt.Errorf("port already bound")
	ch := mustChain(t, source)

	_, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
	require.Error(t, err)

	var perr *errors.ComponentProcessingError
	require.True(t, goerrors.As(err, &perr), "got %v", err)
	var lerr *errors.LifecycleError
	assert.True(t, goerrors.As(err, &lerr))
	assert.Equal(t, 0, ctrl.CacheSize(), "failures are never memoized")
}

func TestCloseRefusesNewWork(t *testing.T) {
	ctrl := newTestController(t)
	ch := mustChain(t, newQuerySource(echoProcess))

	_, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
	require.NoError(t, err)

	require.NoError(t, ctrl.Close())
	require.NoError(t, ctrl.Close(), "Close is idempotent")

	_, err = ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
	assert.True(t, goerrors.Is(err, errors.ErrShuttingDown))
	assert.Equal(t, 0, ctrl.CacheSize(), "Close clears the cache")
}

func TestDirectoryAggregatesDescriptors(t *testing.T) {
	ctrl := newTestController(t)
	ch := mustChain(t, newQuerySource(echoProcess))

	_, err := ctrl.Process(context.Background(), map[string]any{"q": "salsa"}, ch)
	require.NoError(t, err)

	dir := ctrl.Directory()
	if _, ok := dir.Descriptor("q"); !ok {
		t.Error("Expected the input descriptor registered")
	}
	if _, ok := dir.Descriptor("out"); !ok {
		t.Error("Expected the output descriptor registered")
	}
}

func TestNewRejectsInvalidCapacity(t *testing.T) {
	_, err := New(nil, WithCapacity(0))
	assert.True(t, goerrors.Is(err, errors.ErrInvalidConfig))
}
