// Package controller executes component chains against attribute
// contexts with memoized, concurrency-safe results. Identical concurrent
// requests share one execution (request coalescing), successful results
// are memoized under a bound with least-recently-used eviction, and
// failed computations are never cached.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openscripts/carrot2/attribute"
	"github.com/openscripts/carrot2/chain"
	"github.com/openscripts/carrot2/config"
	"github.com/openscripts/carrot2/errors"
)

// Controller coalesces, executes, and memoizes chain requests. The
// fingerprint table and the LRU structure are the only cross-request
// shared mutable state, serialized by a single short critical section;
// chain execution for different fingerprints proceeds fully in parallel.
// The controller creates no goroutines for chain execution: a chain runs
// on the goroutine of the caller that became the executor, while
// coalesced callers block until notified.
type Controller struct {
	logger    *slog.Logger
	lifecycle *chain.Manager
	directory *attribute.Directory

	mu      sync.Mutex
	entries map[string]*cacheEntry // fingerprint table, all states
	cache   *resultCache           // ready entries in LRU order
	chains  map[string]*chain.Chain
	closed  bool

	waitTimeout   time.Duration
	shutdownGrace time.Duration

	inflight sync.WaitGroup

	stats   *Statistics        // always present
	metrics *controllerMetrics // optional
}

// New creates a controller. Statistics are always collected; Prometheus
// metrics are enabled through WithMetrics.
func New(logger *slog.Logger, opts ...Option) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}

	o := &controllerOptions{
		capacity:      config.DefaultCacheCapacity,
		waitTimeout:   config.DefaultWaitTimeout,
		shutdownGrace: config.DefaultShutdownGrace,
		stopTimeout:   config.DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.capacity < 1 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Controller", "New", "cache capacity validation")
	}

	var metrics *controllerMetrics
	if o.metricReg != nil && o.owner != "" {
		var err error
		metrics, err = newControllerMetrics(o.metricReg, o.owner)
		if err != nil {
			return nil, errors.Wrap(err, "Controller", "New", "metrics registration")
		}
	}

	return &Controller{
		logger:        logger,
		lifecycle:     chain.NewManager(logger, o.stopTimeout),
		directory:     attribute.NewDirectory(),
		entries:       make(map[string]*cacheEntry),
		cache:         newResultCache(o.capacity),
		chains:        make(map[string]*chain.Chain),
		waitTimeout:   o.waitTimeout,
		shutdownGrace: o.shutdownGrace,
		stats:         NewStatistics(),
		metrics:       metrics,
	}, nil
}

// Process executes a chain against the caller-supplied attributes. On a
// fingerprint hit the shared memoized result is returned immediately; on
// a pending entry the caller blocks until the in-flight execution
// resolves; otherwise the caller becomes the executor and runs the chain
// on its own goroutine. Every caller receives either a Result or exactly
// one typed error, never a partially populated result.
func (c *Controller) Process(ctx context.Context, attrs map[string]any, ch *chain.Chain) (*Result, error) {
	if ch == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Controller", "Process", "chain validation")
	}

	actx := attribute.FromMap(attrs)
	fp := fingerprint(ch, actx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.WrapFatal(errors.ErrShuttingDown, "Controller", "Process", "admission")
	}
	if _, seen := c.chains[ch.ID()]; !seen {
		c.chains[ch.ID()] = ch
		c.registerDescriptorsLocked(ch)
	}

	if e, exists := c.entries[fp]; exists {
		switch e.state {
		case stateReady:
			e.lastAccess = time.Now()
			c.cache.touch(e)
			c.stats.Hit()
			if c.metrics != nil {
				c.metrics.recordHit()
			}
			result := e.result
			c.mu.Unlock()
			return result, nil
		case statePending:
			e.waiters++
			c.stats.Coalesced()
			if c.metrics != nil {
				c.metrics.recordCoalesced()
			}
			c.mu.Unlock()
			return c.wait(ctx, e)
		}
	}

	// Miss: this caller becomes the executor
	e := &cacheEntry{
		fingerprint: fp,
		state:       statePending,
		done:        make(chan struct{}),
	}
	c.entries[fp] = e
	c.stats.Miss()
	if c.metrics != nil {
		c.metrics.recordMiss()
	}
	c.inflight.Add(1)
	c.mu.Unlock()

	return c.executeAndPublish(ctx, ch, actx, attrs, e)
}

// wait blocks a coalesced caller until the entry resolves, the caller's
// context expires, or the controller-level wait timeout elapses. A
// timeout is local to this caller: the in-flight execution continues for
// the benefit of other waiters and the cache.
func (c *Controller) wait(ctx context.Context, e *cacheEntry) (*Result, error) {
	start := time.Now()

	var timeout <-chan time.Time
	if c.waitTimeout > 0 {
		timer := time.NewTimer(c.waitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-e.done:
		c.mu.Lock()
		result, err := e.result, e.err
		c.waiterDrainedLocked(e)
		c.mu.Unlock()
		return result, err
	case <-ctx.Done():
	case <-timeout:
	}

	c.mu.Lock()
	c.waiterDrainedLocked(e)
	c.mu.Unlock()
	c.stats.Timeout()
	if c.metrics != nil {
		c.metrics.recordTimeout()
	}
	return nil, &errors.CacheTimeoutError{Fingerprint: e.fingerprint, Waited: time.Since(start)}
}

// executeAndPublish runs the chain, then resolves the pending entry under
// the critical section: a success transitions it to ready and inserts it
// into the bounded cache; a failure delivers the error to every waiter
// and removes the entry so the next identical request re-executes.
func (c *Controller) executeAndPublish(
	ctx context.Context, ch *chain.Chain, actx *attribute.Context, raw map[string]any, e *cacheEntry,
) (*Result, error) {
	defer c.inflight.Done()

	result, err := c.execute(ctx, ch, actx, raw)

	c.mu.Lock()
	if err != nil {
		e.err = err
		close(e.done)
		// Failures are never memoized
		delete(c.entries, e.fingerprint)
		c.stats.Failure()
		if c.metrics != nil {
			c.metrics.recordFailure()
		}
	} else {
		e.result = result
		e.state = stateReady
		e.lastAccess = time.Now()
		close(e.done)
		if e.invalidate && e.waiters == 0 {
			delete(c.entries, e.fingerprint)
		} else {
			for _, victim := range c.cache.insert(e) {
				delete(c.entries, victim.fingerprint)
				c.stats.Eviction()
				if c.metrics != nil {
					c.metrics.recordEviction()
				}
			}
		}
		c.updateSizeLocked()
	}
	c.mu.Unlock()

	return result, err
}

// execute runs the chain's components in order on the calling goroutine.
func (c *Controller) execute(
	ctx context.Context, ch *chain.Chain, actx *attribute.Context, raw map[string]any,
) (*Result, error) {
	start := time.Now()
	c.stats.Execution()

	// The executor's deadline must not cancel work other waiters and the
	// cache depend on.
	execCtx := context.WithoutCancel(ctx)

	if err := c.lifecycle.Enter(execCtx, ch); err != nil {
		return nil, err
	}

	for i, comp := range ch.Components() {
		if err := c.lifecycle.BeginProcess(ch, i); err != nil {
			return nil, &errors.ComponentProcessingError{Index: i, Component: comp.Name(), Cause: err}
		}
		if err := attribute.Bind(actx, comp.Name(), comp.Inputs()); err != nil {
			c.lifecycle.EndProcess(ch, i)
			return nil, err
		}
		if err := comp.Process(execCtx, actx); err != nil {
			c.lifecycle.EndProcess(ch, i)
			return nil, &errors.ComponentProcessingError{Index: i, Component: comp.Name(), Cause: err}
		}
		if err := attribute.Collect(comp.Name(), comp.Outputs(), actx); err != nil {
			c.lifecycle.EndProcess(ch, i)
			return nil, err
		}
		c.lifecycle.EndProcess(ch, i)
	}

	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.recordExecution(elapsed)
	}
	return newResult(ch, actx, raw, elapsed), nil
}

// Invalidate removes the memoized result for a fingerprint. An entry with
// active waiters (or still pending) is marked and removed once the last
// waiter drains; the call reports whether removal happened immediately.
func (c *Controller) Invalidate(fp string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fp]
	if !ok {
		return false
	}
	if e.waiters > 0 || e.state == statePending {
		e.invalidate = true
		return false
	}
	c.removeEntryLocked(e)
	return true
}

// InvalidateAll removes every memoized result not pinned by active
// waiters; pinned entries are removed as their waiters drain. Returns
// the number of entries removed immediately.
func (c *Controller) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, e := range c.cache.entries() {
		if e.waiters > 0 {
			e.invalidate = true
			continue
		}
		c.removeEntryLocked(e)
		removed++
	}
	return removed
}

// Close shuts the controller down: new Process calls are refused,
// in-flight executions get the grace period to finish, every chain the
// controller has executed is exited and disposed, and the cache is
// cleared. Close is idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	chains := make([]*chain.Chain, 0, len(c.chains))
	for _, ch := range c.chains {
		chains = append(chains, ch)
	}
	c.mu.Unlock()

	// Let in-flight executions finish within the grace period
	finished := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(c.shutdownGrace):
		c.logger.Warn("shutdown grace elapsed with executions still in flight",
			"grace", c.shutdownGrace)
	}

	var g errgroup.Group
	for _, ch := range chains {
		ch := ch
		g.Go(func() error {
			for _, err := range c.lifecycle.Exit(ch) {
				c.logger.Warn("component teardown error", "chain", ch.Name(), "error", err)
			}
			c.lifecycle.Dispose(ch)
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.cache = newResultCache(c.cache.maxSize)
	c.updateSizeLocked()
	c.mu.Unlock()

	return nil
}

// Stats returns the controller's statistics tracker.
func (c *Controller) Stats() *Statistics {
	return c.stats
}

// Directory returns the attribute directory aggregating every descriptor
// declared by components of chains this controller has executed.
func (c *Controller) Directory() *attribute.Directory {
	return c.directory
}

// CacheSize returns the number of memoized results currently held.
func (c *Controller) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.len()
}

// waiterDrainedLocked retires one waiter registration and completes a
// deferred invalidation when the last waiter drains. Caller holds c.mu.
func (c *Controller) waiterDrainedLocked(e *cacheEntry) {
	e.waiters--
	if e.waiters == 0 && e.invalidate {
		c.removeEntryLocked(e)
	}
}

// removeEntryLocked drops an entry from the fingerprint table and the
// LRU structure. Idempotent. Caller holds c.mu.
func (c *Controller) removeEntryLocked(e *cacheEntry) {
	delete(c.entries, e.fingerprint)
	c.cache.remove(e)
	c.updateSizeLocked()
}

// registerDescriptorsLocked registers every descriptor a chain's
// components declare with the directory. Conflicting registrations are
// logged and skipped. Caller holds c.mu.
func (c *Controller) registerDescriptorsLocked(ch *chain.Chain) {
	for _, comp := range ch.Components() {
		for _, descs := range [][]attribute.Descriptor{comp.Inputs(), comp.Outputs()} {
			for _, desc := range descs {
				if err := c.directory.Register(desc); err != nil {
					c.logger.Warn("attribute descriptor registration failed",
						"chain", ch.Name(), "component", comp.Name(), "key", desc.Key, "error", err)
				}
			}
		}
	}
}

// updateSizeLocked refreshes size tracking. Caller holds c.mu.
func (c *Controller) updateSizeLocked() {
	size := c.cache.len()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.updateSize(size)
	}
}
