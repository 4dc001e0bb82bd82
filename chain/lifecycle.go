package chain

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openscripts/carrot2/component"
	"github.com/openscripts/carrot2/errors"
)

// Manager inspects each component of a chain for the lifecycle capability
// and drives it through its state machine around chain execution.
//
// Enter starts lifecycle-capable components exactly once, in chain order;
// a Start failure marks only that component unusable. Exit stops them in
// reverse start order, tolerating individual failures so teardown always
// runs to completion. Dispose is terminal: a disposed chain must not be
// re-entered.
type Manager struct {
	mu          sync.Mutex
	logger      *slog.Logger
	stopTimeout time.Duration
	chains      map[string]*chainState // by chain ID
}

// chainState tracks per-chain managed components and disposal.
type chainState struct {
	disposed bool
	comps    []*component.Managed
	recorded []error // lifecycle errors observed for this chain
}

// NewManager creates a lifecycle manager. stopTimeout bounds each
// component's Stop hook; zero selects a 10s default.
func NewManager(logger *slog.Logger, stopTimeout time.Duration) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	return &Manager{
		logger:      logger,
		stopTimeout: stopTimeout,
		chains:      make(map[string]*chainState),
	}
}

// Enter prepares a chain for execution, starting every not-yet-started
// lifecycle-capable component in chain order. A component whose Start
// hook fails is marked unusable and the failure recorded as a
// LifecycleError; sibling components are unaffected. Entering a disposed
// chain fails.
func (m *Manager) Enter(ctx context.Context, ch *Chain) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.stateLocked(ch)
	if err != nil {
		return err
	}

	order := 0
	for _, mc := range state.comps {
		if mc.State != component.StateCreated {
			continue
		}
		lc, ok := component.AsLifecycle(mc.Component)
		if !ok {
			continue // no lifecycle capability, no Start hook
		}
		if err := lc.Start(ctx); err != nil {
			lerr := &errors.LifecycleError{Component: mc.Component.Name(), Op: "start", Cause: err}
			mc.State = component.StateUnusable
			mc.LastError = lerr
			state.recorded = append(state.recorded, lerr)
			m.logger.Warn("component start failed, marking unusable",
				"chain", ch.Name(), "component", mc.Component.Name(), "error", err)
			continue
		}
		mc.State = component.StateStarted
		mc.StartOrder = order
		order++
	}
	return nil
}

// Exit stops every lifecycle-capable component of the chain in reverse
// start order. Individual Stop failures are recorded and logged without
// aborting the remaining teardown. Exit is idempotent; components already
// stopped are skipped.
func (m *Manager) Exit(ch *Chain) []error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.chains[ch.ID()]
	if !ok {
		return nil
	}

	var errs []error
	for i := len(state.comps) - 1; i >= 0; i-- {
		mc := state.comps[i]
		if mc.State != component.StateStarted && mc.State != component.StateProcessing {
			continue
		}
		lc, ok := component.AsLifecycle(mc.Component)
		if !ok {
			continue
		}
		if err := lc.Stop(m.stopTimeout); err != nil {
			lerr := &errors.LifecycleError{Component: mc.Component.Name(), Op: "stop", Cause: err}
			mc.LastError = lerr
			state.recorded = append(state.recorded, lerr)
			errs = append(errs, lerr)
			m.logger.Warn("component stop failed",
				"chain", ch.Name(), "component", mc.Component.Name(), "error", err)
		}
		// Stopped even when the hook failed; teardown never re-runs it
		mc.State = component.StateStopped
	}
	return errs
}

// Dispose terminally retires a chain. Components still started are
// stopped first. After Dispose the chain must not be re-entered; doing so
// fails with a LifecycleError. Dispose is idempotent.
func (m *Manager) Dispose(ch *Chain) {
	m.Exit(ch)

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.chains[ch.ID()]
	if !ok {
		// Never executed; record disposal so Enter refuses later
		state = m.newStateLocked(ch)
	}
	if state.disposed {
		return
	}
	state.disposed = true
	for _, mc := range state.comps {
		mc.State = component.StateDisposed
	}
}

// BeginProcess transitions a component into the processing state and
// reports whether its process step may run. An unusable component yields
// its recorded lifecycle error; a disposed chain yields a LifecycleError.
func (m *Manager) BeginProcess(ch *Chain, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.stateLocked(ch)
	if err != nil {
		return err
	}
	mc := state.comps[index]
	switch mc.State {
	case component.StateUnusable:
		return mc.LastError
	case component.StateDisposed, component.StateStopped:
		return &errors.LifecycleError{
			Component: mc.Component.Name(),
			Op:        "enter",
			Cause:     errors.ErrDisposed,
		}
	}
	mc.State = component.StateProcessing
	return nil
}

// EndProcess transitions a component back from processing. Lifecycle
// components return to started; plain components return to created so
// their process step remains repeatable.
func (m *Manager) EndProcess(ch *Chain, index int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.chains[ch.ID()]
	if !ok {
		return
	}
	mc := state.comps[index]
	if mc.State != component.StateProcessing {
		return
	}
	if component.HasLifecycle(mc.Component) {
		mc.State = component.StateStarted
	} else {
		mc.State = component.StateCreated
	}
}

// ComponentState returns the tracked state for a chain component.
func (m *Manager) ComponentState(ch *Chain, index int) component.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.chains[ch.ID()]
	if !ok || index < 0 || index >= len(state.comps) {
		return component.StateCreated
	}
	return state.comps[index].State
}

// Errors returns every lifecycle error recorded for the chain so far.
func (m *Manager) Errors(ch *Chain) []error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.chains[ch.ID()]
	if !ok {
		return nil
	}
	out := make([]error, len(state.recorded))
	copy(out, state.recorded)
	return out
}

// stateLocked returns the managed state for a chain, creating it on first
// use. Fails when the chain was disposed. Caller holds m.mu.
func (m *Manager) stateLocked(ch *Chain) (*chainState, error) {
	state, ok := m.chains[ch.ID()]
	if !ok {
		state = m.newStateLocked(ch)
	}
	if state.disposed {
		return nil, &errors.LifecycleError{
			Component: ch.Name(),
			Op:        "enter",
			Cause:     errors.ErrDisposed,
		}
	}
	return state, nil
}

// newStateLocked initializes managed-component tracking for a chain.
// Caller holds m.mu.
func (m *Manager) newStateLocked(ch *Chain) *chainState {
	comps := ch.Components()
	managed := make([]*component.Managed, len(comps))
	for i, c := range comps {
		managed[i] = &component.Managed{Component: c, State: component.StateCreated}
	}
	state := &chainState{comps: managed}
	m.chains[ch.ID()] = state
	return state
}
