package component

// State represents the current lifecycle state of a component within a
// chain. Lifecycle-capable components move Created -> Started <->
// Processing -> Stopped -> Disposed; components without the lifecycle
// capability move directly Created -> Processing (repeatable) ->
// Disposed, skipping the Start/Stop callbacks.
type State int

const (
	// StateCreated indicates the component was created but not started
	StateCreated State = iota
	// StateStarted indicates the component's Start hook succeeded
	StateStarted
	// StateProcessing indicates the component is inside Process
	StateProcessing
	// StateStopped indicates the component's Stop hook has run
	StateStopped
	// StateUnusable indicates the component's Start hook failed; its
	// process step is treated as a pass-through failure
	StateUnusable
	// StateDisposed indicates the component's chain was disposed
	StateDisposed
)

// String returns a string representation of the component state
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateProcessing:
		return "processing"
	case StateStopped:
		return "stopped"
	case StateUnusable:
		return "unusable"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Managed tracks a component and its lifecycle state. It is used by the
// chain lifecycle manager to drive components through their state machine
// around chain execution; the component itself never stores its state.
type Managed struct {
	// Component is the actual component instance
	Component Component

	// State tracks the current lifecycle state
	State State

	// StartOrder tracks the order components were started for reverse teardown
	StartOrder int

	// LastError tracks the last error observed during a lifecycle operation
	LastError error
}
