// Package component defines the processing component contract and related
// types: the polymorphic source/transform/sink variants, the lifecycle
// hook contract, the per-component state machine, and the factory
// registry that resolves chain configurations into component instances.
package component

import (
	"context"
	"time"

	"github.com/openscripts/carrot2/attribute"
	"github.com/openscripts/carrot2/capability"
)

// Kind identifies the processing variant of a component.
type Kind int

const (
	// Source components produce attributes from an external origin
	Source Kind = iota
	// Transform components rewrite attributes in place
	Transform
	// Sink components consume attributes and finalize outputs
	Sink
)

// String returns a string representation of the component kind
func (k Kind) String() string {
	switch k {
	case Source:
		return "source"
	case Transform:
		return "transform"
	case Sink:
		return "sink"
	default:
		return "unknown"
	}
}

// Component is an independent processing unit composed into ordered
// chains. A component declares the capability set it exposes, the
// capability set it requires from its successor in the chain, and the
// attribute descriptors it reads and writes. Process mutates the working
// attribute context; the context is owned by exactly one execution, so
// Process never runs concurrently against the same context.
type Component interface {
	// Name returns a human-readable component name
	Name() string

	// Kind returns the processing variant
	Kind() Kind

	// Capabilities returns the capability set this component exposes
	Capabilities() capability.Set

	// SuccessorCapabilities returns the capability set required from the
	// next component in the chain. Empty for sinks.
	SuccessorCapabilities() capability.Set

	// Inputs returns the attribute descriptors bound before processing
	Inputs() []attribute.Descriptor

	// Outputs returns the attribute descriptors collected after processing
	Outputs() []attribute.Descriptor

	// Process transforms the working attribute context
	Process(ctx context.Context, attrs *attribute.Context) error
}

// Lifecycle is the hook contract for components that declare the
// capability.Lifecycle tag. The framework calls Start exactly once before
// the component's first Process and Stop exactly once during chain
// teardown, and nowhere else. Components without the lifecycle capability
// receive neither call.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// HasLifecycle reports whether a component opted into lifecycle
// management. Participation is declared through the capability set, not
// inferred from the component's type.
func HasLifecycle(c Component) bool {
	return c.Capabilities().Has(capability.Lifecycle)
}

// AsLifecycle returns the lifecycle hooks for a component that declared
// the lifecycle capability. A component declaring the capability without
// implementing the interface is reported as not lifecycle-capable.
func AsLifecycle(c Component) (Lifecycle, bool) {
	if !HasLifecycle(c) {
		return nil, false
	}
	lc, ok := c.(Lifecycle)
	return lc, ok
}
