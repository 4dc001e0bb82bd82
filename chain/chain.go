// Package chain assembles ordered component lists into executable chains
// and drives component lifecycle around chain execution. Assembly is a
// purely declarative compatibility check over capability sets, run once
// before any component starts.
package chain

import (
	"github.com/google/uuid"

	"github.com/openscripts/carrot2/capability"
	"github.com/openscripts/carrot2/component"
	"github.com/openscripts/carrot2/errors"
)

// Chain is a validated, ordered sequence of components forming one
// executable pipeline. Immutable after assembly; a chain is destroyed
// (all components disposed) when its owning controller shuts down.
type Chain struct {
	id         string
	name       string
	components []component.Component
	terminal   capability.Set
}

// Assemble validates and links an ordered list of components. For every
// adjacent pair, the predecessor's required-successor capability set must
// intersect the successor's exposed capability set; an empty requirement
// is vacuously satisfied. The final component must additionally expose
// the caller-specified terminal capability set. The first violation is
// reported as a ChainAssemblyError carrying the offending index and both
// capability sets.
func Assemble(name string, components []component.Component, terminal capability.Set) (*Chain, error) {
	if len(components) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyChain, "chain", "Assemble", "component list validation")
	}

	for i := 0; i < len(components)-1; i++ {
		required := components[i].SuccessorCapabilities()
		exposed := components[i+1].Capabilities()
		if len(required) > 0 && !required.Intersects(exposed) {
			return nil, &errors.ChainAssemblyError{
				Index:                i,
				ProducerCapabilities: exposed.Strings(),
				RequiredCapabilities: required.Strings(),
			}
		}
	}

	last := components[len(components)-1]
	if len(terminal) > 0 && !terminal.Intersects(last.Capabilities()) {
		return nil, &errors.ChainAssemblyError{
			Index:                len(components) - 1,
			ProducerCapabilities: last.Capabilities().Strings(),
			RequiredCapabilities: terminal.Strings(),
		}
	}

	ordered := make([]component.Component, len(components))
	copy(ordered, components)

	return &Chain{
		id:         uuid.NewString(),
		name:       name,
		components: ordered,
		terminal:   terminal.Clone(),
	}, nil
}

// ID returns the chain's unique identity, part of every request fingerprint.
func (c *Chain) ID() string {
	return c.id
}

// Name returns the configured chain name.
func (c *Chain) Name() string {
	return c.name
}

// Components returns the chain's components in execution order.
func (c *Chain) Components() []component.Component {
	out := make([]component.Component, len(c.components))
	copy(out, c.components)
	return out
}

// Len returns the number of components in the chain.
func (c *Chain) Len() int {
	return len(c.components)
}

// Terminal returns the chain's expected terminal capability set.
func (c *Chain) Terminal() capability.Set {
	return c.terminal.Clone()
}
