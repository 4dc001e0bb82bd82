// Package capability defines the typed tags components use to declare what
// they produce and consume, and the set operations the chain assembler uses
// to validate adjacency. Capabilities are declared statically on each
// component instance and checked by set intersection, never by type
// introspection.
package capability

import (
	"sort"
	"strings"
)

// Capability is an opaque tag identifying a produced or consumed role,
// for example "produces:documents" or "consumes:documents".
type Capability string

// Lifecycle is the opt-in marker indicating a component needs start/stop
// hooks driven around its use in a chain. A component declaring it must
// implement the component.Lifecycle interface.
const Lifecycle Capability = "lifecycle"

// Set is an unordered collection of capabilities.
type Set map[Capability]struct{}

// NewSet creates a set containing the given capabilities.
func NewSet(caps ...Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Add inserts a capability into the set.
func (s Set) Add(c Capability) {
	s[c] = struct{}{}
}

// Has reports whether the set contains the given capability.
func (s Set) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Intersects reports whether the two sets share at least one capability.
func (s Set) Intersects(other Set) bool {
	// Iterate over the smaller set
	small, large := s, other
	if len(other) < len(s) {
		small, large = other, s
	}
	for c := range small {
		if _, ok := large[c]; ok {
			return true
		}
	}
	return false
}

// Union returns a new set containing every capability from both sets.
func (s Set) Union(other Set) Set {
	u := make(Set, len(s)+len(other))
	for c := range s {
		u[c] = struct{}{}
	}
	for c := range other {
		u[c] = struct{}{}
	}
	return u
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for cap := range s {
		c[cap] = struct{}{}
	}
	return c
}

// List returns the capabilities in sorted order.
func (s Set) List() []Capability {
	list := make([]Capability, 0, len(s))
	for c := range s {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// Strings returns the sorted capabilities as plain strings, suitable for
// error payloads and log attributes.
func (s Set) Strings() []string {
	list := s.List()
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = string(c)
	}
	return out
}

// String returns a stable human-readable rendering of the set.
func (s Set) String() string {
	return "{" + strings.Join(s.Strings(), ", ") + "}"
}
