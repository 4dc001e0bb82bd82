// Package attribute provides the attribute directory, the per-request
// attribute context, and the descriptor-driven bind/collect functions that
// move named values between the context and the components of a chain.
package attribute

import "fmt"

// Direction declares how an attribute flows relative to a component.
type Direction int

const (
	// Input attributes are pushed into a component before it processes
	Input Direction = iota
	// Output attributes are collected from the context after processing
	Output
	// InputOutput attributes flow both ways
	InputOutput
)

// String returns a string representation of the direction
func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case InputOutput:
		return "input-output"
	default:
		return "unknown"
	}
}

// Type is the declared value type of an attribute. Built-in types are
// strictly checked during binding; any other named type is treated as
// opaque and accepted as-is (components that share a named type agree on
// its Go representation out of band).
type Type string

const (
	// TypeString declares a string value
	TypeString Type = "string"
	// TypeInt declares an int value
	TypeInt Type = "int"
	// TypeFloat declares a float64 value
	TypeFloat Type = "float"
	// TypeBool declares a bool value
	TypeBool Type = "bool"
	// TypeAny declares an unconstrained value
	TypeAny Type = "any"
)

// Doc carries presentation metadata consumed by UI-facing collaborators.
// The core never interprets it.
type Doc struct {
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Advanced    bool   `json:"advanced,omitempty"`
}

// Descriptor describes a single named attribute: its key, declared type,
// default value, flow direction, and whether it participates in request
// fingerprinting. Descriptors are immutable once registered with a
// Directory; components reference them, never copy them.
type Descriptor struct {
	Key           string `json:"key"` // namespaced, e.g. "core.query"
	Type          Type   `json:"type"`
	Default       any    `json:"default,omitempty"`
	Direction     Direction `json:"direction"`
	CacheRelevant bool      `json:"cache_relevant"`
	Doc           Doc       `json:"doc,omitempty"`
}

// Validate checks structural requirements for a descriptor.
func (d Descriptor) Validate() error {
	if d.Key == "" {
		return fmt.Errorf("descriptor key must not be empty")
	}
	if d.Type == "" {
		return fmt.Errorf("descriptor %q: type must not be empty", d.Key)
	}
	if d.Default != nil && !d.Type.Accepts(d.Default) {
		return fmt.Errorf("descriptor %q: default value does not match declared type %q", d.Key, d.Type)
	}
	return nil
}

// Accepts reports whether a value satisfies the declared type. No implicit
// coercion is performed; an int is not a float and vice versa.
func (t Type) Accepts(v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInt:
		_, ok := v.(int)
		return ok
	case TypeFloat:
		_, ok := v.(float64)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeAny:
		return true
	default:
		// Named types are opaque to the binder
		return true
	}
}
