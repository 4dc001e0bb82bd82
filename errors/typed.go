package errors

import (
	"fmt"
	"strings"
	"time"
)

// DuplicateKeyError is returned when an attribute descriptor is registered
// under a key that already exists with an incompatible declared type.
type DuplicateKeyError struct {
	Key      string
	Existing string // declared type of the registered descriptor
	Incoming string // declared type of the rejected descriptor
}

// Error implements the error interface
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("attribute %q already registered with type %q, got %q",
		e.Key, e.Existing, e.Incoming)
}

// AttributeBindingError is returned when a component's declared inputs cannot
// be satisfied from the attribute context, or when a supplied value does not
// match the declared type. It is request-local and retryable with corrected
// input.
type AttributeBindingError struct {
	Component  string
	Missing    []string // required keys absent with no default
	Mismatched []string // keys whose values fail the declared type check
}

// Error implements the error interface
func (e *AttributeBindingError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required attributes [%s]",
			strings.Join(e.Missing, ", ")))
	}
	if len(e.Mismatched) > 0 {
		parts = append(parts, fmt.Sprintf("type mismatch for attributes [%s]",
			strings.Join(e.Mismatched, ", ")))
	}
	if len(parts) == 0 {
		parts = append(parts, "binding failed")
	}
	return fmt.Sprintf("component %q: %s", e.Component, strings.Join(parts, "; "))
}

// ChainAssemblyError identifies the first adjacent component pair whose
// producer capability set does not intersect the consumer's required
// successor set. Index is the position of the component whose successor
// requirements were not met; for a terminal mismatch it is the last
// component. Not retryable without reconfiguration.
type ChainAssemblyError struct {
	Index                int
	ProducerCapabilities []string
	RequiredCapabilities []string
}

// Error implements the error interface
func (e *ChainAssemblyError) Error() string {
	return fmt.Sprintf(
		"chain assembly failed at component %d: successor capabilities [%s] do not intersect required [%s]",
		e.Index,
		strings.Join(e.ProducerCapabilities, ", "),
		strings.Join(e.RequiredCapabilities, ", "))
}

// ComponentProcessingError wraps a component-level runtime failure with the
// offending component's position in the chain. It is propagated verbatim to
// every waiter coalesced on the same fingerprint.
type ComponentProcessingError struct {
	Index     int
	Component string
	Cause     error
}

// Error implements the error interface
func (e *ComponentProcessingError) Error() string {
	return fmt.Sprintf("component %d (%s): processing failed: %v", e.Index, e.Component, e.Cause)
}

// Unwrap returns the underlying cause
func (e *ComponentProcessingError) Unwrap() error {
	return e.Cause
}

// CacheTimeoutError is returned to a caller whose wait for a coalesced
// result exceeded its deadline. It is local to that caller; the in-flight
// execution continues for the benefit of other waiters and the cache.
type CacheTimeoutError struct {
	Fingerprint string
	Waited      time.Duration
}

// Error implements the error interface
func (e *CacheTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for result %s", e.Waited, e.Fingerprint)
}

// Unwrap returns ErrWaitTimeout so callers can match with errors.Is
func (e *CacheTimeoutError) Unwrap() error {
	return ErrWaitTimeout
}

// LifecycleError records a setup or teardown failure for a single component.
// It is isolated to the offending component and never aborts sibling
// lifecycle transitions.
type LifecycleError struct {
	Component string
	Op        string // "start", "stop", "dispose", "enter"
	Cause     error
}

// Error implements the error interface
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("lifecycle %s failed for component %q: %v", e.Op, e.Component, e.Cause)
}

// Unwrap returns the underlying cause
func (e *LifecycleError) Unwrap() error {
	return e.Cause
}
