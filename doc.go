// Package carrot2 provides a pipeline-execution framework built around
// capability-checked chains of processing components and a caching
// controller that memoizes execution results.
//
// # Architecture
//
// The framework separates three concerns:
//
//	┌─────────────────────────────────────┐
//	│       Caching Controller            │  Result memoization,
//	│ (coalescing, LRU, invalidation)     │  request coalescing
//	└─────────────────────────────────────┘
//	           ↓ executes
//	┌─────────────────────────────────────┐
//	│            Chains                   │  Capability-checked
//	│  (source → transforms → sink)       │  component sequences
//	└─────────────────────────────────────┘
//	           ↓ exchange data via
//	┌─────────────────────────────────────┐
//	│       Attribute Contexts            │  Typed key/value maps,
//	│  (descriptors, binding, defaults)   │  declared per component
//	└─────────────────────────────────────┘
//
// Components declare what they produce and consume as capability sets;
// chain assembly verifies every adjacent pair before anything starts.
// Components also declare their input and output attributes as typed
// descriptors, and the executor binds request attributes to inputs and
// collects outputs after each processing step.
//
// # Execution and caching
//
// The controller derives a fingerprint from the chain identity and the
// cache-relevant request attributes. Concurrent requests with the same
// fingerprint coalesce onto a single execution and share the immutable
// result. Successful results are memoized in a bounded LRU cache;
// failures are broadcast to the coalesced waiters but never cached.
//
// Lifecycle-capable components are started once per chain, reused
// across executions, and stopped in reverse start order when the chain
// is torn down.
//
// # Packages
//
//   - capability: capability tags and set operations
//   - attribute: descriptors, the shared directory, and binding
//   - component: the component contract, factories, and the registry
//   - chain: chain assembly and component lifecycle management
//   - controller: the caching controller
//   - config: YAML chain and controller configuration
//   - pipeline: built-in document search components
package carrot2
