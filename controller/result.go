package controller

import (
	"reflect"
	"time"

	"github.com/openscripts/carrot2/attribute"
	"github.com/openscripts/carrot2/chain"
)

// Result is the immutable snapshot of a chain execution: the
// Output-direction attributes plus execution metadata. A Result, once
// published, is shared by reference across every caller that hits the
// same fingerprint and is never mutated, which makes sharing across
// cache hits safe without copying.
type Result struct {
	outputs *attribute.Context
	request map[string]any
	elapsed time.Duration
	items   int
}

// newResult freezes the Output and InputOutput attributes the chain's
// components declared, in chain order, out of the working context. The
// raw request map is preserved verbatim for collaborators that need it,
// including keys no component declared.
func newResult(ch *chain.Chain, work *attribute.Context, request map[string]any, elapsed time.Duration) *Result {
	outputs := attribute.NewContext()
	for _, comp := range ch.Components() {
		for _, desc := range comp.Outputs() {
			if desc.Direction == attribute.Input {
				continue
			}
			if outputs.Has(desc.Key) {
				continue
			}
			if v, ok := work.Get(desc.Key); ok {
				outputs.Set(desc.Key, v)
			}
		}
	}

	req := make(map[string]any, len(request))
	for k, v := range request {
		req[k] = v
	}

	return &Result{
		outputs: outputs,
		request: req,
		elapsed: elapsed,
		items:   countItems(outputs),
	}
}

// countItems totals the lengths of slice-valued output attributes, the
// framework's generic notion of "items produced".
func countItems(outputs *attribute.Context) int {
	total := 0
	for _, key := range outputs.Keys() {
		v, _ := outputs.Get(key)
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice {
			total += rv.Len()
		}
	}
	return total
}

// Output returns the output attribute stored under key.
func (r *Result) Output(key string) (any, bool) {
	return r.outputs.Get(key)
}

// OutputKeys returns the output attribute keys in chain order.
func (r *Result) OutputKeys() []string {
	return r.outputs.Keys()
}

// Outputs returns the output attributes as a plain map copy.
func (r *Result) Outputs() map[string]any {
	return r.outputs.Map()
}

// Request returns a copy of the raw caller-supplied attribute map,
// including keys no component declared.
func (r *Result) Request() map[string]any {
	out := make(map[string]any, len(r.request))
	for k, v := range r.request {
		out[k] = v
	}
	return out
}

// Elapsed returns the wall-clock duration of the chain execution.
func (r *Result) Elapsed() time.Duration {
	return r.elapsed
}

// Items returns the total number of items across slice-valued outputs.
func (r *Result) Items() int {
	return r.items
}
