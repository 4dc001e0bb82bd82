package attribute

import "sort"

// Context is an ordered mapping from attribute key to value. A Context is
// created fresh per request and is exclusively owned by the in-flight
// execution until it completes: it is mutated only by the component
// currently processing and is never shared between concurrent requests,
// so it carries no locking.
type Context struct {
	keys   []string
	values map[string]any
}

// NewContext creates an empty attribute context.
func NewContext() *Context {
	return &Context{
		values: make(map[string]any),
	}
}

// FromMap creates a context from a caller-supplied attribute map. Keys are
// inserted in sorted order so two maps with equal content produce
// identical contexts.
func FromMap(attrs map[string]any) *Context {
	c := &Context{
		keys:   make([]string, 0, len(attrs)),
		values: make(map[string]any, len(attrs)),
	}
	for k := range attrs {
		c.keys = append(c.keys, k)
	}
	sort.Strings(c.keys)
	for _, k := range c.keys {
		c.values[k] = attrs[k]
	}
	return c
}

// Set stores a value, preserving first-insertion order for new keys.
func (c *Context) Set(key string, value any) {
	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (c *Context) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of stored attributes.
func (c *Context) Len() int {
	return len(c.keys)
}

// Clone returns an independent shallow copy of the context.
func (c *Context) Clone() *Context {
	clone := &Context{
		keys:   make([]string, len(c.keys)),
		values: make(map[string]any, len(c.values)),
	}
	copy(clone.keys, c.keys)
	for k, v := range c.values {
		clone.values[k] = v
	}
	return clone
}

// Map returns the attributes as a plain map copy.
func (c *Context) Map() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// GetString returns the value under key when it is a string.
func (c *Context) GetString(key string) (string, bool) {
	v, ok := c.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt returns the value under key when it is an int.
func (c *Context) GetInt(key string) (int, bool) {
	v, ok := c.values[key]
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}
