package attribute

import (
	"sort"
	"sync"

	"github.com/openscripts/carrot2/errors"
)

// Directory is the registry of attribute descriptors. It is pure data: the
// core consults it for binding metadata and UI-facing collaborators read
// descriptors (and subscribe to registrations) to render configuration
// widgets. Thread-safe.
type Directory struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
	subscribers []func(Descriptor)
}

// NewDirectory creates an empty attribute directory.
func NewDirectory() *Directory {
	return &Directory{
		descriptors: make(map[string]Descriptor),
	}
}

// Register adds a descriptor to the directory. Registering a key that
// already exists with the same declared type is a no-op keeping the
// original descriptor; an incompatible type yields a DuplicateKeyError.
func (d *Directory) Register(desc Descriptor) error {
	if err := desc.Validate(); err != nil {
		return errors.WrapInvalid(err, "Directory", "Register", "descriptor validation")
	}

	d.mu.Lock()
	existing, exists := d.descriptors[desc.Key]
	if exists {
		d.mu.Unlock()
		if existing.Type != desc.Type {
			return &errors.DuplicateKeyError{
				Key:      desc.Key,
				Existing: string(existing.Type),
				Incoming: string(desc.Type),
			}
		}
		return nil
	}
	d.descriptors[desc.Key] = desc
	subscribers := make([]func(Descriptor), len(d.subscribers))
	copy(subscribers, d.subscribers)
	d.mu.Unlock()

	// Notify outside the lock so a subscriber may safely call back in
	for _, fn := range subscribers {
		fn(desc)
	}
	return nil
}

// Descriptor returns the descriptor registered under key.
func (d *Directory) Descriptor(key string) (Descriptor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	desc, ok := d.descriptors[key]
	return desc, ok
}

// Descriptors returns every registered descriptor sorted by key.
func (d *Directory) Descriptors() []Descriptor {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Descriptor, 0, len(d.descriptors))
	for _, desc := range d.descriptors {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of registered descriptors.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.descriptors)
}

// Subscribe registers a callback invoked for every descriptor registered
// after the subscription. Used by collaborators that need change
// notifications without coupling to any rendering toolkit.
func (d *Directory) Subscribe(fn func(Descriptor)) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.subscribers = append(d.subscribers, fn)
	d.mu.Unlock()
}
