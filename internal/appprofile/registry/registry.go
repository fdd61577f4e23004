// Package registry holds the setting keys understood by the graphics
// driver's application profile support.
//
// Profiles may contain any key. The registry is used to canonicalize the
// spelling of known keys, to describe them, and to warn about keys the
// driver will not recognize.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrKeyAlreadyRegistered indicates an attempt to register a duplicate key.
var ErrKeyAlreadyRegistered = errors.New("key already registered")

// ValueType is the kind of value a key expects.
type ValueType uint8

const (
	TypeInteger ValueType = iota
	TypeBoolean
	TypeString
	TypeStringOrInteger
)

// String returns the type name.
func (t ValueType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	case TypeString:
		return "string"
	case TypeStringOrInteger:
		return "string or integer"
	default:
		return "unknown"
	}
}

// Key describes a known setting key.
type Key struct {
	// Name is the canonical spelling.
	Name string
	// Type is the kind of value the driver expects.
	Type ValueType
	// Description is help text shown to users.
	Description string
}

// Registry maintains known keys. Lookups are case-insensitive.
type Registry struct {
	mu    sync.RWMutex
	keys  map[string]*Key
	order []*Key
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		keys: make(map[string]*Key),
	}
}

// NewWithDefaults creates a registry with the driver's known keys.
func NewWithDefaults() *Registry {
	r := New()
	r.RegisterDefaults()
	return r
}

// Register adds a key to the registry.
// Returns an error if a key with the same name in any case exists.
func (r *Registry) Register(key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fold := strings.ToLower(key.Name)
	if _, exists := r.keys[fold]; exists {
		return fmt.Errorf("%w: %s", ErrKeyAlreadyRegistered, key.Name)
	}

	k := &key
	r.keys[fold] = k
	r.order = append(r.order, k)
	return nil
}

// MustRegister registers a key and panics on error.
func (r *Registry) MustRegister(key Key) {
	if err := r.Register(key); err != nil {
		panic(err)
	}
}

// Lookup returns the key matching name regardless of case.
func (r *Registry) Lookup(name string) (*Key, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[strings.ToLower(name)]
	return k, ok
}

// Canonical returns the canonical spelling of name. Unknown names are
// returned unchanged with ok set to false.
func (r *Registry) Canonical(name string) (canonical string, ok bool) {
	if k, found := r.Lookup(name); found {
		return k.Name, true
	}
	return name, false
}

// Has reports whether name is a known key.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// All returns all keys in registration order.
func (r *Registry) All() []*Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Key, len(r.order))
	copy(result, r.order)
	return result
}

// Names returns the canonical names of all keys in registration order.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, k := range all {
		names[i] = k.Name
	}
	return names
}

// Search finds keys whose name or description contains query.
func (r *Registry) Search(query string) []*Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query = strings.ToLower(query)
	var result []*Key
	for _, k := range r.order {
		if strings.Contains(strings.ToLower(k.Name), query) ||
			strings.Contains(strings.ToLower(k.Description), query) {
			result = append(result, k)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}
