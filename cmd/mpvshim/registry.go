package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateBinding is returned when two handlers claim the same event name.
var ErrDuplicateBinding = errors.New("duplicate event binding")

// Handler processes one event. Errors are collaborator failures; malformed
// arguments are handled (skipped or defaulted) inside the handler.
type Handler func(ctx context.Context, src Source, ev Event) error

// Binding associates an event name with its handler.
type Binding struct {
	Name    string
	Handler Handler
}

// Registry is the event name -> handler table. It is built once by NewRegistry
// and is read-only afterwards.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds a registry. Empty names, nil handlers and duplicate names
// are configuration errors.
func NewRegistry(bindings ...Binding) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(bindings))}
	for _, b := range bindings {
		if b.Name == "" {
			return nil, errors.New("registry: binding with empty event name")
		}
		if b.Handler == nil {
			return nil, fmt.Errorf("registry: nil handler for %q", b.Name)
		}
		if _, exists := r.handlers[b.Name]; exists {
			return nil, fmt.Errorf("registry: %q: %w", b.Name, ErrDuplicateBinding)
		}
		r.handlers[b.Name] = b.Handler
	}
	return r, nil
}

// Lookup returns the handler bound to name (exact match).
func (r *Registry) Lookup(name string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered event names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
