package dispatch

import (
	"strings"
	"sync"

	"github.com/mfulz/shellgeist/interfaces"
	"github.com/mfulz/shellgeist/result"
)

// Descriptor describes a registered command. It is immutable once
// registered.
type Descriptor struct {
	Name    string
	Command interfaces.Command
	Help    string
}

// Registry maps command names to their descriptors. Registrations are
// permanent. It is read-mostly and safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Descriptor
	order  []*Descriptor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Descriptor),
	}
}

// Register binds name to cmd. Names are case-sensitive and must not contain
// whitespace. Registering a taken name fails with AlreadyRegistered and
// keeps the original.
func (r *Registry) Register(name string, cmd interfaces.Command, help string) error {
	if name == "" || strings.ContainsAny(name, " \t\r\n\"") {
		return result.Errorf(result.InvalidArgument, "invalid command name %q", name)
	}
	if cmd == nil {
		return result.Errorf(result.InvalidArgument, "command %q has no handler", name)
	}
	if fn, ok := cmd.(interfaces.CommandFunc); ok && fn == nil {
		return result.Errorf(result.InvalidArgument, "command %q has no handler", name)
	}
	if help == "" {
		if hp, ok := cmd.(interfaces.HelpProvider); ok {
			help = hp.Help()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return result.Errorf(result.AlreadyRegistered, "command %q", name)
	}
	d := &Descriptor{Name: name, Command: cmd, Help: help}
	r.byName[name] = d
	r.order = append(r.order, d)
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// List returns all descriptors in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.order))
	for i, d := range r.order {
		out[i] = *d
	}
	return out
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
