// Package extload implements the resource extension loader (C10): a
// process-wide registry of named helper modules - codec backends, and
// anything else spec.md 4.10 describes as "loaded on first use, cached,
// thread-safe" - so that a module nobody asks for in a given run never
// pays its init cost.
package extload

import (
	"fmt"
	"sync"
)

// Loader builds one module's value. It runs at most once per module name
// for the lifetime of the process, under that module's own critical
// section (spec.md 4.10: "per-module critical section", not one global
// lock serialising unrelated modules against each other).
type Loader func() (any, error)

type slot struct {
	mu     sync.Mutex
	loaded bool
	value  any
	err    error
}

var (
	registryMu sync.Mutex
	loaders    = map[string]Loader{}
	slots      = map[string]*slot{}
)

// Register installs the Loader for a module name. Intended to run from
// package init() in the file that knows how to build that module (see
// codecs.go for the compress.Decompressor registrations), never from
// request-path code.
func Register(name string, loader Loader) {
	registryMu.Lock()
	defer registryMu.Unlock()
	loaders[name] = loader
	slots[name] = &slot{}
}

func slotFor(name string) (*slot, Loader, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	s, ok := slots[name]
	if !ok {
		return nil, nil, false
	}
	return s, loaders[name], true
}

// ErrUnknownModule is returned by Get for a name nobody has Register'd.
type ErrUnknownModule struct{ Name string }

func (e ErrUnknownModule) Error() string {
	return fmt.Sprintf("extload: no module registered under %q", e.Name)
}

// get loads (on first call) or returns the cached value/error for name.
// The double-checked pattern matches spec.md 4.10: the registry-wide lock
// only ever guards the map lookup, never the (potentially slow) load
// itself, which runs under the module's own per-slot mutex.
func get(name string) (any, error) {
	s, loader, ok := slotFor(name)
	if !ok {
		return nil, ErrUnknownModule{Name: name}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.value, s.err
	}
	s.value, s.err = loader()
	s.loaded = true
	return s.value, s.err
}

// Get loads module name (lazily, once) and type-asserts it to T. Callers
// get a typed function-pointer facade out of an otherwise untyped
// registry, matching spec.md 4.10's "exposes typed function-pointer
// facades" requirement without forcing every module to share one
// interface.
func Get[T any](name string) (T, error) {
	var zero T
	v, err := get(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("extload: module %q is %T, not %T", name, v, zero)
	}
	return t, nil
}

// Loaded reports whether name has already been loaded (successfully or
// not), without triggering a load - used by diagnostics/tests only.
func Loaded(name string) bool {
	registryMu.Lock()
	s, ok := slots[name]
	registryMu.Unlock()
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// reset clears every module's loaded state, for test isolation only.
func reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	for name := range slots {
		slots[name] = &slot{}
	}
}
