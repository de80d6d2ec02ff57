package safeio

import (
	"fmt"
	"sort"
	"sync"
)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
)

// BackendFactory creates a Backend from string configuration, such as the
// backend_config section of a CLI config file.
type BackendFactory func(config map[string]string) (Backend, error)

// Register makes a backend available to Open under name.
// Backend packages call it from init(); importing the package for side
// effects is enough to enable it:
//
//	import _ "github.com/grokify/safeio/backend/file"
//
// Register panics if factory is nil or name is already registered.
func Register(name string, factory BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if factory == nil {
		panic("safeio: Register factory is nil")
	}
	if _, dup := backends[name]; dup {
		panic("safeio: Register called twice for backend " + name)
	}
	backends[name] = factory
}

// Open creates the backend registered under name.
// Returns ErrUnknownBackend if name is not registered.
func Open(name string, config map[string]string) (Backend, error) {
	backendsMu.RLock()
	factory, ok := backends[name]
	backendsMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
	return factory(config)
}

// Backends returns the sorted names of registered backends.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered returns true if a backend with the given name is registered.
func IsRegistered(name string) bool {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Unregister removes a registered backend. Intended for tests.
func Unregister(name string) bool {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if _, ok := backends[name]; ok {
		delete(backends, name)
		return true
	}
	return false
}
