// Package collector is the registry of pluggable result sinks named
// by the catalog's overlay config. Go has no equivalent to a
// directory-scanning module loader, so this uses a compiled-in
// named-factory registry instead of dynamic discovery.
package collector

import (
	"context"
	"fmt"
	"sync"
)

// Collector receives one iteration's final cmd/result pair.
type Collector interface {
	Collect(ctx context.Context, hostID string, lastCommand []string, lastResult any) error
}

// Config is the overlay config subtree a named collector factory
// needs to construct itself (connection strings, TTLs, and the like).
// Concrete collector packages decode the subset of keys they use.
type Config map[string]any

// Factory builds a Collector from overlay config.
type Factory func(cfg Config) (Collector, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a named collector factory to the registry. Called
// from each collector subpackage's init, and by tests that need a
// fake collector under a known name.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// Build resolves name to its factory and constructs a Collector from
// cfg. An unknown name is reported as an error.
func Build(name string, cfg Config) (Collector, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("collector: unknown collector %q", name)
	}
	return factory(cfg)
}
