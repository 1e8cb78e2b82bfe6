package stage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory creates a stage driver for a transport address. The identifier is
// the hardware serial the driver should report; drivers that can query the
// hardware for its serial may ignore it.
type Factory func(identifier, address string) (Stage, error)

// registry maps stage-type keys to driver factories. Built-in drivers
// register at startup; addons register through Register before stages are
// instantiated.
type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var defaultRegistry = &registry{factories: make(map[string]Factory)}

// Register adds a driver factory under a stage-type key, replacing any
// existing registration.
func Register(stageType string, factory Factory) {
	key := normalize(stageType)
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.factories[key] = factory
}

// New creates a stage driver by stage-type key.
func New(stageType, identifier, address string) (Stage, error) {
	key := normalize(stageType)
	defaultRegistry.mu.RLock()
	factory, ok := defaultRegistry.factories[key]
	defaultRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported stage type: %s (supported: %s)",
			stageType, strings.Join(SupportedTypes(), ", "))
	}
	return factory(identifier, address)
}

// IsSupported returns true if the given stage type is registered.
func IsSupported(stageType string) bool {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	_, ok := defaultRegistry.factories[normalize(stageType)]
	return ok
}

// SupportedTypes returns the registered stage-type keys in sorted order.
func SupportedTypes() []string {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	types := make([]string, 0, len(defaultRegistry.factories))
	for k := range defaultRegistry.factories {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
