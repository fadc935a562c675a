package domain

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTool is returned when a persisted tool names a type that no
// implementation has registered.
var ErrUnknownTool = errors.New("unknown tool type")

// ToolFactory creates a tool instance with the given ID.
// Implementations register themselves with the registry using RegisterTool().
type ToolFactory func(id string) Tool

// registry maps tool type names to their factories
var (
	registry      = make(map[string]ToolFactory)
	registryMutex sync.RWMutex
)

// RegisterTool registers a tool implementation factory under its type name.
// This is called from init() functions in implementation packages.
//
// Example:
//
//	func init() {
//	    domain.RegisterTool("web_search", NewWebSearchTool)
//	}
func RegisterTool(name string, factory ToolFactory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if factory == nil {
		panic(fmt.Sprintf("domain: RegisterTool factory is nil for type %s", name))
	}

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("domain: RegisterTool called twice for type %s", name))
	}

	registry[name] = factory
}

// NewTool constructs a tool of the given type with the given ID.
func NewTool(name, id string) (Tool, error) {
	registryMutex.RLock()
	factory := registry[name]
	registryMutex.RUnlock()

	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return factory(id), nil
}

// IsToolRegistered returns true if a factory is registered for the given
// tool type.
func IsToolRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, exists := registry[name]
	return exists
}

// RegisteredToolTypes returns all registered tool type names, sorted.
// Useful for testing and debugging.
func RegisteredToolTypes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnregisterAllTools clears all registered factories.
// This is primarily useful for testing.
func UnregisterAllTools() {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	registry = make(map[string]ToolFactory)
}
