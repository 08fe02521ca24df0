// Package probe holds the Adapter contract (spec.md §4.1, §9 Design Notes:
// "Plugin polymorphism") and the process-wide registry the execution engine
// schedules work against. The registry is intentionally the simplest thing
// that could work — a read-only map populated at startup — mirroring the
// teacher's observation that new probe suites are a pure registration
// operation, not a schema change.
package probe

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roshinpv1/promptshield/internal/model"
)

// Adapter is a named, pluggable probe suite. Implementations are stateless
// apart from the shared LLM transport they delegate to (spec.md §4.1).
type Adapter interface {
	// Name returns the adapter's registration key (e.g. "garak", "pyrit").
	Name() string

	// Supports reports whether this adapter has prompts for category.
	Supports(category string) bool

	// Categories lists every category this adapter can execute.
	Categories() []string

	// Execute runs every bundled prompt for the given categories against
	// target and returns one RawFinding per (category, prompt) pair,
	// including adapter_error findings for individual prompt failures.
	// Execute must not return an error for a single probe failure; an
	// error is for conditions that make the whole call unrunnable. The
	// bundled adapters (adapters.Base) never return one and skip any
	// category they do not support.
	Execute(ctx context.Context, target model.LLMConfig, categories []string) ([]model.RawFinding, error)
}

// Registry is a read-only-after-init mapping from adapter name to Adapter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds adapter under its own Name(). Registering the same name
// twice overwrites the previous entry — callers building the default
// registry should register each adapter exactly once at startup.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns every registered adapter name, sorted for deterministic
// iteration (tests and CLI output depend on stable ordering).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WorkSet computes { (adapter, category) | adapter in libraries, category
// in categories, registry[adapter].Supports(category) }, the execution
// engine's unit of scheduling (spec.md §4.4 step 2). Unknown adapter names
// are silently skipped: a Pipeline.Libraries entry naming an adapter that
// was never registered schedules no work and is not reported as an error.
func (r *Registry) WorkSet(libraries, categories []string) []model.WorkItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var work []model.WorkItem
	for _, lib := range libraries {
		a, ok := r.adapters[lib]
		if !ok {
			continue
		}
		for _, cat := range categories {
			if a.Supports(cat) {
				work = append(work, model.WorkItem{Adapter: lib, Category: cat})
			}
		}
	}
	return work
}

// ErrAdapterNotFound is returned by helpers that require a registered name.
type ErrAdapterNotFound struct {
	Name string
}

func (e *ErrAdapterNotFound) Error() string {
	return fmt.Sprintf("probe: adapter %q is not registered", e.Name)
}
