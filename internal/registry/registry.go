// Package registry maps specialist names to handlers and to the
// natural-language descriptions the router uses to build its menu. The
// registry is populated once at startup and read-only afterwards.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Specialist names. These are the only values the gate will approve.
const (
	PerformanceDiagnosis = "performance_diagnosis"
	AudienceTargeting    = "audience_targeting"
	CreativeInventory    = "creative_inventory"
	BudgetRisk           = "budget_risk"
	DeliveryOptimization = "delivery_optimization"
)

// FallbackSpecialist is used when the gate ends up with an empty approved set.
const FallbackSpecialist = PerformanceDiagnosis

// Capability describes one registered specialist for routing purposes.
type Capability struct {
	Name        string
	Description string
	Keywords    []string
}

// Registry is the static capability registry. Register during startup,
// then share freely across workflow runs.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[string]Capability
	handlers     map[string]Specialist
	order        []string
	logger       *zap.Logger
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		capabilities: make(map[string]Capability),
		handlers:     make(map[string]Specialist),
		logger:       logger,
	}
}

// Register adds a specialist with its capability description. Registration
// order is preserved for menu building and deterministic iteration.
func (r *Registry) Register(cap Capability, handler Specialist) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cap.Name == "" {
		return fmt.Errorf("capability name is required")
	}
	if _, exists := r.capabilities[cap.Name]; exists {
		return fmt.Errorf("specialist %q already registered", cap.Name)
	}
	r.capabilities[cap.Name] = cap
	r.handlers[cap.Name] = handler
	r.order = append(r.order, cap.Name)
	r.logger.Info("Registered specialist",
		zap.String("name", cap.Name),
		zap.Int("keywords", len(cap.Keywords)),
	)
	return nil
}

// Handler returns the handler for a specialist name.
func (r *Registry) Handler(name string) (Specialist, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Capability returns the capability record for a specialist name.
func (r *Registry) Capability(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.capabilities[name]
	return c, ok
}

// Has reports whether the name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.capabilities[name]
	return ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Capabilities returns all capability records in registration order.
func (r *Registry) Capabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Capability, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.capabilities[name])
	}
	return out
}

// SortedNames returns registered names sorted alphabetically. Useful for
// stable log output; routing menus use Names() instead.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}
