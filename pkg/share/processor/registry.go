package processor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lakegate/lakegate/pkg/share/models"
)

// Registry maps shareable types to processors. Registration happens during
// startup wiring; Seal freezes the registry before the first share run so
// dispatch is a plain map lookup afterwards.
type Registry struct {
	mu         sync.RWMutex
	processors map[models.ShareableType]Processor
	sealed     bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		processors: make(map[models.ShareableType]Processor),
	}
}

// Register adds a processor for its shareable type. Registering after Seal
// or registering two processors for the same type is a programming error.
func (r *Registry) Register(p Processor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("registry is sealed, cannot register %s", p.Type())
	}
	if _, exists := r.processors[p.Type()]; exists {
		return fmt.Errorf("processor already registered for type %s", p.Type())
	}
	r.processors[p.Type()] = p
	return nil
}

// Seal freezes the registry. Further Register calls fail.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Get returns the processor for a shareable type.
func (r *Registry) Get(itemType models.ShareableType) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.processors[itemType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrProcessorNotFound, itemType)
	}
	return p, nil
}

// Types returns the registered shareable types in stable order.
func (r *Registry) Types() []models.ShareableType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]models.ShareableType, 0, len(r.processors))
	for t := range r.processors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
