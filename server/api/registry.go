package api

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zkattest/zkattest/common"
)

// Registry stores compiled circuits keyed by witness shape.
type Registry struct {
	mu       sync.RWMutex
	circuits map[string]*Circuit
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{circuits: make(map[string]*Circuit)}
}

// Get returns the circuit for a shape key.
func (r *Registry) Get(key string) (*Circuit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.circuits[key]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no circuit loaded for shape %s", key)
}

// Register stores a circuit under a shape key. Re-registering a shape
// replaces the previous entry.
func (r *Registry) Register(key string, c *Circuit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.circuits[key] = c
}

// LoadShape loads a shape's compiled assets from dir and registers them.
func (r *Registry) LoadShape(dir, key string) (*Circuit, error) {
	cs, pk, vk, err := common.LoadSetup(common.ShapeAssets(dir, key))
	if err != nil {
		return nil, fmt.Errorf("failed to load circuit for shape %s: %w", key, err)
	}
	c := &Circuit{CS: cs, ProvingKey: pk, VerifyingKey: vk}
	r.Register(key, c)
	return c, nil
}

// Keys returns the loaded shape keys.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.circuits))
	for k := range r.circuits {
		keys = append(keys, k)
	}
	return keys
}

// CompiledShapes lists the shape keys with assets present in dir.
func CompiledShapes(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.ccs"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.TrimSuffix(filepath.Base(m), ".ccs")
		if common.ShapeAssets(dir, key).Exist() {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
