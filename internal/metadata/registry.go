// Package metadata keeps a process-wide catalog of attached counter bindings
// for introspection.
package metadata

import (
	"sort"
	"sync"
)

// BindingDef describes one record type's attachment to a counter.
type BindingDef struct {
	RecordType        string `json:"recordType"`
	Counter           string `json:"counter"`
	Field             string `json:"field"`
	PrimaryKey        bool   `json:"primaryKey"`
	StartAt           int64  `json:"startAt"`
	Step              int64  `json:"step"`
	IncrementOnUpdate bool   `json:"incrementOnUpdate"`
}

// Registry stores binding definitions keyed by record type.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]BindingDef
}

func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]BindingDef),
	}
}

// Register adds or replaces the definition for def.RecordType.
func (r *Registry) Register(def BindingDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[def.RecordType] = def
}

func (r *Registry) Get(recordType string) (BindingDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.bindings[recordType]
	return d, ok
}

// List returns all definitions ordered by record type.
func (r *Registry) List() []BindingDef {
	r.mu.RLock()
	list := make([]BindingDef, 0, len(r.bindings))
	for _, def := range r.bindings {
		list = append(list, def)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].RecordType < list[j].RecordType })
	return list
}

// ByCounter returns the definitions drawing from counter.
func (r *Registry) ByCounter(counter string) []BindingDef {
	var out []BindingDef
	for _, def := range r.List() {
		if def.Counter == counter {
			out = append(out, def)
		}
	}
	return out
}
