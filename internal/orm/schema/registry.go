package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry manages the record types of one application module
type Registry struct {
	types map[string]*RecordType
	short map[string][]string
	mu    sync.RWMutex
}

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*RecordType),
		short: make(map[string][]string),
	}
}

// Register registers a record type under its full name
func (r *Registry) Register(rt *RecordType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	full := rt.FullName()
	if _, exists := r.types[full]; exists {
		return fmt.Errorf("record type %s is already registered", full)
	}

	r.types[full] = rt
	if full != rt.Name() {
		r.short[rt.Name()] = append(r.short[rt.Name()], full)
	}
	return nil
}

// Get retrieves a record type by full name, or by bare name when that is
// unambiguous
func (r *Registry) Get(name string) (*RecordType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rt, ok := r.types[name]; ok {
		return rt, true
	}
	if fulls := r.short[name]; len(fulls) == 1 {
		return r.types[fulls[0]], true
	}
	return nil, false
}

// FindRecordByName resolves a record type, failing with ErrRecordNameLookup
func (r *Registry) FindRecordByName(name string) (*RecordType, error) {
	if rt, ok := r.Get(name); ok {
		return rt, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRecordNameLookup, name)
}

// List returns the full names of all record types in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered record types
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// InverseInfo describes the relation on the other side of a relation
type InverseInfo struct {
	RecordType *RecordType
	AttrName   string
	Relation   RelationKind
}

// InverseFor resolves the relation on the target type named by the inverse
// of rt's relation
func (r *Registry) InverseFor(rt *RecordType, relationName string) (*InverseInfo, error) {
	rel, ok := rt.Relation(relationName)
	if !ok {
		return nil, fmt.Errorf("%s has no relation %s", rt.FullName(), relationName)
	}

	target, err := r.targetOf(rel)
	if err != nil {
		return nil, err
	}

	inverse, ok := target.Relation(rel.Inverse)
	if !ok {
		return nil, fmt.Errorf("%s has no relation %s (inverse of %s.%s)",
			target.FullName(), rel.Inverse, rt.FullName(), relationName)
	}

	return &InverseInfo{
		RecordType: target,
		AttrName:   inverse.Name,
		Relation:   inverse.Kind,
	}, nil
}

func (r *Registry) targetOf(rel *Relation) (*RecordType, error) {
	recordName, err := rel.RecordName(r, "")
	if err != nil {
		return nil, err
	}
	module, name := rel.Owner.ParseRecordName(recordName)
	if module != "" {
		if rt, ok := r.Get(module + "::" + name); ok {
			return rt, nil
		}
	}
	return r.FindRecordByName(name)
}

// ValidateAll checks that every non-polymorphic relation resolves to a
// registered type and every through names a declared embedding
func (r *Registry) ValidateAll() error {
	var errs []error

	for _, name := range r.List() {
		rt, _ := r.Get(name)
		embeddings := rt.Embeddings()

		for _, rel := range rt.Relations() {
			if rel.InverseType == "" {
				if _, err := r.targetOf(rel); err != nil {
					errs = append(errs, &DeclarationError{Type: name, Member: rel.Name, Err: err})
				}
			}
			if rel.Through != nil {
				if _, ok := embeddings[rel.Through.Collection]; !ok {
					errs = append(errs, &DeclarationError{
						Type:   name,
						Member: rel.Name,
						Err:    fmt.Errorf("through %s is not a declared embedding", rel.Through.Collection),
					})
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("relation validation failed with %d errors: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
