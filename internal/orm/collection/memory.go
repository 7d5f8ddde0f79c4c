package collection

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryAdapter keeps documents in process memory. Documents pass through a
// JSON round trip so they look the same as documents read from SQL or Redis.
type MemoryAdapter struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
	indexes     map[string]map[string]IndexSpec
}

// NewMemoryAdapter creates an empty in-memory adapter
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		collections: make(map[string]map[string][]byte),
		indexes:     make(map[string]map[string]IndexSpec),
	}
}

func (m *MemoryAdapter) docs(collection string) map[string][]byte {
	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string][]byte)
		m.collections[collection] = docs
	}
	return docs
}

// Push stores a new document
func (m *MemoryAdapter) Push(ctx context.Context, collection string, doc map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := DocumentKey(doc["id"])
	docs := m.docs(collection)
	if _, exists := docs[key]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicate, collection, key)
	}
	docs[key] = data
	return nil
}

// Override replaces an existing document
func (m *MemoryAdapter) Override(ctx context.Context, collection string, id interface{}, doc map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := DocumentKey(id)
	docs := m.docs(collection)
	if _, exists := docs[key]; !exists {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, key)
	}
	docs[key] = data
	return nil
}

// Remove deletes a document
func (m *MemoryAdapter) Remove(ctx context.Context, collection string, id interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := DocumentKey(id)
	docs := m.docs(collection)
	if _, exists := docs[key]; !exists {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, key)
	}
	delete(docs, key)
	return nil
}

// Take returns one document
func (m *MemoryAdapter) Take(ctx context.Context, collection string, id interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	data, ok := m.collections[collection][DocumentKey(id)]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, DocumentKey(id))
	}
	return decodeDocument(data)
}

// Query returns all documents of a collection ordered by key
func (m *MemoryAdapter) Query(ctx context.Context, collection string) ([]map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	stored := m.collections[collection]
	keys := make([]string, 0, len(stored))
	for key := range stored {
		keys = append(keys, key)
	}
	sortKeys(keys)
	raw := make([][]byte, len(keys))
	for i, key := range keys {
		raw[i] = stored[key]
	}
	m.mu.RUnlock()

	docs := make([]map[string]interface{}, 0, len(raw))
	for _, data := range raw {
		doc, err := decodeDocument(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Includes reports whether a document exists
func (m *MemoryAdapter) Includes(ctx context.Context, collection string, id interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[collection][DocumentKey(id)]
	return ok, nil
}

// CreateCollection registers an empty collection; existing ones are kept
func (m *MemoryAdapter) CreateCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs(name)
	return nil
}

// DropCollection removes a collection with its documents and indexes
func (m *MemoryAdapter) DropCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	delete(m.indexes, name)
	return nil
}

// RenameCollection moves documents and indexes to a new name
func (m *MemoryAdapter) RenameCollection(ctx context.Context, oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[oldName]
	if !ok {
		return fmt.Errorf("%w: collection %s", ErrNotFound, oldName)
	}
	if _, taken := m.collections[newName]; taken {
		return fmt.Errorf("%w: collection %s", ErrDuplicate, newName)
	}
	m.collections[newName] = docs
	delete(m.collections, oldName)
	if idx, ok := m.indexes[oldName]; ok {
		m.indexes[newName] = idx
		delete(m.indexes, oldName)
	}
	return nil
}

// AddIndex records index metadata
func (m *MemoryAdapter) AddIndex(ctx context.Context, collection string, index IndexSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.indexes[collection]
	if !ok {
		idx = make(map[string]IndexSpec)
		m.indexes[collection] = idx
	}
	if _, exists := idx[index.Name]; exists {
		return fmt.Errorf("%w: index %s", ErrDuplicate, index.Name)
	}
	idx[index.Name] = index
	return nil
}

// RemoveIndex drops index metadata
func (m *MemoryAdapter) RemoveIndex(ctx context.Context, collection, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.indexes[collection][name]; !exists {
		return fmt.Errorf("%w: index %s", ErrNotFound, name)
	}
	delete(m.indexes[collection], name)
	return nil
}

// RenameIndex renames index metadata
func (m *MemoryAdapter) RenameIndex(ctx context.Context, collection, oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	spec, exists := m.indexes[collection][oldName]
	if !exists {
		return fmt.Errorf("%w: index %s", ErrNotFound, oldName)
	}
	delete(m.indexes[collection], oldName)
	spec.Name = newName
	m.indexes[collection][newName] = spec
	return nil
}

// Indexes returns the indexes of a collection sorted by name
func (m *MemoryAdapter) Indexes(collection string) []IndexSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()

	specs := make([]IndexSpec, 0, len(m.indexes[collection]))
	for _, spec := range m.indexes[collection] {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Collections returns the collection names sorted
func (m *MemoryAdapter) Collections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
