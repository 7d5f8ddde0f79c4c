// Package tracking records attribute mutations on a record instance against the
// values it had at its last checkpoint (construction, save, or reset).
package tracking

import (
	"reflect"
	"sort"
	"sync"

	"github.com/conduit-lang/mapper/internal/orm/transform"
)

// FieldChange represents a change to a single field
type FieldChange struct {
	Field    string
	OldValue interface{}
	NewValue interface{}
}

// Pair returns the change as [original, current]
func (fc *FieldChange) Pair() [2]interface{} {
	return [2]interface{}{fc.OldValue, fc.NewValue}
}

// ChangeTracker tracks field changes on a record instance.
//
// A field appears in the tracker iff its current value differs from the value
// it had at the last checkpoint.
type ChangeTracker struct {
	mu         sync.RWMutex
	checkpoint map[string]interface{}
	changes    map[string]*FieldChange
}

// NewChangeTracker creates a tracker whose checkpoint is the given state
func NewChangeTracker(checkpoint map[string]interface{}) *ChangeTracker {
	return &ChangeTracker{
		checkpoint: deepCopyMap(checkpoint),
		changes:    make(map[string]*FieldChange),
	}
}

// DeepCopy returns a copy of m that shares no maps or slices with it
func DeepCopy(m map[string]interface{}) map[string]interface{} {
	return deepCopyMap(m)
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && !rv.IsNil() {
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	}
	return v
}

// SetFieldValue records that field now holds value. Setting a field back to
// its checkpoint value drops it from the tracker.
func (ct *ChangeTracker) SetFieldValue(field string, value interface{}) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	original := ct.checkpoint[field]
	if transform.Equal(original, value) {
		delete(ct.changes, field)
		return
	}
	ct.changes[field] = &FieldChange{
		Field:    field,
		OldValue: original,
		NewValue: deepCopyValue(value),
	}
}

// Changed returns true if the specified field has changed
func (ct *ChangeTracker) Changed(field string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	_, ok := ct.changes[field]
	return ok
}

// ChangedFields returns the changed field names in sorted order
func (ct *ChangeTracker) ChangedFields() []string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	fields := make([]string, 0, len(ct.changes))
	for field := range ct.changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Original returns the checkpoint value of a field
func (ct *ChangeTracker) Original(field string) interface{} {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.checkpoint[field]
}

// GetChange returns the FieldChange for a specific field, or nil if unchanged
func (ct *ChangeTracker) GetChange(field string) *FieldChange {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	if change, ok := ct.changes[field]; ok {
		c := *change
		return &c
	}
	return nil
}

// Changes returns a copy of all changes
func (ct *ChangeTracker) Changes() map[string]*FieldChange {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make(map[string]*FieldChange, len(ct.changes))
	for k, v := range ct.changes {
		c := *v
		result[k] = &c
	}
	return result
}

// HasChanges returns true if any fields have changed
func (ct *ChangeTracker) HasChanges() bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.changes) > 0
}

// ChangedTo returns true if the field changed to the specified value
func (ct *ChangeTracker) ChangedTo(field string, value interface{}) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	change, ok := ct.changes[field]
	return ok && transform.Equal(change.NewValue, value)
}

// ChangedFrom returns true if the field changed from the specified value
func (ct *ChangeTracker) ChangedFrom(field string, value interface{}) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	change, ok := ct.changes[field]
	return ok && transform.Equal(change.OldValue, value)
}

// Reset drops the change recorded for field and returns the value the caller
// must restore. ok is false when the field was not changed.
func (ct *ChangeTracker) Reset(field string) (original interface{}, ok bool) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	change, ok := ct.changes[field]
	if !ok {
		return nil, false
	}
	delete(ct.changes, field)
	return deepCopyValue(change.OldValue), true
}

// Rollback drops every recorded change and returns the original values keyed
// by field
func (ct *ChangeTracker) Rollback() map[string]interface{} {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	restored := make(map[string]interface{}, len(ct.changes))
	for field, change := range ct.changes {
		restored[field] = deepCopyValue(change.OldValue)
	}
	ct.changes = make(map[string]*FieldChange)
	return restored
}

// Checkpoint makes current the new reference state and clears all changes.
// Call it only after the state has been persisted.
func (ct *ChangeTracker) Checkpoint(current map[string]interface{}) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.checkpoint = deepCopyMap(current)
	ct.changes = make(map[string]*FieldChange)
}

// GetChangedData returns a map of only the changed fields with their new values
func (ct *ChangeTracker) GetChangedData() map[string]interface{} {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make(map[string]interface{}, len(ct.changes))
	for field, change := range ct.changes {
		result[field] = change.NewValue
	}
	return result
}
