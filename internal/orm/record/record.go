package record

import (
	"fmt"
	"math"

	"github.com/conduit-lang/mapper/internal/orm/schema"
	"github.com/conduit-lang/mapper/internal/orm/tracking"
	"github.com/conduit-lang/mapper/internal/orm/transform"
)

// State is the lifecycle state of a record
type State int

const (
	StateNew State = iota
	StatePersisted
	StateDeleted
	StateDestroyed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StatePersisted:
		return "persisted"
	case StateDeleted:
		return "deleted"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Record is one typed entity. A record is not safe for concurrent lifecycle
// operations; run one operation at a time per instance.
type Record struct {
	class      *Class
	collection Collection
	values     map[string]interface{}
	tracker    *tracking.ChangeTracker
	state      State
}

func newRecord(class *Class, collection Collection, values map[string]interface{}, state State) *Record {
	return &Record{
		class:      class,
		collection: collection,
		values:     values,
		tracker:    tracking.NewChangeTracker(values),
		state:      state,
	}
}

// Class returns the record class
func (r *Record) Class() *Class { return r.class }

// Collection returns the collection the record persists through
func (r *Record) Collection() Collection { return r.collection }

// State returns the lifecycle state
func (r *Record) State() State { return r.state }

// IsNew reports whether the record has not been created yet
func (r *Record) IsNew() bool { return r.state == StateNew }

// ID returns the record id, nil until the record is created
func (r *Record) ID() interface{} { return r.values["id"] }

// Type returns the full record type name stored on the record
func (r *Record) Type() string {
	t, _ := r.values["type"].(string)
	return t
}

// Get returns the current value of an attribute or computed property
func (r *Record) Get(name string) interface{} {
	if v, ok := r.values[name]; ok {
		return v
	}
	if computed, ok := r.class.Type.Computeds()[name]; ok {
		return computed.Get(r)
	}
	return nil
}

// Computed evaluates a computed property
func (r *Record) Computed(name string) (interface{}, error) {
	computed, ok := r.class.Type.Computeds()[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, r.class.Name(), name)
	}
	return computed.Get(r), nil
}

// Set normalizes value through the attribute's transform and records the
// change
func (r *Record) Set(name string, value interface{}) error {
	attr, err := r.attribute(name)
	if err != nil {
		return err
	}

	normalized, err := attr.Transform.Normalize(value)
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: name, Message: err.Error()}}}
	}
	if err := attr.Check(normalized); err != nil {
		return &ValidationError{Errors: []FieldError{{Field: name, Message: err.Error()}}}
	}

	r.values[name] = normalized
	r.tracker.SetFieldValue(name, normalized)
	return nil
}

func (r *Record) attribute(name string) (*schema.Attribute, error) {
	attr, ok := r.class.Type.Attribute(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, r.class.Name(), name)
	}
	return attr, nil
}

// Increment adds delta (default 1) to a numeric attribute
func (r *Record) Increment(name string, delta ...float64) error {
	return r.add(name, step(delta))
}

// Decrement subtracts delta (default 1) from a numeric attribute
func (r *Record) Decrement(name string, delta ...float64) error {
	return r.add(name, -step(delta))
}

func step(delta []float64) float64 {
	if len(delta) == 0 {
		return 1
	}
	return delta[0]
}

func (r *Record) add(name string, delta float64) error {
	attr, err := r.attribute(name)
	if err != nil {
		return err
	}
	if !attr.Type.IsNumeric() {
		return fmt.Errorf("%w: %s.%s is %s", ErrNotNumeric, r.class.Name(), name, attr.Type)
	}

	if attr.Type == schema.TypeInteger {
		if delta != math.Trunc(delta) {
			return fmt.Errorf("%w: %s.%s is integer, delta %v", ErrNotNumeric, r.class.Name(), name, delta)
		}
		current, _ := r.values[name].(int64)
		return r.Set(name, current+int64(delta))
	}

	var current float64
	switch v := r.values[name].(type) {
	case float64:
		current = v
	case int64:
		current = float64(v)
	}
	return r.Set(name, current+delta)
}

// Toggle flips a boolean attribute
func (r *Record) Toggle(name string) error {
	attr, err := r.attribute(name)
	if err != nil {
		return err
	}
	if attr.Type != schema.TypeBoolean {
		return fmt.Errorf("%w: %s.%s is %s", ErrNotBoolean, r.class.Name(), name, attr.Type)
	}
	current, _ := r.values[name].(bool)
	return r.Set(name, !current)
}

// ChangedAttributes returns [original, current] for every attribute changed
// since the last checkpoint
func (r *Record) ChangedAttributes() map[string][2]interface{} {
	changes := r.tracker.Changes()
	result := make(map[string][2]interface{}, len(changes))
	for name, change := range changes {
		result[name] = change.Pair()
	}
	return result
}

// HasChanges reports whether any attribute changed since the last checkpoint
func (r *Record) HasChanges() bool {
	return r.tracker.HasChanges()
}

// ResetAttribute restores one attribute to its checkpoint value
func (r *Record) ResetAttribute(name string) {
	if original, ok := r.tracker.Reset(name); ok {
		r.values[name] = original
	}
}

// RollbackAttributes restores every changed attribute
func (r *Record) RollbackAttributes() {
	for name, original := range r.tracker.Rollback() {
		r.values[name] = original
	}
}

// Normalized exposes the record's typed values as a copy
func (r *Record) Normalized() map[string]interface{} {
	out := make(map[string]interface{}, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Matches reports whether the record's field equals value. value is
// normalized through the attribute transform first; InValues match any
// member.
func (r *Record) Matches(field string, value interface{}) bool {
	if in, ok := value.(InValues); ok {
		for _, v := range in {
			if r.Matches(field, v) {
				return true
			}
		}
		return false
	}

	if attr, ok := r.class.Type.Attribute(field); ok {
		if normalized, err := attr.Transform.Normalize(value); err == nil {
			value = normalized
		}
	}
	return transform.Equal(r.Get(field), value)
}

// Field is a typed accessor for one attribute
type Field[T any] struct {
	Name string
}

// NewField creates a typed accessor
func NewField[T any](name string) Field[T] {
	return Field[T]{Name: name}
}

// Get returns the value and whether it holds a T
func (f Field[T]) Get(r *Record) (T, bool) {
	v, ok := r.Get(f.Name).(T)
	return v, ok
}

// Set assigns the value through the record's tracked setter
func (f Field[T]) Set(r *Record, value T) error {
	return r.Set(f.Name, value)
}
