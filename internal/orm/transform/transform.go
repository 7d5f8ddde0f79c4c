// Package transform converts attribute values between the three representations
// a record goes through: raw input or storage documents, typed in-memory values,
// and plain transport data.
package transform

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

// ErrInvalidValue is returned when a value cannot be represented by a transform
var ErrInvalidValue = errors.New("invalid value")

// Schema describes which values a transform accepts
type Schema struct {
	Kind     string
	Nullable bool
}

// String returns a short description such as "boolean?"
func (s Schema) String() string {
	if s.Nullable {
		return s.Kind + "?"
	}
	return s.Kind + "!"
}

// Transform converts a single attribute value.
//
// Normalize turns raw input (user input or a stored document) into the typed
// in-memory value. Serialize turns the in-memory value into its storage form.
// Objectize produces plain data for external consumers and never fails.
type Transform interface {
	Schema() Schema
	Normalize(value interface{}) (interface{}, error)
	Serialize(value interface{}) (interface{}, error)
	Objectize(value interface{}) interface{}
}

// ForType returns the transform used by a semantic attribute type name
func ForType(name string) (Transform, error) {
	switch name {
	case "boolean":
		return Boolean{}, nil
	case "number", "float", "decimal":
		return Number{}, nil
	case "integer":
		return Integer{}, nil
	case "string", "text":
		return String{}, nil
	case "primary_key":
		return PrimaryKey{}, nil
	case "binary":
		return Binary{}, nil
	case "date", "datetime", "timestamp", "time":
		return Date{}, nil
	case "json", "hash":
		return Object{}, nil
	case "array":
		return Array{}, nil
	default:
		return nil, fmt.Errorf("no transform for type %q", name)
	}
}

// Equal reports whether two in-memory values are the same value.
// Times compare by instant, everything else deeply.
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func invalid(kind string, value interface{}) error {
	return fmt.Errorf("%w: cannot convert %T to %s", ErrInvalidValue, value, kind)
}
