// Package schema holds the declarative metadata of record types: attributes,
// relations, embeddings and computed properties, merged down a type hierarchy.
package schema

import (
	"fmt"

	"github.com/conduit-lang/mapper/internal/orm/transform"
)

// Type is the semantic type of an attribute
type Type int

const (
	// TypeNone marks an attribute declared without a type
	TypeNone Type = iota
	TypeJSON
	TypeBinary
	TypeBoolean
	TypeDate
	TypeDatetime
	TypeNumber
	TypeDecimal
	TypeFloat
	TypeInteger
	TypePrimaryKey
	TypeString
	TypeText
	TypeTime
	TypeTimestamp
	TypeArray
	TypeHash
)

var typeNames = map[Type]string{
	TypeJSON:       "json",
	TypeBinary:     "binary",
	TypeBoolean:    "boolean",
	TypeDate:       "date",
	TypeDatetime:   "datetime",
	TypeNumber:     "number",
	TypeDecimal:    "decimal",
	TypeFloat:      "float",
	TypeInteger:    "integer",
	TypePrimaryKey: "primary_key",
	TypeString:     "string",
	TypeText:       "text",
	TypeTime:       "time",
	TypeTimestamp:  "timestamp",
	TypeArray:      "array",
	TypeHash:       "hash",
}

// String returns the string representation of the type
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseType converts a type name to a Type
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return TypeNone, fmt.Errorf("%w: %s", ErrUnknownType, s)
}

// IsNumeric returns true for types that support increment and decrement
func (t Type) IsNumeric() bool {
	switch t {
	case TypeNumber, TypeDecimal, TypeFloat, TypeInteger:
		return true
	}
	return false
}

// Transform returns the default transform of the type
func (t Type) Transform() (transform.Transform, error) {
	return transform.ForType(t.String())
}
