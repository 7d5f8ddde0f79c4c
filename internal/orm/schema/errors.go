package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingType is returned when an attribute is declared without a type
	ErrMissingType = errors.New("attribute type is required")

	// ErrUnknownType is returned when a type name does not name a semantic type
	ErrUnknownType = errors.New("unknown attribute type")

	// ErrFrozen is returned when declaring members on a frozen record type
	ErrFrozen = errors.New("record type is frozen")

	// ErrDuplicateMember is returned when one record type declares a name twice
	ErrDuplicateMember = errors.New("member already declared")

	// ErrInvalidRule is returned when a validation rule does not compile
	ErrInvalidRule = errors.New("invalid validation rule")

	// ErrRuleViolation is returned when a value fails its attribute rule
	ErrRuleViolation = errors.New("value violates rule")

	// ErrRecordNameLookup is returned when a record name cannot be resolved
	ErrRecordNameLookup = errors.New("record type not found")
)

// DeclarationError ties a declaration failure to the record type and member
type DeclarationError struct {
	Type   string
	Member string
	Err    error
}

func (e *DeclarationError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("%s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("%s.%s: %v", e.Type, e.Member, e.Err)
}

func (e *DeclarationError) Unwrap() error {
	return e.Err
}
