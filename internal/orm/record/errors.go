package record

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAttribute is returned when reading or writing an undeclared attribute
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrNotNumeric is returned by Increment and Decrement on non-numeric attributes
	ErrNotNumeric = errors.New("attribute is not numeric")

	// ErrNotBoolean is returned by Toggle on non-boolean attributes
	ErrNotBoolean = errors.New("attribute is not boolean")

	// ErrAlreadyPersisted is returned when creating a record that has been created
	ErrAlreadyPersisted = errors.New("record is already persisted")

	// ErrNotPersisted is returned when updating or deleting a new record
	ErrNotPersisted = errors.New("record is not persisted")

	// ErrDestroyed is returned by lifecycle operations on a destroyed record
	ErrDestroyed = errors.New("record is destroyed")

	// ErrNoCollection is returned when a record without collection is persisted
	ErrNoCollection = errors.New("record has no collection")

	// ErrUnknownRelation is returned when a relation is not declared
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrRelationKind is returned when reading a hasMany relation as a single
	// record or the other way around
	ErrRelationKind = errors.New("wrong accessor for relation kind")

	// ErrThroughNotDeclared is returned when a through relation names an
	// embedding the record type does not declare
	ErrThroughNotDeclared = errors.New("through metadata must be declared with HasEmbed or HasEmbeds")

	// ErrInvalidReplica is returned when a replica cannot be restored
	ErrInvalidReplica = errors.New("invalid replica")

	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrValidationFailed is returned when validation fails
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError contains multiple validation errors for a record
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s: %s", ve.Errors[0].Field, ve.Errors[0].Message)
	}
	return fmt.Sprintf("validation failed: %d errors", len(ve.Errors))
}

// Is lets errors.Is(err, ErrValidationFailed) match
func (ve *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// FieldError represents a validation error on a specific field
type FieldError struct {
	Field   string
	Message string
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationFailed returns true if the error is a validation error
func IsValidationFailed(err error) bool {
	var valErr *ValidationError
	return errors.Is(err, ErrValidationFailed) || errors.As(err, &valErr)
}
