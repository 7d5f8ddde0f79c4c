package migrate

import "errors"

var (
	// ErrIrreversible is returned when a change block holds a step that has
	// no inverse
	ErrIrreversible = errors.New("migration step is irreversible")

	// ErrInvalidSteps is returned by Rollback for a negative step count
	ErrInvalidSteps = errors.New("not a valid steps value")

	// ErrUnknownMigration is returned when an applied or requested migration
	// is not registered
	ErrUnknownMigration = errors.New("unknown migration")

	// ErrDuplicateMigration is returned when registering a migration id twice
	ErrDuplicateMigration = errors.New("migration already registered")
)
