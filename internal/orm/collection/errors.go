package collection

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/conduit-lang/mapper/internal/orm/record"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = record.ErrNotFound

	// ErrDuplicate is returned when pushing a document whose id is taken
	ErrDuplicate = errors.New("document already exists")

	// ErrUnsupported is returned when an adapter cannot perform an operation
	ErrUnsupported = errors.New("operation not supported by adapter")
)

// ConvertDBError converts driver-specific errors to collection errors
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.Detail)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Detail)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint &&
		(liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || liteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
		return fmt.Errorf("%w: %s", ErrDuplicate, liteErr.Error())
	}

	return err
}

// IsDuplicate returns true if the error is ErrDuplicate
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
