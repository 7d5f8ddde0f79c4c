package record

import (
	"context"

	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/orm/hooks"
	"github.com/conduit-lang/mapper/internal/orm/schema"
)

// Change notifications sent through Collection.RecordHasBeenChanged
const (
	CreatedRecord   = "createdRecord"
	UpdatedRecord   = "updatedRecord"
	DeletedRecord   = "deletedRecord"
	DestroyedRecord = "destroyedRecord"
)

// Collection is the persistence and query boundary for one record class.
// Documents are serialized records keyed by their "id" field.
type Collection interface {
	Name() string
	Resolver() Resolver
	Delegate() *Class

	TakeAll(ctx context.Context) (Cursor, error)
	TakeBy(ctx context.Context, query Query, opts ...TakeOptions) (Cursor, error)
	Find(ctx context.Context, id interface{}) (*Record, error)
	Includes(ctx context.Context, id interface{}) (bool, error)

	// Build makes a new record without persisting it
	Build(attrs map[string]interface{}) (*Record, error)
	// Create builds and persists a record
	Create(ctx context.Context, attrs map[string]interface{}) (*Record, error)

	// Push stores a new document, assigning an id when it has none, and
	// returns the stored document
	Push(ctx context.Context, doc map[string]interface{}) (map[string]interface{}, error)
	Override(ctx context.Context, id interface{}, doc map[string]interface{}) error
	Remove(ctx context.Context, id interface{}) error

	RecordHasBeenChanged(ctx context.Context, event string, r *Record)
}

// Resolver looks up collections and record classes by name. The application
// facade implements it.
type Resolver interface {
	schema.RecordLookup

	Key() string
	Collection(name string) (Collection, error)
	Class(name string) (*Class, error)
}

// HookEnvironment is implemented by collections that provide an async queue
// for after-hooks and a logger
type HookEnvironment interface {
	HookQueue() *hooks.AsyncQueue
	Logger() *zap.Logger
}

// Query matches documents whose fields equal the given values. A value built
// with In matches any of its members.
type Query map[string]interface{}

// InValues matches a field against a set of values
type InValues []interface{}

// In builds a set match for a Query field
func In(values ...interface{}) InValues {
	return InValues(values)
}

// TakeOptions limits a query
type TakeOptions struct {
	Limit      int  // 0 means no limit
	WithHidden bool // include soft-deleted documents
}
