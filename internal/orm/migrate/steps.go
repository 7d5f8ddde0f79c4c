package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/mapper/internal/orm/schema"
)

// FieldOptions describes a document field touched by a migration. From is
// the previous type of a changed field and makes ChangeField reversible.
type FieldOptions struct {
	Type    schema.Type
	Default interface{}
	From    schema.Type
}

// IndexOptions describes an index over one or more fields. Name defaults to
// IndexName of the collection and fields.
type IndexOptions struct {
	Name   string
	Type   string
	Unique bool
	Sparse bool
}

// CollectionOptions are free-form collection properties kept in the
// collection catalog
type CollectionOptions map[string]interface{}

// Step is one recorded migration operation
type Step struct {
	Op   string
	Args []string

	apply  func(ctx context.Context, e *Executor) error
	invert func() (Step, error)
}

func (s Step) String() string {
	return s.Op + "(" + strings.Join(s.Args, ", ") + ")"
}

// Inverse returns the step undoing s
func (s Step) Inverse() (Step, error) {
	if s.invert == nil {
		return Step{}, fmt.Errorf("%w: %s", ErrIrreversible, s)
	}
	return s.invert()
}

// Steps records the operations of a migration in order
type Steps struct {
	steps []Step
}

// List returns the recorded steps
func (s *Steps) List() []Step {
	return append([]Step(nil), s.steps...)
}

func (s *Steps) add(step Step) {
	s.steps = append(s.steps, step)
}

// CreateCollection creates a document collection
func (s *Steps) CreateCollection(name string, opts ...CollectionOptions) {
	s.add(createCollection(name, mergeOptions(opts)))
}

func createCollection(name string, opts CollectionOptions) Step {
	return Step{
		Op:   "createCollection",
		Args: []string{name},
		apply: func(ctx context.Context, e *Executor) error {
			return e.CreateCollection(ctx, name, opts)
		},
		invert: func() (Step, error) { return dropCollection(name), nil },
	}
}

// CreateEdgeCollection creates the edge collection linking documents of
// from and to, named by EdgeCollectionName
func (s *Steps) CreateEdgeCollection(from, to string, opts ...CollectionOptions) {
	s.add(createEdgeCollection(from, to, mergeOptions(opts)))
}

func createEdgeCollection(from, to string, opts CollectionOptions) Step {
	return Step{
		Op:   "createEdgeCollection",
		Args: []string{from, to},
		apply: func(ctx context.Context, e *Executor) error {
			return e.CreateEdgeCollection(ctx, from, to, opts)
		},
		invert: func() (Step, error) { return dropEdgeCollection(from, to), nil },
	}
}

// AddField adds a field to every document missing it, set to the
// serialized default
func (s *Steps) AddField(collection, field string, opts FieldOptions) {
	s.add(addField(collection, field, opts))
}

func addField(collection, field string, opts FieldOptions) Step {
	return Step{
		Op:   "addField",
		Args: []string{collection, field, opts.Type.String()},
		apply: func(ctx context.Context, e *Executor) error {
			return e.AddField(ctx, collection, field, opts)
		},
		invert: func() (Step, error) { return removeField(collection, field, &opts), nil },
	}
}

// AddIndex creates an index over fields
func (s *Steps) AddIndex(collection string, fields []string, opts IndexOptions) {
	s.add(addIndex(collection, fields, opts))
}

func addIndex(collection string, fields []string, opts IndexOptions) Step {
	return Step{
		Op:   "addIndex",
		Args: []string{collection, strings.Join(fields, "+")},
		apply: func(ctx context.Context, e *Executor) error {
			return e.AddIndex(ctx, collection, fields, opts)
		},
		invert: func() (Step, error) { return removeIndex(collection, fields, &opts), nil },
	}
}

// AddTimestamps adds createdAt, updatedAt and deletedAt to every document
func (s *Steps) AddTimestamps(collection string) {
	s.add(addTimestamps(collection))
}

func addTimestamps(collection string) Step {
	return Step{
		Op:   "addTimestamps",
		Args: []string{collection},
		apply: func(ctx context.Context, e *Executor) error {
			return e.AddTimestamps(ctx, collection)
		},
		invert: func() (Step, error) { return removeTimestamps(collection), nil },
	}
}

// ChangeCollection merges opts into the collection's catalog entry. It is
// irreversible inside Change.
func (s *Steps) ChangeCollection(name string, opts CollectionOptions) {
	s.add(Step{
		Op:   "changeCollection",
		Args: []string{name},
		apply: func(ctx context.Context, e *Executor) error {
			return e.ChangeCollection(ctx, name, opts)
		},
	})
}

// ChangeField converts every stored value of field to opts.Type
func (s *Steps) ChangeField(collection, field string, opts FieldOptions) {
	s.add(changeField(collection, field, opts))
}

func changeField(collection, field string, opts FieldOptions) Step {
	step := Step{
		Op:   "changeField",
		Args: []string{collection, field, opts.Type.String()},
		apply: func(ctx context.Context, e *Executor) error {
			return e.ChangeField(ctx, collection, field, opts)
		},
	}
	if opts.From != schema.TypeNone {
		step.invert = func() (Step, error) {
			return changeField(collection, field, FieldOptions{Type: opts.From, From: opts.Type}), nil
		}
	}
	return step
}

// RenameField moves a field of every document to a new name
func (s *Steps) RenameField(collection, field, newField string) {
	s.add(renameField(collection, field, newField))
}

func renameField(collection, field, newField string) Step {
	return Step{
		Op:   "renameField",
		Args: []string{collection, field, newField},
		apply: func(ctx context.Context, e *Executor) error {
			return e.RenameField(ctx, collection, field, newField)
		},
		invert: func() (Step, error) { return renameField(collection, newField, field), nil },
	}
}

// RenameIndex renames an index
func (s *Steps) RenameIndex(collection, oldName, newName string) {
	s.add(renameIndex(collection, oldName, newName))
}

func renameIndex(collection, oldName, newName string) Step {
	return Step{
		Op:   "renameIndex",
		Args: []string{collection, oldName, newName},
		apply: func(ctx context.Context, e *Executor) error {
			return e.RenameIndex(ctx, collection, oldName, newName)
		},
		invert: func() (Step, error) { return renameIndex(collection, newName, oldName), nil },
	}
}

// RenameCollection renames a collection with its documents and indexes
func (s *Steps) RenameCollection(name, newName string) {
	s.add(renameCollection(name, newName))
}

func renameCollection(name, newName string) Step {
	return Step{
		Op:   "renameCollection",
		Args: []string{name, newName},
		apply: func(ctx context.Context, e *Executor) error {
			return e.RenameCollection(ctx, name, newName)
		},
		invert: func() (Step, error) { return renameCollection(newName, name), nil },
	}
}

// DropCollection removes a collection and its documents. It is
// irreversible inside Change.
func (s *Steps) DropCollection(name string) {
	s.add(dropCollection(name))
}

func dropCollection(name string) Step {
	return Step{
		Op:   "dropCollection",
		Args: []string{name},
		apply: func(ctx context.Context, e *Executor) error {
			return e.DropCollection(ctx, name)
		},
	}
}

// DropEdgeCollection removes the edge collection linking from and to
func (s *Steps) DropEdgeCollection(from, to string) {
	s.add(dropEdgeCollection(from, to))
}

func dropEdgeCollection(from, to string) Step {
	return Step{
		Op:   "dropEdgeCollection",
		Args: []string{from, to},
		apply: func(ctx context.Context, e *Executor) error {
			return e.DropCollection(ctx, EdgeCollectionName(from, to))
		},
		invert: func() (Step, error) { return createEdgeCollection(from, to, nil), nil },
	}
}

// RemoveField deletes a field from every document. Passing the field's
// options makes the step reversible.
func (s *Steps) RemoveField(collection, field string, opts ...FieldOptions) {
	var restore *FieldOptions
	if len(opts) > 0 {
		restore = &opts[0]
	}
	s.add(removeField(collection, field, restore))
}

func removeField(collection, field string, restore *FieldOptions) Step {
	step := Step{
		Op:   "removeField",
		Args: []string{collection, field},
		apply: func(ctx context.Context, e *Executor) error {
			return e.RemoveField(ctx, collection, field)
		},
	}
	if restore != nil && restore.Type != schema.TypeNone {
		opts := *restore
		step.invert = func() (Step, error) { return addField(collection, field, opts), nil }
	}
	return step
}

// RemoveIndex drops the index over fields. Passing the index options makes
// the step reversible.
func (s *Steps) RemoveIndex(collection string, fields []string, opts ...IndexOptions) {
	var restore *IndexOptions
	if len(opts) > 0 {
		restore = &opts[0]
	}
	s.add(removeIndex(collection, fields, restore))
}

func removeIndex(collection string, fields []string, restore *IndexOptions) Step {
	var opts IndexOptions
	if restore != nil {
		opts = *restore
	}
	step := Step{
		Op:   "removeIndex",
		Args: []string{collection, strings.Join(fields, "+")},
		apply: func(ctx context.Context, e *Executor) error {
			return e.RemoveIndex(ctx, collection, fields, opts)
		},
	}
	if restore != nil {
		step.invert = func() (Step, error) { return addIndex(collection, fields, opts), nil }
	}
	return step
}

// RemoveTimestamps deletes createdAt, updatedAt and deletedAt from every
// document
func (s *Steps) RemoveTimestamps(collection string) {
	s.add(removeTimestamps(collection))
}

func removeTimestamps(collection string) Step {
	return Step{
		Op:   "removeTimestamps",
		Args: []string{collection},
		apply: func(ctx context.Context, e *Executor) error {
			return e.RemoveTimestamps(ctx, collection)
		},
		invert: func() (Step, error) { return addTimestamps(collection), nil },
	}
}

// Reversible records custom up and down steps. Inside Change the up steps
// run when migrating up and the down steps when migrating down.
func (s *Steps) Reversible(up, down func(s *Steps)) {
	s.add(reversible(collect(up), collect(down)))
}

func reversible(up, down []Step) Step {
	return Step{
		Op:   "reversible",
		Args: []string{fmt.Sprintf("%d up", len(up)), fmt.Sprintf("%d down", len(down))},
		apply: func(ctx context.Context, e *Executor) error {
			for _, step := range up {
				if err := step.apply(ctx, e); err != nil {
					return fmt.Errorf("%s: %w", step, err)
				}
			}
			return nil
		},
		invert: func() (Step, error) { return reversible(down, up), nil },
	}
}

func mergeOptions(opts []CollectionOptions) CollectionOptions {
	merged := CollectionOptions{}
	for _, o := range opts {
		for k, v := range o {
			merged[k] = v
		}
	}
	return merged
}
