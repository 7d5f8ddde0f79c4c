package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/orm/collection"
	"github.com/conduit-lang/mapper/internal/orm/schema"
	"github.com/conduit-lang/mapper/internal/orm/transform"
)

// CatalogCollection keeps one entry per collection created or changed by
// migrations, holding its kind and options
const CatalogCollection = "_collections"

var timestampFields = []string{"createdAt", "updatedAt", "deletedAt"}

// EdgeCollectionName names the edge collection linking from and to
func EdgeCollectionName(from, to string) string {
	return from + "_" + to
}

// IndexName is the default name of an index over fields
func IndexName(collection string, fields []string) string {
	clean := make([]string, len(fields))
	for i, f := range fields {
		clean[i] = strings.Trim(strings.ReplaceAll(f, ".", "_"), "_")
	}
	return "idx_" + collection + "_" + strings.Join(clean, "_")
}

// Executor applies migration steps to a storage adapter. Collection and
// index operations need an adapter implementing collection.SchemaAdapter;
// field operations rewrite the stored documents.
type Executor struct {
	adapter collection.Adapter
	logger  *zap.Logger

	mu      sync.Mutex
	catalog bool
}

// NewExecutor creates an executor over adapter
func NewExecutor(adapter collection.Adapter, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{adapter: adapter, logger: logger}
}

// Adapter returns the storage adapter
func (e *Executor) Adapter() collection.Adapter { return e.adapter }

func (e *Executor) schema() (collection.SchemaAdapter, error) {
	sa, ok := e.adapter.(collection.SchemaAdapter)
	if !ok {
		return nil, fmt.Errorf("%w: adapter does not manage collections", collection.ErrUnsupported)
	}
	return sa, nil
}

func (e *Executor) ensureCatalog(ctx context.Context, sa collection.SchemaAdapter) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.catalog {
		return nil
	}
	if err := sa.CreateCollection(ctx, CatalogCollection); err != nil {
		return fmt.Errorf("failed to create collection catalog: %w", err)
	}
	e.catalog = true
	return nil
}

// CatalogEntry returns the catalog document of a collection
func (e *Executor) CatalogEntry(ctx context.Context, name string) (map[string]interface{}, error) {
	return e.adapter.Take(ctx, CatalogCollection, name)
}

// CreateCollection creates a document collection and its catalog entry
func (e *Executor) CreateCollection(ctx context.Context, name string, opts CollectionOptions) error {
	return e.create(ctx, name, map[string]interface{}{"kind": "document"}, opts)
}

// CreateEdgeCollection creates an edge collection with an index on its
// _from and _to fields
func (e *Executor) CreateEdgeCollection(ctx context.Context, from, to string, opts CollectionOptions) error {
	name := EdgeCollectionName(from, to)
	entry := map[string]interface{}{"kind": "edge", "from": from, "to": to}
	if err := e.create(ctx, name, entry, opts); err != nil {
		return err
	}
	return e.AddIndex(ctx, name, []string{"_from", "_to"}, IndexOptions{Type: "edge"})
}

func (e *Executor) create(ctx context.Context, name string, entry map[string]interface{}, opts CollectionOptions) error {
	sa, err := e.schema()
	if err != nil {
		return err
	}
	if err := e.ensureCatalog(ctx, sa); err != nil {
		return err
	}

	entry["id"] = name
	entry["options"] = map[string]interface{}(opts)
	if opts == nil {
		entry["options"] = map[string]interface{}{}
	}
	if err := e.adapter.Push(ctx, CatalogCollection, entry); err != nil {
		if errors.Is(err, collection.ErrDuplicate) {
			return fmt.Errorf("collection %s already exists: %w", name, err)
		}
		return err
	}
	if err := sa.CreateCollection(ctx, name); err != nil {
		if rmErr := e.adapter.Remove(ctx, CatalogCollection, name); rmErr != nil {
			e.logger.Warn("failed to remove catalog entry", zap.String("collection", name), zap.Error(rmErr))
		}
		return err
	}
	e.logger.Info("collection created", zap.String("collection", name), zap.Any("kind", entry["kind"]))
	return nil
}

// ChangeCollection merges opts into the catalog entry of a collection
func (e *Executor) ChangeCollection(ctx context.Context, name string, opts CollectionOptions) error {
	sa, err := e.schema()
	if err != nil {
		return err
	}
	if err := e.ensureCatalog(ctx, sa); err != nil {
		return err
	}

	entry, err := e.adapter.Take(ctx, CatalogCollection, name)
	if errors.Is(err, collection.ErrNotFound) {
		entry = map[string]interface{}{"id": name, "kind": "document", "options": map[string]interface{}{}}
		merged := entry["options"].(map[string]interface{})
		for k, v := range opts {
			merged[k] = v
		}
		return e.adapter.Push(ctx, CatalogCollection, entry)
	}
	if err != nil {
		return err
	}

	merged, _ := entry["options"].(map[string]interface{})
	if merged == nil {
		merged = make(map[string]interface{})
	}
	for k, v := range opts {
		merged[k] = v
	}
	entry["options"] = merged
	return e.adapter.Override(ctx, CatalogCollection, name, entry)
}

// DropCollection drops a collection with its documents and catalog entry
func (e *Executor) DropCollection(ctx context.Context, name string) error {
	sa, err := e.schema()
	if err != nil {
		return err
	}
	if err := e.ensureCatalog(ctx, sa); err != nil {
		return err
	}
	if err := sa.DropCollection(ctx, name); err != nil {
		return err
	}
	if err := e.adapter.Remove(ctx, CatalogCollection, name); err != nil && !errors.Is(err, collection.ErrNotFound) {
		return err
	}
	e.logger.Info("collection dropped", zap.String("collection", name))
	return nil
}

// RenameCollection renames a collection and moves its catalog entry
func (e *Executor) RenameCollection(ctx context.Context, name, newName string) error {
	sa, err := e.schema()
	if err != nil {
		return err
	}
	if err := e.ensureCatalog(ctx, sa); err != nil {
		return err
	}
	if err := sa.RenameCollection(ctx, name, newName); err != nil {
		return err
	}

	entry, err := e.adapter.Take(ctx, CatalogCollection, name)
	switch {
	case errors.Is(err, collection.ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	if err := e.adapter.Remove(ctx, CatalogCollection, name); err != nil {
		return err
	}
	entry["id"] = newName
	return e.adapter.Push(ctx, CatalogCollection, entry)
}

// AddIndex creates an index over fields
func (e *Executor) AddIndex(ctx context.Context, coll string, fields []string, opts IndexOptions) error {
	sa, err := e.schema()
	if err != nil {
		return err
	}
	name := opts.Name
	if name == "" {
		name = IndexName(coll, fields)
	}
	return sa.AddIndex(ctx, coll, collection.IndexSpec{
		Name:   name,
		Fields: fields,
		Unique: opts.Unique,
		Sparse: opts.Sparse,
		Type:   opts.Type,
	})
}

// RemoveIndex drops the index over fields, named by opts.Name or IndexName
func (e *Executor) RemoveIndex(ctx context.Context, coll string, fields []string, opts IndexOptions) error {
	sa, err := e.schema()
	if err != nil {
		return err
	}
	name := opts.Name
	if name == "" {
		name = IndexName(coll, fields)
	}
	return sa.RemoveIndex(ctx, coll, name)
}

// RenameIndex renames an index
func (e *Executor) RenameIndex(ctx context.Context, coll, oldName, newName string) error {
	sa, err := e.schema()
	if err != nil {
		return err
	}
	return sa.RenameIndex(ctx, coll, oldName, newName)
}

// AddField sets field on every document missing it to the serialized
// default of opts.Type
func (e *Executor) AddField(ctx context.Context, coll, field string, opts FieldOptions) error {
	value, err := fieldValue(opts.Type, opts.Default)
	if err != nil {
		return fmt.Errorf("field %s: %w", field, err)
	}
	return e.rewrite(ctx, coll, func(doc map[string]interface{}) (bool, error) {
		if _, ok := doc[field]; ok {
			return false, nil
		}
		doc[field] = value
		return true, nil
	})
}

// ChangeField converts every stored value of field to opts.Type
func (e *Executor) ChangeField(ctx context.Context, coll, field string, opts FieldOptions) error {
	tr, err := transformFor(opts.Type)
	if err != nil {
		return fmt.Errorf("field %s: %w", field, err)
	}
	return e.rewrite(ctx, coll, func(doc map[string]interface{}) (bool, error) {
		old, ok := doc[field]
		if !ok {
			return false, nil
		}
		value, err := convert(tr, old)
		if err != nil {
			return false, fmt.Errorf("document %v field %s: %w", doc["id"], field, err)
		}
		doc[field] = value
		return true, nil
	})
}

// RenameField moves field to newField on every document holding it
func (e *Executor) RenameField(ctx context.Context, coll, field, newField string) error {
	return e.rewrite(ctx, coll, func(doc map[string]interface{}) (bool, error) {
		value, ok := doc[field]
		if !ok {
			return false, nil
		}
		delete(doc, field)
		doc[newField] = value
		return true, nil
	})
}

// RemoveField deletes field from every document
func (e *Executor) RemoveField(ctx context.Context, coll, field string) error {
	return e.removeFields(ctx, coll, field)
}

// AddTimestamps sets createdAt and updatedAt to now and deletedAt to null on
// documents missing them
func (e *Executor) AddTimestamps(ctx context.Context, coll string) error {
	stamp := transform.FormatTime(time.Now())
	defaults := map[string]interface{}{"createdAt": stamp, "updatedAt": stamp, "deletedAt": nil}
	return e.rewrite(ctx, coll, func(doc map[string]interface{}) (bool, error) {
		changed := false
		for _, f := range timestampFields {
			if _, ok := doc[f]; !ok {
				doc[f] = defaults[f]
				changed = true
			}
		}
		return changed, nil
	})
}

// RemoveTimestamps deletes createdAt, updatedAt and deletedAt from every
// document
func (e *Executor) RemoveTimestamps(ctx context.Context, coll string) error {
	return e.removeFields(ctx, coll, timestampFields...)
}

func (e *Executor) removeFields(ctx context.Context, coll string, fields ...string) error {
	return e.rewrite(ctx, coll, func(doc map[string]interface{}) (bool, error) {
		changed := false
		for _, f := range fields {
			if _, ok := doc[f]; ok {
				delete(doc, f)
				changed = true
			}
		}
		return changed, nil
	})
}

// rewrite applies fn to every document and overrides the changed ones
func (e *Executor) rewrite(ctx context.Context, coll string, fn func(doc map[string]interface{}) (bool, error)) error {
	docs, err := e.adapter.Query(ctx, coll)
	if err != nil {
		return err
	}

	rewritten := 0
	for _, doc := range docs {
		changed, err := fn(doc)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}
		if err := e.adapter.Override(ctx, coll, doc["id"], doc); err != nil {
			return err
		}
		rewritten++
	}
	e.logger.Debug("documents rewritten",
		zap.String("collection", coll),
		zap.Int("rewritten", rewritten),
		zap.Int("total", len(docs)))
	return nil
}

func transformFor(typ schema.Type) (transform.Transform, error) {
	if typ == schema.TypeNone {
		return nil, schema.ErrMissingType
	}
	return typ.Transform()
}

func fieldValue(typ schema.Type, value interface{}) (interface{}, error) {
	tr, err := transformFor(typ)
	if err != nil {
		return nil, err
	}
	return convert(tr, value)
}

func convert(tr transform.Transform, value interface{}) (interface{}, error) {
	normalized, err := tr.Normalize(value)
	if err != nil {
		return nil, err
	}
	return tr.Serialize(normalized)
}
