// Package collection binds record classes to storage adapters. A Collection
// runs queries over stored documents, assigns ids on push and fans out
// change notifications.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/orm/hooks"
	"github.com/conduit-lang/mapper/internal/orm/record"
	"github.com/conduit-lang/mapper/internal/orm/transform"
)

// Listener receives change notifications of a collection
type Listener func(ctx context.Context, event string, r *record.Record)

// Collection stores the records of one delegate class through an Adapter
type Collection struct {
	name     string
	delegate *record.Class
	adapter  Adapter
	resolver record.Resolver
	ids      IDGenerator
	logger   *zap.Logger
	queue    *hooks.AsyncQueue

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// Option configures a Collection
type Option func(*Collection)

// WithIDGenerator sets the id generator, UUIDs by default
func WithIDGenerator(ids IDGenerator) Option {
	return func(c *Collection) { c.ids = ids }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Collection) { c.logger = logger }
}

// WithHookQueue sets the queue async after-hooks run on
func WithHookQueue(queue *hooks.AsyncQueue) Option {
	return func(c *Collection) { c.queue = queue }
}

// WithResolver sets the resolver used for relations, subclass lookup and
// replicas
func WithResolver(resolver record.Resolver) Option {
	return func(c *Collection) { c.resolver = resolver }
}

// New creates a collection named name for records of delegate
func New(name string, delegate *record.Class, adapter Adapter, opts ...Option) *Collection {
	c := &Collection{
		name:      name,
		delegate:  delegate,
		adapter:   adapter,
		ids:       UUIDGenerator{},
		logger:    zap.NewNop(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("collection", name))
	return c
}

func (c *Collection) Name() string                 { return c.name }
func (c *Collection) Resolver() record.Resolver    { return c.resolver }
func (c *Collection) Delegate() *record.Class      { return c.delegate }
func (c *Collection) Adapter() Adapter             { return c.adapter }
func (c *Collection) HookQueue() *hooks.AsyncQueue { return c.queue }
func (c *Collection) Logger() *zap.Logger          { return c.logger }

// TakeAll returns every visible record
func (c *Collection) TakeAll(ctx context.Context) (record.Cursor, error) {
	return c.TakeBy(ctx, nil)
}

// TakeBy returns the records matching query in id order
func (c *Collection) TakeBy(ctx context.Context, query record.Query, opts ...record.TakeOptions) (record.Cursor, error) {
	var opt record.TakeOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	docs, err := c.adapter.Query(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return keyLess(DocumentKey(docs[i]["id"]), DocumentKey(docs[j]["id"]))
	})

	matched := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		if !opt.WithHidden && isHidden(doc) {
			continue
		}
		if !c.matches(doc, query) {
			continue
		}
		matched = append(matched, doc)
		if opt.Limit > 0 && len(matched) == opt.Limit {
			break
		}
	}

	return record.NewDocumentCursor(matched, c.materialize), nil
}

// Find returns the visible record with the given id
func (c *Collection) Find(ctx context.Context, id interface{}) (*record.Record, error) {
	doc, err := c.take(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.materialize(doc)
}

// Includes reports whether a visible record with the given id exists
func (c *Collection) Includes(ctx context.Context, id interface{}) (bool, error) {
	_, err := c.take(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *Collection) take(ctx context.Context, id interface{}) (map[string]interface{}, error) {
	if id == nil {
		return nil, fmt.Errorf("%w: nil id", ErrNotFound)
	}
	doc, err := c.adapter.Take(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	if isHidden(doc) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c.name, DocumentKey(id))
	}
	return doc, nil
}

// Build makes a new record of the class named by attrs["type"], or of the
// delegate
func (c *Collection) Build(attrs map[string]interface{}) (*record.Record, error) {
	return c.classFor(attrs).New(attrs, c)
}

// Create builds and persists a record
func (c *Collection) Create(ctx context.Context, attrs map[string]interface{}) (*record.Record, error) {
	r, err := c.Build(attrs)
	if err != nil {
		return nil, err
	}
	if err := r.Create(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Push stores a new document, generating its id when missing
func (c *Collection) Push(ctx context.Context, doc map[string]interface{}) (map[string]interface{}, error) {
	stored := copyDocument(doc)
	if stored["id"] == nil {
		stored["id"] = c.ids.NextID()
	}

	if err := c.adapter.Push(ctx, c.name, stored); err != nil {
		return nil, fmt.Errorf("push %s: %w", c.name, err)
	}
	c.logger.Debug("document pushed", zap.Any("id", stored["id"]))
	return stored, nil
}

// Override replaces a stored document
func (c *Collection) Override(ctx context.Context, id interface{}, doc map[string]interface{}) error {
	if err := c.adapter.Override(ctx, c.name, id, doc); err != nil {
		return fmt.Errorf("override %s: %w", c.name, err)
	}
	c.logger.Debug("document overridden", zap.Any("id", id))
	return nil
}

// Remove deletes a stored document
func (c *Collection) Remove(ctx context.Context, id interface{}) error {
	if err := c.adapter.Remove(ctx, c.name, id); err != nil {
		return fmt.Errorf("remove %s: %w", c.name, err)
	}
	c.logger.Debug("document removed", zap.Any("id", id))
	return nil
}

// Subscribe registers a change listener and returns a function removing it
func (c *Collection) Subscribe(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// RecordHasBeenChanged notifies the listeners of a lifecycle event
func (c *Collection) RecordHasBeenChanged(ctx context.Context, event string, r *record.Record) {
	c.mu.RLock()
	listeners := make([]Listener, 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	c.mu.RUnlock()

	c.logger.Debug("record changed", zap.String("event", event), zap.Any("id", r.ID()))
	for _, fn := range listeners {
		fn(ctx, event, r)
	}
}

func (c *Collection) materialize(doc map[string]interface{}) (*record.Record, error) {
	return c.classFor(doc).Materialize(doc, c)
}

// classFor returns the subclass of the delegate named by the document type
func (c *Collection) classFor(doc map[string]interface{}) *record.Class {
	name, _ := doc["type"].(string)
	if name == "" || name == c.delegate.Name() || c.resolver == nil {
		return c.delegate
	}

	class, err := c.resolver.Class(name)
	if err != nil || !class.IsA(c.delegate) {
		return c.delegate
	}
	return class
}

func (c *Collection) matches(doc map[string]interface{}, query record.Query) bool {
	for field, want := range query {
		if !c.fieldMatches(field, doc[field], want) {
			return false
		}
	}
	return true
}

func (c *Collection) fieldMatches(field string, stored, want interface{}) bool {
	if in, ok := want.(record.InValues); ok {
		for _, v := range in {
			if c.fieldMatches(field, stored, v) {
				return true
			}
		}
		return false
	}

	attr, ok := c.delegate.Type.Attribute(field)
	if !ok {
		// fields of subclasses compare loosely, numbers decode as float64
		if a, err := (transform.Number{}).Normalize(stored); err == nil && a != nil {
			if b, err := (transform.Number{}).Normalize(want); err == nil && b != nil {
				return a == b
			}
		}
		return transform.Equal(stored, want)
	}

	if v, err := attr.Transform.Normalize(stored); err == nil {
		stored = v
	}
	if v, err := attr.Transform.Normalize(want); err == nil {
		want = v
	}
	return transform.Equal(stored, want)
}

func isHidden(doc map[string]interface{}) bool {
	hidden, _ := doc["isHidden"].(bool)
	return hidden
}

var _ record.Collection = (*Collection)(nil)
var _ record.HookEnvironment = (*Collection)(nil)
