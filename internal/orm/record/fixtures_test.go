package record

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/conduit-lang/mapper/internal/orm/schema"
)

// memoryResolver is a Resolver over hand-registered classes and collections
type memoryResolver struct {
	key         string
	classes     map[string]*Class
	collections map[string]*memoryCollection
}

func newMemoryResolver() *memoryResolver {
	return &memoryResolver{
		key:         "test",
		classes:     make(map[string]*Class),
		collections: make(map[string]*memoryCollection),
	}
}

func (m *memoryResolver) add(name string, class *Class) *memoryCollection {
	m.classes[class.Name()] = class
	c := &memoryCollection{name: name, delegate: class, resolver: m, docs: make(map[string]map[string]interface{})}
	m.collections[name] = c
	return c
}

func (m *memoryResolver) Key() string { return m.key }

func (m *memoryResolver) Collection(name string) (Collection, error) {
	if c, ok := m.collections[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: collection %s", ErrNotFound, name)
}

func (m *memoryResolver) Class(name string) (*Class, error) {
	if c, ok := m.classes[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: class %s", ErrNotFound, name)
}

func (m *memoryResolver) FindRecordByName(name string) (*schema.RecordType, error) {
	for _, c := range m.classes {
		if c.Name() == name || c.Type.Name() == name {
			return c.Type, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", schema.ErrRecordNameLookup, name)
}

type notification struct {
	event string
	id    interface{}
}

// memoryCollection stores documents as they are pushed, with injectable
// persistence failures
type memoryCollection struct {
	mu       sync.Mutex
	name     string
	delegate *Class
	resolver *memoryResolver
	docs     map[string]map[string]interface{}
	seq      int64

	failPush     error
	failOverride error
	failRemove   error

	notifications []notification
}

func key(id interface{}) string { return fmt.Sprint(id) }

func (c *memoryCollection) Name() string       { return c.name }
func (c *memoryCollection) Resolver() Resolver { return c.resolver }
func (c *memoryCollection) Delegate() *Class   { return c.delegate }

func (c *memoryCollection) TakeAll(ctx context.Context) (Cursor, error) {
	return c.TakeBy(ctx, nil)
}

func (c *memoryCollection) TakeBy(ctx context.Context, query Query, opts ...TakeOptions) (Cursor, error) {
	var opt TakeOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	c.mu.Lock()
	keys := make([]string, 0, len(c.docs))
	for k := range c.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	docs := make([]map[string]interface{}, 0, len(keys))
	for _, k := range keys {
		docs = append(docs, c.docs[k])
	}
	c.mu.Unlock()

	var matched []map[string]interface{}
	for _, doc := range docs {
		r, err := c.materialize(doc)
		if err != nil {
			return nil, err
		}
		if r.State() == StateDeleted && !opt.WithHidden {
			continue
		}
		ok := true
		for field, value := range query {
			if !r.Matches(field, value) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, doc)
		}
		if opt.Limit > 0 && len(matched) == opt.Limit {
			break
		}
	}
	return NewDocumentCursor(matched, c.materialize), nil
}

func (c *memoryCollection) Find(ctx context.Context, id interface{}) (*Record, error) {
	c.mu.Lock()
	doc, ok := c.docs[key(id)]
	c.mu.Unlock()
	if !ok || doc["isHidden"] == true {
		return nil, ErrNotFound
	}
	return c.materialize(doc)
}

func (c *memoryCollection) Includes(ctx context.Context, id interface{}) (bool, error) {
	_, err := c.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *memoryCollection) Build(attrs map[string]interface{}) (*Record, error) {
	return c.delegate.New(attrs, c)
}

func (c *memoryCollection) Create(ctx context.Context, attrs map[string]interface{}) (*Record, error) {
	r, err := c.Build(attrs)
	if err != nil {
		return nil, err
	}
	return r, r.Create(ctx)
}

func (c *memoryCollection) Push(ctx context.Context, doc map[string]interface{}) (map[string]interface{}, error) {
	if c.failPush != nil {
		return nil, c.failPush
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		stored[k] = v
	}
	if stored["id"] == nil {
		c.seq++
		stored["id"] = c.seq
	}
	c.docs[key(stored["id"])] = stored
	return stored, nil
}

func (c *memoryCollection) Override(ctx context.Context, id interface{}, doc map[string]interface{}) error {
	if c.failOverride != nil {
		return c.failOverride
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[key(id)]; !ok {
		return ErrNotFound
	}
	c.docs[key(id)] = doc
	return nil
}

func (c *memoryCollection) Remove(ctx context.Context, id interface{}) error {
	if c.failRemove != nil {
		return c.failRemove
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, key(id))
	return nil
}

func (c *memoryCollection) RecordHasBeenChanged(ctx context.Context, event string, r *Record) {
	c.notifications = append(c.notifications, notification{event: event, id: r.ID()})
}

func (c *memoryCollection) events() []string {
	events := make([]string, len(c.notifications))
	for i, n := range c.notifications {
		events[i] = n.event
	}
	return events
}

func (c *memoryCollection) materialize(doc map[string]interface{}) (*Record, error) {
	return c.delegate.Materialize(doc, c)
}
