// Package facade implements the application module records live in. A Facade
// is registered under a multiton key and resolves collections, record classes
// and record types by name for relation resolution and replicas.
package facade

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/orm/collection"
	"github.com/conduit-lang/mapper/internal/orm/hooks"
	"github.com/conduit-lang/mapper/internal/orm/record"
	"github.com/conduit-lang/mapper/internal/orm/schema"
)

var (
	// ErrKeyInUse is returned when creating a facade under a taken key
	ErrKeyInUse = errors.New("facade key already in use")

	// ErrUnknownCollection is returned when a collection is not registered
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrUnknownClass is returned when a record class is not registered
	ErrUnknownClass = errors.New("unknown record class")
)

var (
	instancesMu sync.Mutex
	instances   = make(map[string]*Facade)
)

// Facade is one application module
type Facade struct {
	key    string
	logger *zap.Logger
	queue  *hooks.AsyncQueue
	types  *schema.Registry

	mu          sync.RWMutex
	classes     map[string]*record.Class
	collections map[string]*collection.Collection
}

// Option configures a Facade
type Option func(*Facade)

// WithLogger sets the logger handed to every collection
func WithLogger(logger *zap.Logger) Option {
	return func(f *Facade) { f.logger = logger }
}

// WithHookQueue sets the queue async after-hooks of every collection run on.
// The facade shuts it down on Remove.
func WithHookQueue(queue *hooks.AsyncQueue) Option {
	return func(f *Facade) { f.queue = queue }
}

// New creates the facade registered under key
func New(key string, opts ...Option) (*Facade, error) {
	f := &Facade{
		key:         key,
		logger:      zap.NewNop(),
		types:       schema.NewRegistry(),
		classes:     make(map[string]*record.Class),
		collections: make(map[string]*collection.Collection),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(zap.String("app", key))

	instancesMu.Lock()
	defer instancesMu.Unlock()
	if _, exists := instances[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrKeyInUse, key)
	}
	instances[key] = f
	return f, nil
}

// Get returns the facade registered under key
func Get(key string) (*Facade, bool) {
	instancesMu.Lock()
	defer instancesMu.Unlock()
	f, ok := instances[key]
	return f, ok
}

// Remove unregisters the facade and stops its hook queue
func (f *Facade) Remove() {
	instancesMu.Lock()
	if instances[f.key] == f {
		delete(instances, f.key)
	}
	instancesMu.Unlock()

	if f.queue != nil {
		f.queue.Shutdown()
	}
	f.logger.Debug("facade removed")
}

// Key returns the multiton key
func (f *Facade) Key() string {
	return f.key
}

// Logger returns the facade logger
func (f *Facade) Logger() *zap.Logger {
	return f.logger
}

// AddClass registers a record class. Adding the same class twice is a no-op.
func (f *Facade) AddClass(class *record.Class) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addClass(class)
}

func (f *Facade) addClass(class *record.Class) error {
	name := class.Name()
	if existing, ok := f.classes[name]; ok {
		if existing == class {
			return nil
		}
		return fmt.Errorf("record class %s is already registered", name)
	}
	if err := f.types.Register(class.Type); err != nil {
		return err
	}
	f.classes[name] = class
	return nil
}

// AddCollection creates and registers a collection for delegate, registering
// the delegate class as well. The collection resolves through this facade
// and shares its logger and hook queue.
func (f *Facade) AddCollection(name string, delegate *record.Class, adapter collection.Adapter, opts ...collection.Option) (*collection.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.collections[name]; exists {
		return nil, fmt.Errorf("collection %s is already registered", name)
	}
	if err := f.addClass(delegate); err != nil {
		return nil, err
	}

	base := []collection.Option{
		collection.WithResolver(f),
		collection.WithLogger(f.logger),
		collection.WithHookQueue(f.queue),
	}
	c := collection.New(name, delegate, adapter, append(base, opts...)...)
	f.collections[name] = c

	f.logger.Debug("collection added",
		zap.String("collection", name),
		zap.String("delegate", delegate.Name()),
	)
	return c, nil
}

// Collection returns a registered collection
func (f *Facade) Collection(name string) (record.Collection, error) {
	c, err := f.CollectionByName(name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CollectionByName returns a registered collection with its concrete type
func (f *Facade) CollectionByName(name string) (*collection.Collection, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c, ok := f.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

// Collections returns the registered collection names sorted
func (f *Facade) Collections() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.collections))
	for name := range f.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Class returns a registered class by full name, or by record name when
// that is unambiguous
func (f *Facade) Class(name string) (*record.Class, error) {
	rt, err := f.types.FindRecordByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	class, ok := f.classes[rt.FullName()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	return class, nil
}

// FindRecordByName resolves a record type by full or record name
func (f *Facade) FindRecordByName(name string) (*schema.RecordType, error) {
	return f.types.FindRecordByName(name)
}

// Schemas returns the full names of the registered record types
func (f *Facade) Schemas() []string {
	return f.types.List()
}

// Validate checks that every relation and through embedding of the
// registered classes resolves
func (f *Facade) Validate() error {
	return f.types.ValidateAll()
}

var _ record.Resolver = (*Facade)(nil)
