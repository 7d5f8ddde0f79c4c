// Package hooks implements ordered lifecycle callbacks that run around record
// persistence. Each phase holds a list of callbacks that receive the
// operation's arguments and return the (possibly rewritten) arguments for the
// next callback.
package hooks

import (
	"context"
	"fmt"
	"sync"
)

// Phase identifies a point in the record lifecycle
type Phase int

const (
	BeforeCreate Phase = iota
	AfterCreate
	BeforeUpdate
	AfterUpdate
	BeforeDelete
	AfterDelete
	AfterDestroy
)

// String returns the hook name as used in logs and error messages
func (p Phase) String() string {
	switch p {
	case BeforeCreate:
		return "beforeCreate"
	case AfterCreate:
		return "afterCreate"
	case BeforeUpdate:
		return "beforeUpdate"
	case AfterUpdate:
		return "afterUpdate"
	case BeforeDelete:
		return "beforeDelete"
	case AfterDelete:
		return "afterDelete"
	case AfterDestroy:
		return "afterDestroy"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// IsAfter reports whether the phase runs after persistence
func (p Phase) IsAfter() bool {
	switch p {
	case AfterCreate, AfterUpdate, AfterDelete, AfterDestroy:
		return true
	}
	return false
}

// Func is a lifecycle callback. It receives the arguments passed to the
// operation and returns the arguments handed to the next callback. Returning
// nil args keeps the incoming ones.
type Func[T any] func(ctx context.Context, target T, args []interface{}) ([]interface{}, error)

// Hook represents a registered lifecycle callback
type Hook[T any] struct {
	Phase Phase
	Name  string
	Fn    Func[T]
	Async bool // Execute on the async queue; only honored for after-phases
}

// Snapshotter is implemented by targets that give async hooks a detached copy
// of themselves instead of the live value
type Snapshotter[T any] interface {
	Snapshot() T
}

// Registry holds the callbacks declared on one record class. Callbacks
// inherited from the parent registry run before local ones.
type Registry[T any] struct {
	mu     sync.RWMutex
	parent *Registry[T]
	hooks  map[Phase][]*Hook[T]
}

// NewRegistry creates a new hook registry; parent may be nil
func NewRegistry[T any](parent *Registry[T]) *Registry[T] {
	return &Registry[T]{
		parent: parent,
		hooks:  make(map[Phase][]*Hook[T]),
	}
}

// Register adds a hook to the registry
func (r *Registry[T]) Register(phase Phase, hook *Hook[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hook.Phase = phase
	if hook.Name == "" {
		hook.Name = fmt.Sprintf("%s#%d", phase, len(r.hooks[phase])+1)
	}
	r.hooks[phase] = append(r.hooks[phase], hook)
}

// Hooks returns the callbacks for a phase, inherited ones first
func (r *Registry[T]) Hooks(phase Phase) []*Hook[T] {
	var inherited []*Hook[T]
	if r.parent != nil {
		inherited = r.parent.Hooks(phase)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Hook[T], 0, len(inherited)+len(r.hooks[phase]))
	result = append(result, inherited...)
	return append(result, r.hooks[phase]...)
}

// HasHooks returns true if there are any hooks registered for the given phase
func (r *Registry[T]) HasHooks(phase Phase) bool {
	return len(r.Hooks(phase)) > 0
}
