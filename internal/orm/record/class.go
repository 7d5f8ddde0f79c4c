// Package record implements records: typed, change-tracked entities whose
// lifecycle (create, update, delete, destroy) runs through ordered hooks and
// persists through a Collection.
package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/mapper/internal/orm/hooks"
	"github.com/conduit-lang/mapper/internal/orm/schema"
)

// Class is a record class: a frozen record type plus its lifecycle hooks
type Class struct {
	Type   *schema.RecordType
	Parent *Class
	hooks  *hooks.Registry[*Record]
}

// Base is the root record class. Every class extends it and inherits id,
// type, isHidden and the timestamps.
var Base = mustDefine(nil, "Mapper::Record",
	schema.Attr("id", schema.AttributeOptions{Type: schema.TypePrimaryKey}),
	schema.Attr("type", schema.AttributeOptions{Type: schema.TypeString}),
	schema.Attr("isHidden", schema.AttributeOptions{Type: schema.TypeBoolean, Default: false}),
	schema.Attr("createdAt", schema.AttributeOptions{Type: schema.TypeDate}),
	schema.Attr("updatedAt", schema.AttributeOptions{Type: schema.TypeDate}),
	schema.Attr("deletedAt", schema.AttributeOptions{Type: schema.TypeDate}),
)

// now is the clock used for timestamps, at the millisecond precision
// timestamps are stored with
var now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// Extend defines a record class. A nil parent means Base.
func Extend(parent *Class, fullName string, decls ...schema.Declaration) (*Class, error) {
	if parent == nil {
		parent = Base
	}
	return define(parent, fullName, decls...)
}

// MustExtend is like Extend but panics on declaration errors
func MustExtend(parent *Class, fullName string, decls ...schema.Declaration) *Class {
	c, err := Extend(parent, fullName, decls...)
	if err != nil {
		panic(err)
	}
	return c
}

func mustDefine(parent *Class, fullName string, decls ...schema.Declaration) *Class {
	c, err := define(parent, fullName, decls...)
	if err != nil {
		panic(err)
	}
	return c
}

func define(parent *Class, fullName string, decls ...schema.Declaration) (*Class, error) {
	var (
		parentType  *schema.RecordType
		parentHooks *hooks.Registry[*Record]
	)
	if parent != nil {
		parentType = parent.Type
		parentHooks = parent.hooks
	}

	rt, err := schema.Define(fullName, parentType, decls...)
	if err != nil {
		return nil, err
	}

	return &Class{
		Type:   rt,
		Parent: parent,
		hooks:  hooks.NewRegistry[*Record](parentHooks),
	}, nil
}

// Name returns the full record type name
func (c *Class) Name() string {
	return c.Type.FullName()
}

// IsA reports whether c is other or one of its subclasses
func (c *Class) IsA(other *Class) bool {
	return c.Type.IsA(other.Type)
}

// On registers a lifecycle hook. Hooks on a parent class also run for its
// subclasses, before the subclass hooks.
func (c *Class) On(phase hooks.Phase, fn hooks.Func[*Record]) *Class {
	c.hooks.Register(phase, &hooks.Hook[*Record]{Fn: fn})
	return c
}

// OnAsync registers an after-hook that runs on the collection's async queue
// when one is configured
func (c *Class) OnAsync(phase hooks.Phase, fn hooks.Func[*Record]) *Class {
	c.hooks.Register(phase, &hooks.Hook[*Record]{Fn: fn, Async: true})
	return c
}

// Hooks returns the hook registry of the class
func (c *Class) Hooks() *hooks.Registry[*Record] {
	return c.hooks
}

// New builds a new record of this class from raw attributes
func (c *Class) New(attrs map[string]interface{}, collection Collection) (*Record, error) {
	values, err := c.Normalize(attrs)
	if err != nil {
		return nil, err
	}
	return newRecord(c, collection, values, StateNew), nil
}

// Materialize turns a stored document into a persisted record. Documents
// marked hidden come back in the deleted state.
func (c *Class) Materialize(doc map[string]interface{}, collection Collection) (*Record, error) {
	values, err := c.Normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("materialize %s: %w", c.Name(), err)
	}

	state := StatePersisted
	if hidden, _ := values["isHidden"].(bool); hidden {
		state = StateDeleted
	}
	return newRecord(c, collection, values, state), nil
}

// ParseRecordName splits a name into module and record name, see
// schema.RecordType.ParseRecordName
func (c *Class) ParseRecordName(name string) (string, string) {
	return c.Type.ParseRecordName(name)
}

// ShortName returns the record name without module and "Record" suffix
func (c *Class) ShortName() string {
	return strings.TrimSuffix(c.Type.Name(), "Record")
}
