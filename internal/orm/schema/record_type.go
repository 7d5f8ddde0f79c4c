package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	inflect "github.com/conduit-lang/mapper/internal/util/strings"
)

// RecordType holds the locally declared metadata of one record type. Lookups
// walk up the parent chain with child declarations overriding parent ones.
type RecordType struct {
	mu     sync.RWMutex
	name   string
	module string
	parent *RecordType
	frozen bool

	attributes []*Attribute
	relations  []*Relation
	embeddings []*Embed
	computeds  []*Computed
	members    map[string]bool
}

// NewRecordType creates an unfrozen record type. fullName is either
// "Module::NameRecord" or a bare "NameRecord".
func NewRecordType(fullName string, parent *RecordType) *RecordType {
	module, name := "", fullName
	if i := strings.LastIndex(fullName, "::"); i >= 0 {
		module, name = fullName[:i], fullName[i+2:]
	}
	if module == "" && parent != nil {
		module = parent.module
	}
	return &RecordType{
		name:    name,
		module:  module,
		parent:  parent,
		members: make(map[string]bool),
	}
}

// Define creates a record type, applies decls and freezes it. Every
// declaration error is reported, not only the first.
func Define(fullName string, parent *RecordType, decls ...Declaration) (*RecordType, error) {
	rt := NewRecordType(fullName, parent)
	if err := rt.Declare(decls...); err != nil {
		return nil, err
	}
	rt.Freeze()
	return rt, nil
}

// Declare applies declarations to an unfrozen record type
func (rt *RecordType) Declare(decls ...Declaration) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.frozen {
		return &DeclarationError{Type: rt.FullName(), Err: ErrFrozen}
	}

	var errs []error
	for _, decl := range decls {
		if err := decl(rt); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("record type %s failed with %d errors: %w",
			rt.FullName(), len(errs), errors.Join(errs...))
	}
	return nil
}

// Freeze prevents further declarations
func (rt *RecordType) Freeze() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.frozen = true
}

// Frozen reports whether the type accepts declarations
func (rt *RecordType) Frozen() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.frozen
}

// Name returns the record name without module, e.g. "TestRecord"
func (rt *RecordType) Name() string { return rt.name }

// Module returns the module name, e.g. "Test"
func (rt *RecordType) Module() string { return rt.module }

// Parent returns the parent record type or nil
func (rt *RecordType) Parent() *RecordType { return rt.parent }

// FullName returns "Module::Name", or Name when there is no module
func (rt *RecordType) FullName() string {
	if rt.module == "" {
		return rt.name
	}
	return rt.module + "::" + rt.name
}

// IsA reports whether rt is other or inherits from it
func (rt *RecordType) IsA(other *RecordType) bool {
	for t := rt; t != nil; t = t.parent {
		if t == other {
			return true
		}
	}
	return false
}

// ParentClassNames returns type names from the root ancestor down to rt
func (rt *RecordType) ParentClassNames() []string {
	var names []string
	for t := rt; t != nil; t = t.parent {
		names = append([]string{t.name}, names...)
	}
	return names
}

// InverseName is the default inverse used by belongsTo relations pointing at
// this type: "TestRecord" gives "tests".
func (rt *RecordType) InverseName() string {
	return inflect.Pluralize(inflect.Camelize(strings.TrimSuffix(rt.name, "Record"), false))
}

// ForeignKeyName is the default field other records use to point at this
// type: "TestRecord" gives "testId".
func (rt *RecordType) ForeignKeyName() string {
	return inflect.Camelize(strings.TrimSuffix(rt.name, "Record"), false) + "Id"
}

// ParseRecordName splits a relation or type name into module and record
// name. "test-record" gives (module, "TestRecord"), "Tester::Test" gives
// ("Tester", "TestRecord").
func (rt *RecordType) ParseRecordName(name string) (string, string) {
	var module, record string
	if i := strings.Index(name, "::"); i >= 0 {
		module, record = name[:i], name[i+2:]
	} else {
		module = rt.module
		record = inflect.Camelize(strings.TrimSuffix(name, "Record"), true)
	}
	if !strings.HasSuffix(record, "Record") && !strings.HasSuffix(record, "Migration") {
		record += "Record"
	}
	return module, record
}

// chain returns the types from root to rt
func (rt *RecordType) chain() []*RecordType {
	var types []*RecordType
	for t := rt; t != nil; t = t.parent {
		types = append([]*RecordType{t}, types...)
	}
	return types
}

// Attributes returns the merged attributes, parent first in declaration
// order, with overrides keeping the position of the overridden attribute
func (rt *RecordType) Attributes() []*Attribute {
	var result []*Attribute
	index := make(map[string]int)
	for _, t := range rt.chain() {
		t.mu.RLock()
		for _, a := range t.attributes {
			if i, ok := index[a.Name]; ok {
				result[i] = a
				continue
			}
			index[a.Name] = len(result)
			result = append(result, a)
		}
		t.mu.RUnlock()
	}
	return result
}

// Attribute returns the nearest declaration of an attribute
func (rt *RecordType) Attribute(name string) (*Attribute, bool) {
	for t := rt; t != nil; t = t.parent {
		t.mu.RLock()
		for _, a := range t.attributes {
			if a.Name == name {
				t.mu.RUnlock()
				return a, true
			}
		}
		t.mu.RUnlock()
	}
	return nil, false
}

// Relations returns the merged relations
func (rt *RecordType) Relations() []*Relation {
	var result []*Relation
	index := make(map[string]int)
	for _, t := range rt.chain() {
		t.mu.RLock()
		for _, r := range t.relations {
			if i, ok := index[r.Name]; ok {
				result[i] = r
				continue
			}
			index[r.Name] = len(result)
			result = append(result, r)
		}
		t.mu.RUnlock()
	}
	return result
}

// Relation returns the nearest declaration of a relation
func (rt *RecordType) Relation(name string) (*Relation, bool) {
	for t := rt; t != nil; t = t.parent {
		t.mu.RLock()
		for _, r := range t.relations {
			if r.Name == name {
				t.mu.RUnlock()
				return r, true
			}
		}
		t.mu.RUnlock()
	}
	return nil, false
}

// Embeddings returns the merged embeddings keyed by name
func (rt *RecordType) Embeddings() map[string]*Embed {
	result := make(map[string]*Embed)
	for _, t := range rt.chain() {
		t.mu.RLock()
		for _, e := range t.embeddings {
			result[e.Name] = e
		}
		t.mu.RUnlock()
	}
	return result
}

// Computeds returns the merged computed properties keyed by name
func (rt *RecordType) Computeds() map[string]*Computed {
	result := make(map[string]*Computed)
	for _, t := range rt.chain() {
		t.mu.RLock()
		for _, c := range t.computeds {
			result[c.Name] = c
		}
		t.mu.RUnlock()
	}
	return result
}

// Declaration adds one member to a record type being defined
type Declaration func(rt *RecordType) error

func (rt *RecordType) claim(name string) error {
	if name == "" {
		return &DeclarationError{Type: rt.FullName(), Err: errors.New("member name is required")}
	}
	if rt.members[name] {
		return &DeclarationError{Type: rt.FullName(), Member: name, Err: ErrDuplicateMember}
	}
	rt.members[name] = true
	return nil
}

// Attr declares a persisted attribute
func Attr(name string, opts AttributeOptions) Declaration {
	return func(rt *RecordType) error {
		if err := rt.claim(name); err != nil {
			return err
		}
		attr, err := newAttribute(rt, name, opts)
		if err != nil {
			return &DeclarationError{Type: rt.FullName(), Member: name, Err: err}
		}
		rt.attributes = append(rt.attributes, attr)
		return nil
	}
}

func relationDecl(name string, kind RelationKind, opts RelationOptions) Declaration {
	return func(rt *RecordType) error {
		if err := rt.claim(name); err != nil {
			return err
		}
		if opts.Through != nil && (opts.Through.Collection == "" || opts.Through.By == "") {
			return &DeclarationError{
				Type:   rt.FullName(),
				Member: name,
				Err:    errors.New("through requires a collection and a by field"),
			}
		}
		rt.relations = append(rt.relations, newRelation(rt, name, kind, opts))
		return nil
	}
}

// BelongsTo declares a required association stored in this record's Attr
func BelongsTo(name string, opts RelationOptions) Declaration {
	return relationDecl(name, KindBelongsTo, opts)
}

// RelatedTo declares an optional association stored in this record's Attr
func RelatedTo(name string, opts RelationOptions) Declaration {
	return relationDecl(name, KindRelatedTo, opts)
}

// HasOne declares a single record pointing back at this one via Inverse
func HasOne(name string, opts RelationOptions) Declaration {
	return relationDecl(name, KindHasOne, opts)
}

// HasMany declares the set of records pointing back at this one via Inverse
func HasMany(name string, opts RelationOptions) Declaration {
	return relationDecl(name, KindHasMany, opts)
}

// HasEmbed declares a single join record, usable as a through collection
func HasEmbed(name string, opts EmbedOptions) Declaration {
	return embedDecl(name, false, opts)
}

// HasEmbeds declares many join records, usable as a through collection
func HasEmbeds(name string, opts EmbedOptions) Declaration {
	return embedDecl(name, true, opts)
}

func embedDecl(name string, many bool, opts EmbedOptions) Declaration {
	return func(rt *RecordType) error {
		if err := rt.claim(name); err != nil {
			return err
		}
		rt.embeddings = append(rt.embeddings, newEmbed(rt, name, many, opts))
		return nil
	}
}

// ComputedAttr declares a read-only derived property
func ComputedAttr(name string, typ Type, get func(AttributeReader) interface{}) Declaration {
	return func(rt *RecordType) error {
		if err := rt.claim(name); err != nil {
			return err
		}
		if typ == TypeNone {
			return &DeclarationError{Type: rt.FullName(), Member: name, Err: ErrMissingType}
		}
		if get == nil {
			return &DeclarationError{Type: rt.FullName(), Member: name, Err: errors.New("getter is required")}
		}
		rt.computeds = append(rt.computeds, &Computed{Name: name, Type: typ, Get: get})
		return nil
	}
}
