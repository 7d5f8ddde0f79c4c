package schema

import (
	"fmt"
	"strings"

	inflect "github.com/conduit-lang/mapper/internal/util/strings"
)

// RelationKind is the kind of association between two record types
type RelationKind int

const (
	KindBelongsTo RelationKind = iota
	KindHasOne
	KindHasMany
	KindRelatedTo
)

// String returns the string representation of the relation kind
func (k RelationKind) String() string {
	switch k {
	case KindBelongsTo:
		return "belongsTo"
	case KindHasOne:
		return "hasOne"
	case KindHasMany:
		return "hasMany"
	case KindRelatedTo:
		return "relatedTo"
	default:
		return "unknown"
	}
}

// PointsOut reports whether the local record stores the foreign key
// (belongsTo, relatedTo) rather than the remote one (hasOne, hasMany).
func (k RelationKind) PointsOut() bool {
	return k == KindBelongsTo || k == KindRelatedTo
}

// Through routes a relation via a join collection. Collection names an
// embedding declared on the owner; By is the join record field holding the
// target key.
type Through struct {
	Collection string
	By         string
}

// RecordLookup resolves record types by name
type RecordLookup interface {
	FindRecordByName(name string) (*RecordType, error)
}

// RelationOptions declares a relation. Empty fields get defaults derived from
// the relation and owner names.
type RelationOptions struct {
	Attr        string
	RefKey      string
	Inverse     string
	InverseType string
	// RecordName and CollectionName receive the polymorphic record type read
	// from the InverseType field, or "" when there is none.
	RecordName     func(recordType string) string
	CollectionName func(recordType string) string
	Through        *Through
}

// Relation is a declared association of a record type
type Relation struct {
	Name        string
	Kind        RelationKind
	Attr        string
	RefKey      string
	Inverse     string
	InverseType string
	Through     *Through
	Owner       *RecordType

	recordName     func(string) string
	collectionName func(string) string
}

func newRelation(owner *RecordType, name string, kind RelationKind, opts RelationOptions) *Relation {
	rel := &Relation{
		Name:           name,
		Kind:           kind,
		Attr:           opts.Attr,
		RefKey:         opts.RefKey,
		Inverse:        opts.Inverse,
		InverseType:    opts.InverseType,
		Through:        opts.Through,
		Owner:          owner,
		recordName:     opts.RecordName,
		collectionName: opts.CollectionName,
	}

	if rel.RefKey == "" {
		rel.RefKey = "id"
	}
	if rel.Attr == "" && kind.PointsOut() {
		rel.Attr = name + "Id"
	}
	if rel.Inverse == "" {
		if kind.PointsOut() {
			rel.Inverse = owner.InverseName()
		} else {
			rel.Inverse = owner.ForeignKeyName()
		}
	}

	return rel
}

// RecordName returns the target record name. With a polymorphic recordType
// the name is the topmost record ancestor of that type below the base
// record; otherwise it is parsed from the relation name.
func (r *Relation) RecordName(lookup RecordLookup, recordType string) (string, error) {
	if r.recordName != nil {
		return r.recordName(recordType), nil
	}

	if recordType != "" {
		if lookup == nil {
			return "", fmt.Errorf("%w: %s (no lookup)", ErrRecordNameLookup, recordType)
		}
		rt, err := lookup.FindRecordByName(recordType)
		if err != nil {
			return "", err
		}
		var names []string
		for _, name := range rt.ParentClassNames() {
			if strings.HasSuffix(name, "Record") {
				names = append(names, name)
			}
		}
		switch {
		case len(names) > 1:
			return names[1], nil
		case len(names) == 1:
			return names[0], nil
		default:
			return "", fmt.Errorf("%w: %s has no record ancestor", ErrRecordNameLookup, recordType)
		}
	}

	name := r.Name
	if r.Kind == KindHasMany {
		name = inflect.Singularize(name)
	}
	_, recordName := r.Owner.ParseRecordName(name)
	return recordName, nil
}

// CollectionName returns the name of the collection holding target records
func (r *Relation) CollectionName(lookup RecordLookup, recordType string) (string, error) {
	if r.collectionName != nil {
		return r.collectionName(recordType), nil
	}
	recordName, err := r.RecordName(lookup, recordType)
	if err != nil {
		return "", err
	}
	return CollectionNameFor(recordName), nil
}

// CollectionNameFor derives "CucumbersCollection" from "CucumberRecord"
func CollectionNameFor(recordName string) string {
	return inflect.Pluralize(strings.TrimSuffix(recordName, "Record")) + "Collection"
}

// EmbedOptions declares join metadata for through relations
type EmbedOptions struct {
	RefKey         string
	Inverse        string
	RecordName     func() string
	CollectionName func() string
}

// Embed describes records in another collection that point back at the
// owner through Inverse == owner[RefKey]
type Embed struct {
	Name    string
	Many    bool
	RefKey  string
	Inverse string
	Owner   *RecordType

	recordName     func() string
	collectionName func() string
}

func newEmbed(owner *RecordType, name string, many bool, opts EmbedOptions) *Embed {
	e := &Embed{
		Name:           name,
		Many:           many,
		RefKey:         opts.RefKey,
		Inverse:        opts.Inverse,
		Owner:          owner,
		recordName:     opts.RecordName,
		collectionName: opts.CollectionName,
	}
	if e.RefKey == "" {
		e.RefKey = "id"
	}
	if e.Inverse == "" {
		e.Inverse = owner.ForeignKeyName()
	}
	return e
}

// RecordName returns the record name of the join records
func (e *Embed) RecordName() string {
	if e.recordName != nil {
		return e.recordName()
	}
	name := e.Name
	if e.Many {
		name = inflect.Singularize(name)
	}
	_, recordName := e.Owner.ParseRecordName(name)
	return recordName
}

// CollectionName returns the join collection name
func (e *Embed) CollectionName() string {
	if e.collectionName != nil {
		return e.collectionName()
	}
	return CollectionNameFor(e.RecordName())
}
