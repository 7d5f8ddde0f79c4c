package record

import (
	"context"
	"fmt"

	"github.com/conduit-lang/mapper/internal/orm/schema"
)

// One resolves a belongsTo, hasOne or relatedTo relation. It returns nil
// when no record matches.
func (r *Record) One(ctx context.Context, name string) (*Record, error) {
	rel, err := r.relation(name)
	if err != nil {
		return nil, err
	}
	if rel.Kind == schema.KindHasMany {
		return nil, fmt.Errorf("%w: %s is hasMany, use Many", ErrRelationKind, name)
	}

	cursor, err := r.resolve(ctx, rel, 1)
	if err != nil {
		return nil, err
	}
	return cursor.First(ctx)
}

// Many resolves a hasMany relation into a cursor over the matching records
func (r *Record) Many(ctx context.Context, name string) (Cursor, error) {
	rel, err := r.relation(name)
	if err != nil {
		return nil, err
	}
	if rel.Kind != schema.KindHasMany {
		return nil, fmt.Errorf("%w: %s is %s, use One", ErrRelationKind, name, rel.Kind)
	}
	return r.resolve(ctx, rel, 0)
}

func (r *Record) relation(name string) (*schema.Relation, error) {
	rel, ok := r.class.Type.Relation(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownRelation, r.class.Name(), name)
	}
	if r.collection == nil {
		return nil, ErrNoCollection
	}
	return rel, nil
}

func (r *Record) resolve(ctx context.Context, rel *schema.Relation, limit int) (Cursor, error) {
	resolver := r.collection.Resolver()

	var embed *schema.Embed
	if rel.Through != nil {
		var ok bool
		if embed, ok = r.class.Type.Embeddings()[rel.Through.Collection]; !ok {
			return nil, fmt.Errorf("%w: %s.%s through %s",
				ErrThroughNotDeclared, r.class.Name(), rel.Name, rel.Through.Collection)
		}
	}

	recordType := ""
	if rel.InverseType != "" {
		recordType, _ = r.Get(rel.InverseType).(string)
	}
	collectionName, err := rel.CollectionName(resolver, recordType)
	if err != nil {
		return nil, err
	}
	target, err := resolver.Collection(collectionName)
	if err != nil {
		return nil, err
	}

	if embed != nil {
		return r.resolveThrough(ctx, rel, embed, target, limit)
	}

	var query Query
	if rel.Kind.PointsOut() {
		key := r.Get(rel.Attr)
		if key == nil {
			return EmptyCursor(), nil
		}
		query = Query{rel.RefKey: key}
	} else {
		key := r.Get(rel.RefKey)
		if key == nil {
			return EmptyCursor(), nil
		}
		query = Query{rel.Inverse: key}
	}
	return target.TakeBy(ctx, query, TakeOptions{Limit: limit})
}

// resolveThrough finds the join records pointing at r, reads the target key
// from their By field and queries the target collection with it
func (r *Record) resolveThrough(ctx context.Context, rel *schema.Relation, embed *schema.Embed, target Collection, limit int) (Cursor, error) {
	resolver := r.collection.Resolver()
	joins, err := resolver.Collection(embed.CollectionName())
	if err != nil {
		return nil, err
	}
	joinType, err := resolver.FindRecordByName(embed.RecordName())
	if err != nil {
		return nil, err
	}

	key := r.Get(embed.RefKey)
	if key == nil {
		return EmptyCursor(), nil
	}
	cursor, err := joins.TakeBy(ctx, Query{embed.Inverse: key}, TakeOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	joinRecords, err := cursor.ToArray(ctx)
	if err != nil {
		return nil, err
	}

	var ids []interface{}
	for _, join := range joinRecords {
		if id := join.Get(rel.Through.By); id != nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return EmptyCursor(), nil
	}

	refKey := throughRefKey(joinType, rel.Through.By)
	if limit == 1 {
		return target.TakeBy(ctx, Query{refKey: ids[0]}, TakeOptions{Limit: 1})
	}
	return target.TakeBy(ctx, Query{refKey: In(ids...)}, TakeOptions{Limit: limit})
}

// throughRefKey returns the key on the target that the join field refers to,
// read from the join type's relation storing that field
func throughRefKey(joinType *schema.RecordType, by string) string {
	for _, rel := range joinType.Relations() {
		if rel.Attr == by || rel.Name == by {
			return rel.RefKey
		}
	}
	return "id"
}
