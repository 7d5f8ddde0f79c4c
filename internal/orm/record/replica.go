package record

import (
	"context"
	"fmt"
)

// ReplicaType marks replicas of record instances
const ReplicaType = "instance"

// Replica identifies a record across process boundaries. Persisted records
// carry only their id; new records carry their serialized attributes.
type Replica struct {
	Type           string                 `json:"type"`
	Class          string                 `json:"class"`
	MultitonKey    string                 `json:"multitonKey"`
	CollectionName string                 `json:"collectionName"`
	IsNew          bool                   `json:"isNew"`
	ID             interface{}            `json:"id,omitempty"`
	Attributes     map[string]interface{} `json:"attributes,omitempty"`
}

// Replicate produces the replica of a record
func Replicate(r *Record) (*Replica, error) {
	if r.collection == nil {
		return nil, ErrNoCollection
	}
	if r.state == StateDestroyed {
		return nil, ErrDestroyed
	}

	replica := &Replica{
		Type:           ReplicaType,
		Class:          r.class.Name(),
		MultitonKey:    r.collection.Resolver().Key(),
		CollectionName: r.collection.Name(),
		IsNew:          r.IsNew(),
	}

	if replica.IsNew {
		attrs, err := r.class.Serialize(r)
		if err != nil {
			return nil, err
		}
		replica.Attributes = attrs
	} else {
		replica.ID = r.ID()
	}
	return replica, nil
}

// Restore rebuilds a record from its replica: persisted records are fetched
// again by id, new ones are rebuilt from their attributes
func Restore(ctx context.Context, resolver Resolver, replica *Replica) (*Record, error) {
	if replica == nil || replica.Type != ReplicaType {
		return nil, fmt.Errorf("%w: type must be %q", ErrInvalidReplica, ReplicaType)
	}
	if replica.MultitonKey != resolver.Key() {
		return nil, fmt.Errorf("%w: key %q does not match %q",
			ErrInvalidReplica, replica.MultitonKey, resolver.Key())
	}

	collection, err := resolver.Collection(replica.CollectionName)
	if err != nil {
		return nil, err
	}

	if !replica.IsNew {
		if replica.ID == nil {
			return nil, fmt.Errorf("%w: persisted replica without id", ErrInvalidReplica)
		}
		return collection.Find(ctx, replica.ID)
	}

	class, err := resolver.Class(replica.Class)
	if err != nil {
		return nil, err
	}
	return class.New(replica.Attributes, collection)
}
