package record

import (
	"context"
	"fmt"

	"github.com/conduit-lang/mapper/internal/orm/hooks"
	"github.com/conduit-lang/mapper/internal/orm/tracking"
)

// Create persists a new record. Before-hooks receive args and may rewrite
// them; after-hooks receive the rewritten args. On persistence failure the
// record stays new and its tracked changes are kept.
func (r *Record) Create(ctx context.Context, args ...interface{}) error {
	switch {
	case r.state == StateDestroyed:
		return ErrDestroyed
	case r.state != StateNew:
		return ErrAlreadyPersisted
	case r.collection == nil:
		return ErrNoCollection
	}

	args, err := r.runHooks(ctx, hooks.BeforeCreate, args)
	if err != nil {
		return err
	}

	ts := now()
	values := r.withValues(map[string]interface{}{"createdAt": ts, "updatedAt": ts})
	doc, err := r.class.serializeValues(values)
	if err != nil {
		return err
	}

	stored, err := r.collection.Push(ctx, doc)
	if err != nil {
		return err
	}

	id, err := r.normalizeID(stored["id"])
	if err != nil {
		return err
	}
	values["id"] = id
	r.checkpoint(values, StatePersisted)

	if _, err := r.runHooks(ctx, hooks.AfterCreate, args); err != nil {
		return err
	}
	r.collection.RecordHasBeenChanged(ctx, CreatedRecord, r)
	return nil
}

// Update persists the record's current attributes. Persistence is attempted
// even when nothing changed, so after-hooks and the notification always run.
func (r *Record) Update(ctx context.Context, args ...interface{}) error {
	if err := r.requirePersisted(); err != nil {
		return err
	}

	args, err := r.runHooks(ctx, hooks.BeforeUpdate, args)
	if err != nil {
		return err
	}

	values := r.withValues(map[string]interface{}{"updatedAt": now()})
	doc, err := r.class.serializeValues(values)
	if err != nil {
		return err
	}
	if err := r.collection.Override(ctx, r.ID(), doc); err != nil {
		return err
	}
	r.checkpoint(values, r.state)

	if _, err := r.runHooks(ctx, hooks.AfterUpdate, args); err != nil {
		return err
	}
	r.collection.RecordHasBeenChanged(ctx, UpdatedRecord, r)
	return nil
}

// Save creates a new record or updates a persisted one
func (r *Record) Save(ctx context.Context, args ...interface{}) error {
	if r.IsNew() {
		return r.Create(ctx, args...)
	}
	return r.Update(ctx, args...)
}

// Delete soft-deletes the record: it is marked hidden and stays usable
func (r *Record) Delete(ctx context.Context, args ...interface{}) error {
	if err := r.requirePersisted(); err != nil {
		return err
	}

	args, err := r.runHooks(ctx, hooks.BeforeDelete, args)
	if err != nil {
		return err
	}

	ts := now()
	values := r.withValues(map[string]interface{}{
		"isHidden":  true,
		"deletedAt": ts,
		"updatedAt": ts,
	})
	doc, err := r.class.serializeValues(values)
	if err != nil {
		return err
	}
	if err := r.collection.Override(ctx, r.ID(), doc); err != nil {
		return err
	}
	r.checkpoint(values, StateDeleted)

	if _, err := r.runHooks(ctx, hooks.AfterDelete, args); err != nil {
		return err
	}
	r.collection.RecordHasBeenChanged(ctx, DeletedRecord, r)
	return nil
}

// Destroy removes the stored document. The record cannot be used for
// lifecycle operations afterwards.
func (r *Record) Destroy(ctx context.Context, args ...interface{}) error {
	if r.state == StateDestroyed {
		return ErrDestroyed
	}
	if r.collection == nil {
		return ErrNoCollection
	}

	if r.state != StateNew {
		if err := r.collection.Remove(ctx, r.ID()); err != nil {
			return err
		}
	}
	r.state = StateDestroyed

	if _, err := r.runHooks(ctx, hooks.AfterDestroy, args); err != nil {
		return err
	}
	r.collection.RecordHasBeenChanged(ctx, DestroyedRecord, r)
	return nil
}

// Clone returns a new record with the same attribute values and no id. Nested
// values are copied.
func (r *Record) Clone() *Record {
	values := tracking.DeepCopy(r.values)
	values["id"] = nil
	return newRecord(r.class, r.collection, values, StateNew)
}

// Snapshot returns a detached copy of the record keeping its id and state.
// Async after-hooks receive a snapshot so they never share values with the
// caller's record.
func (r *Record) Snapshot() *Record {
	return newRecord(r.class, r.collection, tracking.DeepCopy(r.values), r.state)
}

// Copy clones the record and creates the clone
func (r *Record) Copy(ctx context.Context, args ...interface{}) (*Record, error) {
	c := r.Clone()
	if err := c.Create(ctx, args...); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateAttribute sets one attribute and saves
func (r *Record) UpdateAttribute(ctx context.Context, name string, value interface{}) error {
	if err := r.Set(name, value); err != nil {
		return err
	}
	return r.Save(ctx)
}

// UpdateAttributes sets several attributes and saves. No attribute is set
// when any of them fails validation.
func (r *Record) UpdateAttributes(ctx context.Context, attrs map[string]interface{}) error {
	for name := range attrs {
		if _, err := r.attribute(name); err != nil {
			return err
		}
	}
	if _, err := r.class.Recoverize(attrs); err != nil {
		return err
	}
	for name, value := range attrs {
		if err := r.Set(name, value); err != nil {
			return err
		}
	}
	return r.Save(ctx)
}

func (r *Record) requirePersisted() error {
	switch {
	case r.state == StateDestroyed:
		return ErrDestroyed
	case r.state == StateNew:
		return ErrNotPersisted
	case r.collection == nil:
		return ErrNoCollection
	}
	return nil
}

// withValues returns a copy of the current values with overrides applied
func (r *Record) withValues(overrides map[string]interface{}) map[string]interface{} {
	values := r.Normalized()
	for name, v := range overrides {
		if _, ok := r.class.Type.Attribute(name); ok {
			values[name] = v
		}
	}
	return values
}

func (r *Record) normalizeID(id interface{}) (interface{}, error) {
	attr, err := r.attribute("id")
	if err != nil {
		return id, nil
	}
	normalized, err := attr.Transform.Normalize(id)
	if err != nil {
		return nil, fmt.Errorf("normalize id: %w", err)
	}
	return normalized, nil
}

// checkpoint commits persisted values and clears tracked changes
func (r *Record) checkpoint(values map[string]interface{}, state State) {
	r.values = values
	r.tracker.Checkpoint(values)
	r.state = state
}

func (r *Record) runHooks(ctx context.Context, phase hooks.Phase, args []interface{}) ([]interface{}, error) {
	if !r.class.hooks.HasHooks(phase) {
		return args, nil
	}

	var executor *hooks.Executor[*Record]
	if env, ok := r.collection.(HookEnvironment); ok {
		executor = hooks.NewExecutor[*Record](env.HookQueue(), env.Logger())
	} else {
		executor = hooks.NewExecutor[*Record](nil, nil)
	}
	return executor.Run(ctx, r.class.hooks, phase, r, args)
}
