package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type target struct{ name string }

func noop(ctx context.Context, t *target, args []interface{}) ([]interface{}, error) {
	return args, nil
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
		after bool
	}{
		{BeforeCreate, "beforeCreate", false},
		{AfterCreate, "afterCreate", true},
		{BeforeUpdate, "beforeUpdate", false},
		{AfterUpdate, "afterUpdate", true},
		{BeforeDelete, "beforeDelete", false},
		{AfterDelete, "afterDelete", true},
		{AfterDestroy, "afterDestroy", true},
		{Phase(42), "Phase(42)", false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.phase.String())
			assert.Equal(t, tt.after, tt.phase.IsAfter())
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry[*target](nil)
	assert.False(t, r.HasHooks(BeforeCreate))

	r.Register(BeforeCreate, &Hook[*target]{Fn: noop})
	r.Register(BeforeCreate, &Hook[*target]{Name: "named", Fn: noop})

	hooks := r.Hooks(BeforeCreate)
	assert.Len(t, hooks, 2)
	assert.Equal(t, "beforeCreate#1", hooks[0].Name)
	assert.Equal(t, "named", hooks[1].Name)
	assert.Equal(t, BeforeCreate, hooks[1].Phase)
	assert.True(t, r.HasHooks(BeforeCreate))
	assert.False(t, r.HasHooks(AfterCreate))
}

func TestRegistry_InheritedFirst(t *testing.T) {
	parent := NewRegistry[*target](nil)
	child := NewRegistry[*target](parent)

	child.Register(AfterUpdate, &Hook[*target]{Name: "child", Fn: noop})
	parent.Register(AfterUpdate, &Hook[*target]{Name: "parent", Fn: noop})

	hooks := child.Hooks(AfterUpdate)
	assert.Len(t, hooks, 2)
	assert.Equal(t, "parent", hooks[0].Name)
	assert.Equal(t, "child", hooks[1].Name)

	assert.Len(t, parent.Hooks(AfterUpdate), 1)
}
