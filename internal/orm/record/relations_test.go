package record

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func push(t *testing.T, c *memoryCollection, attrs map[string]interface{}) *Record {
	t.Helper()
	r, err := c.Create(context.Background(), attrs)
	require.NoError(t, err)
	return r
}

func TestRecord_BelongsTo(t *testing.T) {
	ctx := context.Background()
	g := newGarden()
	push(t, g.cucumbers, map[string]interface{}{"name": "first"})
	second := push(t, g.cucumbers, map[string]interface{}{"name": "second"})

	r := push(t, g.tests, map[string]interface{}{"cucumberId": second.ID()})
	cucumber, err := r.One(ctx, "cucumber")
	require.NoError(t, err)
	require.NotNil(t, cucumber)
	assert.Equal(t, "second", cucumber.Get("name"))

	empty := push(t, g.tests, nil)
	cucumber, err = empty.One(ctx, "cucumber")
	require.NoError(t, err)
	assert.Nil(t, cucumber)
}

func TestRecord_HasOne(t *testing.T) {
	ctx := context.Background()
	g := newGarden()
	r := push(t, g.tests, nil)
	other := push(t, g.tests, nil)
	lonely := push(t, g.tests, nil)

	push(t, g.tomatoes, map[string]interface{}{"name": "a", "testId": other.ID()})
	push(t, g.tomatoes, map[string]interface{}{"name": "b", "testId": r.ID()})

	tomato, err := r.One(ctx, "tomato")
	require.NoError(t, err)
	require.NotNil(t, tomato)
	assert.Equal(t, "b", tomato.Get("name"))
	assert.Equal(t, r.ID(), tomato.Get("testId"))

	tomato, err = lonely.One(ctx, "tomato")
	require.NoError(t, err)
	assert.Nil(t, tomato)

	_, err = r.Many(ctx, "tomato")
	assert.ErrorIs(t, err, ErrRelationKind)
}

func TestRecord_HasMany(t *testing.T) {
	ctx := context.Background()
	g := newGarden()
	r := push(t, g.tests, nil)
	other := push(t, g.tests, nil)

	push(t, g.tomatoes, map[string]interface{}{"name": "a", "testId": r.ID()})
	push(t, g.tomatoes, map[string]interface{}{"name": "b", "testId": other.ID()})
	push(t, g.tomatoes, map[string]interface{}{"name": "c", "testId": r.ID()})

	cursor, err := r.Many(ctx, "tomatoes")
	require.NoError(t, err)
	tomatoes, err := cursor.ToArray(ctx)
	require.NoError(t, err)
	require.Len(t, tomatoes, 2)
	assert.Equal(t, "a", tomatoes[0].Get("name"))
	assert.Equal(t, "c", tomatoes[1].Get("name"))
}

func TestRecord_Through(t *testing.T) {
	ctx := context.Background()
	g := newGarden()
	r := push(t, g.tests, nil)
	other := push(t, g.tests, nil)

	bean := push(t, g.seeds, map[string]interface{}{"name": "bean"})
	pea := push(t, g.seeds, map[string]interface{}{"name": "pea"})
	corn := push(t, g.seeds, map[string]interface{}{"name": "corn"})

	push(t, g.plantings, map[string]interface{}{"testId": r.ID(), "seedId": pea.ID(), "row": 1})
	push(t, g.plantings, map[string]interface{}{"testId": r.ID(), "seedId": bean.ID(), "row": 2})
	push(t, g.plantings, map[string]interface{}{"testId": other.ID(), "seedId": corn.ID(), "row": 1})

	cursor, err := r.Many(ctx, "seeds")
	require.NoError(t, err)
	seeds, err := cursor.ToArray(ctx)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "bean", seeds[0].Get("name"))
	assert.Equal(t, "pea", seeds[1].Get("name"))

	first, err := r.One(ctx, "firstSeed")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "pea", first.Get("name"))

	lonely := push(t, g.tests, nil)
	cursor, err = lonely.Many(ctx, "seeds")
	require.NoError(t, err)
	assert.False(t, cursor.HasNext())
}

func TestRecord_ThroughNotDeclared(t *testing.T) {
	g := newGarden()
	r := push(t, g.tests, nil)

	_, err := r.Many(context.Background(), "weeds")
	assert.ErrorIs(t, err, ErrThroughNotDeclared)
}

func TestRecord_RelationErrors(t *testing.T) {
	ctx := context.Background()
	g := newGarden()
	r := push(t, g.tests, nil)

	_, err := r.One(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownRelation)

	_, err = r.One(ctx, "tomatoes")
	assert.ErrorIs(t, err, ErrRelationKind)

	_, err = r.Many(ctx, "cucumber")
	assert.ErrorIs(t, err, ErrRelationKind)

	delete(g.resolver.collections, "CucumbersCollection")
	require.NoError(t, r.Set("cucumberId", 1))
	_, err = r.One(ctx, "cucumber")
	assert.ErrorIs(t, err, ErrNotFound)
}
