package facade

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/mapper/internal/orm/collection"
	"github.com/conduit-lang/mapper/internal/orm/hooks"
	"github.com/conduit-lang/mapper/internal/orm/record"
	"github.com/conduit-lang/mapper/internal/orm/schema"
)

var (
	buildingClass = record.MustExtend(nil, "Farm::BuildingRecord",
		schema.Attr("name", schema.AttributeOptions{Type: schema.TypeString}),
	)
	barnClass = record.MustExtend(buildingClass, "Farm::BarnRecord",
		schema.Attr("stalls", schema.AttributeOptions{Type: schema.TypeInteger, Default: 0}),
	)
	animalClass = record.MustExtend(nil, "Farm::AnimalRecord",
		schema.Attr("name", schema.AttributeOptions{Type: schema.TypeString}),
		schema.Attr("farmerId", schema.AttributeOptions{Type: schema.TypePrimaryKey}),
		schema.Attr("homeId", schema.AttributeOptions{Type: schema.TypePrimaryKey}),
		schema.Attr("homeType", schema.AttributeOptions{Type: schema.TypeString}),
		schema.BelongsTo("farmer", schema.RelationOptions{}),
		schema.RelatedTo("home", schema.RelationOptions{InverseType: "homeType"}),
	)
	farmerClass = record.MustExtend(nil, "Farm::FarmerRecord",
		schema.Attr("name", schema.AttributeOptions{Type: schema.TypeString}),
		schema.HasMany("animals", schema.RelationOptions{}),
	)
)

type farm struct {
	app       *Facade
	farmers   *collection.Collection
	animals   *collection.Collection
	buildings *collection.Collection
}

func newFarm(t *testing.T, key string, opts ...Option) *farm {
	t.Helper()
	app, err := New(key, opts...)
	require.NoError(t, err)
	t.Cleanup(app.Remove)

	adapter := collection.NewMemoryAdapter()
	seq := collection.WithIDGenerator(collection.NewSequenceGenerator(0))

	f := &farm{app: app}
	f.farmers, err = app.AddCollection("FarmersCollection", farmerClass, adapter, seq)
	require.NoError(t, err)
	f.animals, err = app.AddCollection("AnimalsCollection", animalClass, adapter, seq)
	require.NoError(t, err)
	f.buildings, err = app.AddCollection("BuildingsCollection", buildingClass, adapter,
		collection.WithIDGenerator(collection.NewSequenceGenerator(100)))
	require.NoError(t, err)
	require.NoError(t, app.AddClass(barnClass))
	return f
}

func TestNew_KeyInUse(t *testing.T) {
	app, err := New("key-in-use")
	require.NoError(t, err)

	_, err = New("key-in-use")
	assert.ErrorIs(t, err, ErrKeyInUse)

	got, ok := Get("key-in-use")
	assert.True(t, ok)
	assert.Same(t, app, got)

	app.Remove()
	_, ok = Get("key-in-use")
	assert.False(t, ok)

	again, err := New("key-in-use")
	require.NoError(t, err)
	again.Remove()
}

func TestFacade_Registry(t *testing.T) {
	f := newFarm(t, "registry")

	assert.Equal(t, "registry", f.app.Key())
	assert.Equal(t, []string{"AnimalsCollection", "BuildingsCollection", "FarmersCollection"}, f.app.Collections())
	assert.Equal(t, []string{
		"Farm::AnimalRecord", "Farm::BarnRecord", "Farm::BuildingRecord", "Farm::FarmerRecord",
	}, f.app.Schemas())

	class, err := f.app.Class("BarnRecord")
	require.NoError(t, err)
	assert.Same(t, barnClass, class)

	class, err = f.app.Class("Farm::FarmerRecord")
	require.NoError(t, err)
	assert.Same(t, farmerClass, class)

	_, err = f.app.Class("Nope")
	assert.ErrorIs(t, err, ErrUnknownClass)

	_, err = f.app.Collection("NopesCollection")
	assert.ErrorIs(t, err, ErrUnknownCollection)

	rt, err := f.app.FindRecordByName("AnimalRecord")
	require.NoError(t, err)
	assert.Equal(t, "Farm::AnimalRecord", rt.FullName())

	require.NoError(t, f.app.AddClass(barnClass))
	_, err = f.app.AddCollection("FarmersCollection", farmerClass, collection.NewMemoryAdapter())
	assert.Error(t, err)
}

func TestFacade_Validate(t *testing.T) {
	f := newFarm(t, "validate")
	require.NoError(t, f.app.Validate())

	orphan := record.MustExtend(nil, "Farm::OrphanRecord",
		schema.BelongsTo("parent", schema.RelationOptions{}),
	)
	require.NoError(t, f.app.AddClass(orphan))
	assert.Error(t, f.app.Validate())
}

func TestFacade_Relations(t *testing.T) {
	ctx := context.Background()
	f := newFarm(t, "relations")

	farmer, err := f.farmers.Create(ctx, map[string]interface{}{"name": "mcdonald"})
	require.NoError(t, err)

	barn, err := f.buildings.Create(ctx, map[string]interface{}{"name": "red", "type": barnClass.Name(), "stalls": 4})
	require.NoError(t, err)
	assert.Same(t, barnClass, barn.Class())

	cow, err := f.animals.Create(ctx, map[string]interface{}{
		"name":     "bessie",
		"farmerId": farmer.ID(),
		"homeId":   barn.ID(),
		"homeType": barnClass.Name(),
	})
	require.NoError(t, err)
	_, err = f.animals.Create(ctx, map[string]interface{}{"name": "dolly", "farmerId": farmer.ID()})
	require.NoError(t, err)

	owner, err := cow.One(ctx, "farmer")
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, "mcdonald", owner.Get("name"))

	home, err := cow.One(ctx, "home")
	require.NoError(t, err)
	require.NotNil(t, home)
	assert.Same(t, barnClass, home.Class())
	assert.Equal(t, int64(4), home.Get("stalls"))

	cursor, err := farmer.Many(ctx, "animals")
	require.NoError(t, err)
	animals, err := cursor.ToArray(ctx)
	require.NoError(t, err)
	require.Len(t, animals, 2)
	assert.Equal(t, "bessie", animals[0].Get("name"))
}

func TestFacade_Replicas(t *testing.T) {
	ctx := context.Background()
	f := newFarm(t, "replicas")

	barn, err := f.buildings.Create(ctx, map[string]interface{}{"name": "red", "type": barnClass.Name()})
	require.NoError(t, err)

	replica, err := record.Replicate(barn)
	require.NoError(t, err)
	assert.Equal(t, "replicas", replica.MultitonKey)
	assert.Equal(t, "BuildingsCollection", replica.CollectionName)
	assert.Equal(t, "Farm::BarnRecord", replica.Class)

	restored, err := record.Restore(ctx, f.app, replica)
	require.NoError(t, err)
	assert.NotSame(t, barn, restored)
	assert.Same(t, barnClass, restored.Class())
	assert.Equal(t, barnClass.Objectize(barn), barnClass.Objectize(restored))

	fresh, err := f.buildings.Build(map[string]interface{}{"name": "shed", "type": barnClass.Name()})
	require.NoError(t, err)
	replica, err = record.Replicate(fresh)
	require.NoError(t, err)

	restored, err = record.Restore(ctx, f.app, replica)
	require.NoError(t, err)
	assert.True(t, restored.IsNew())
	assert.Same(t, barnClass, restored.Class())
	assert.Equal(t, "shed", restored.Get("name"))

	other := newFarm(t, "replicas-other")
	_, err = record.Restore(ctx, other.app, replica)
	assert.ErrorIs(t, err, record.ErrInvalidReplica)
}

func TestFacade_AsyncHooks(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	queue := hooks.NewAsyncQueue(2, logger)
	queue.Start()
	f := newFarm(t, "async", WithLogger(logger), WithHookQueue(queue))

	class := record.MustExtend(animalClass, "Farm::GoatRecord")
	done := make(chan interface{}, 1)
	class.OnAsync(hooks.AfterCreate, func(ctx context.Context, r *record.Record, args []interface{}) ([]interface{}, error) {
		done <- r.ID()
		return nil, nil
	})
	require.NoError(t, f.app.AddClass(class))

	goat, err := f.animals.Create(ctx, map[string]interface{}{"name": "billy", "type": class.Name()})
	require.NoError(t, err)
	assert.Same(t, class, goat.Class())

	select {
	case id := <-done:
		assert.Equal(t, goat.ID(), id)
	case <-time.After(2 * time.Second):
		t.Fatal("async hook did not run")
	}

	assert.NotZero(t, logs.FilterMessage("record changed").Len())
}

func TestFacade_AsyncHooksReceiveSnapshot(t *testing.T) {
	ctx := context.Background()
	queue := hooks.NewAsyncQueue(1, nil)
	queue.Start()
	defer queue.Shutdown()
	f := newFarm(t, "async-snapshot", WithHookQueue(queue))

	class := record.MustExtend(animalClass, "Farm::SheepRecord")
	seen := make(chan *record.Record, 1)
	class.OnAsync(hooks.AfterCreate, func(ctx context.Context, r *record.Record, args []interface{}) ([]interface{}, error) {
		for i := 0; i < 100; i++ {
			_ = r.Get("name")
		}
		seen <- r
		return nil, nil
	})
	require.NoError(t, f.app.AddClass(class))

	sheep, err := f.animals.Create(ctx, map[string]interface{}{"name": "dolly", "type": class.Name()})
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.NoError(t, sheep.Set("name", fmt.Sprintf("dolly-%d", i)))
	}

	select {
	case r := <-seen:
		assert.NotSame(t, sheep, r)
		assert.Equal(t, sheep.ID(), r.ID())
		assert.Equal(t, record.StatePersisted, r.State())
		assert.Equal(t, "dolly", r.Get("name"))
	case <-time.After(2 * time.Second):
		t.Fatal("async hook did not run")
	}
}

func TestFacade_Notifications(t *testing.T) {
	ctx := context.Background()
	f := newFarm(t, "notifications")

	var events []string
	f.farmers.Subscribe(func(ctx context.Context, event string, r *record.Record) {
		events = append(events, event)
	})

	farmer, err := f.farmers.Create(ctx, map[string]interface{}{"name": "mcdonald"})
	require.NoError(t, err)
	require.NoError(t, farmer.UpdateAttribute(ctx, "name", "old mcdonald"))
	require.NoError(t, farmer.Delete(ctx))
	require.NoError(t, farmer.Destroy(ctx))

	assert.Equal(t, []string{
		record.CreatedRecord, record.UpdatedRecord, record.DeletedRecord, record.DestroyedRecord,
	}, events)
}
