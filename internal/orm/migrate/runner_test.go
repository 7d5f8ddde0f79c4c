package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/mapper/internal/orm/collection"
	"github.com/conduit-lang/mapper/internal/orm/schema"
)

func createMigration(id, name string) *Migration {
	return &Migration{
		ID:     id,
		Change: func(s *Steps) { s.CreateCollection(name) },
	}
}

func setupRunner(t *testing.T, migrations ...*Migration) (*Runner, *collection.MemoryAdapter, *observer.ObservedLogs) {
	t.Helper()
	set := NewSet()
	require.NoError(t, set.Register(migrations...))

	core, logs := observer.New(zap.InfoLevel)
	adapter := collection.NewMemoryAdapter()
	runner := NewRunner(set, adapter, WithRunnerLogger(zap.New(core)))
	require.NoError(t, runner.Initialize(context.Background()))
	return runner, adapter, logs
}

func appliedIDs(t *testing.T, runner *Runner) []string {
	t.Helper()
	status, err := runner.Status(context.Background())
	require.NoError(t, err)
	ids := make([]string, len(status.Applied))
	for i, m := range status.Applied {
		ids[i] = m.ID
	}
	return ids
}

func TestRunner_Up(t *testing.T) {
	ctx := context.Background()
	runner, adapter, _ := setupRunner(t,
		createMigration("20240103000000_create_seeds", "seeds"),
		createMigration("20240101000000_create_vegetables", "vegetables"),
		createMigration("20240102000000_create_farmers", "farmers"),
	)

	applied, err := runner.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"20240101000000_create_vegetables",
		"20240102000000_create_farmers",
		"20240103000000_create_seeds",
	}, applied)
	assert.Subset(t, adapter.Collections(), []string{"vegetables", "farmers", "seeds", "migrations"})

	status, err := runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Total: 3 migrations (3 applied, 0 pending)", status.Summary())
	require.NotNil(t, status.LastApplied)
	assert.Equal(t, "20240103000000_create_seeds", status.LastApplied.ID)
	assert.False(t, status.LastApplied.AppliedAt.IsZero())

	applied, err = runner.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestRunner_UpStopsAtFailure(t *testing.T) {
	ctx := context.Background()
	runner, _, _ := setupRunner(t,
		createMigration("20240101000000_create_vegetables", "vegetables"),
		&Migration{
			ID:     "20240102000000_rename_missing",
			Change: func(s *Steps) { s.RenameCollection("missing", "found") },
		},
		createMigration("20240103000000_create_seeds", "seeds"),
	)

	applied, err := runner.Up(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, collection.ErrNotFound)
	assert.Contains(t, err.Error(), "migration 20240102000000_rename_missing failed")
	assert.Equal(t, []string{"20240101000000_create_vegetables"}, applied)

	status, err := runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240102000000_rename_missing", "20240103000000_create_seeds"}, status.Pending)
}

func TestRunner_RollbackDefaultsToOneStep(t *testing.T) {
	ctx := context.Background()
	runner, adapter, _ := setupRunner(t,
		createMigration("20240101000000_create_vegetables", "vegetables"),
		createMigration("20240102000000_create_farmers", "farmers"),
	)
	_, err := runner.Up(ctx)
	require.NoError(t, err)

	rolledBack, err := runner.Rollback(ctx, RollbackOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"20240102000000_create_farmers"}, rolledBack)
	assert.NotContains(t, adapter.Collections(), "farmers")
	assert.Contains(t, adapter.Collections(), "vegetables")
	assert.Equal(t, []string{"20240101000000_create_vegetables"}, appliedIDs(t, runner))
}

func TestRollbackCommand_TwoSteps(t *testing.T) {
	ctx := context.Background()
	runner, _, _ := setupRunner(t,
		createMigration("20240101000000_create_vegetables", "vegetables"),
		createMigration("20240102000000_create_farmers", "farmers"),
		createMigration("20240103000000_create_seeds", "seeds"),
	)
	_, err := runner.Up(ctx)
	require.NoError(t, err)

	rolledBack, err := runner.Rollback(ctx, RollbackOptions{Steps: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"20240103000000_create_seeds", "20240102000000_create_farmers"}, rolledBack)
	assert.Equal(t, []string{"20240101000000_create_vegetables"}, appliedIDs(t, runner))

	found, err := runner.Collection().Includes(ctx, "20240103000000_create_seeds")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRunner_RollbackUntil(t *testing.T) {
	ctx := context.Background()
	runner, _, _ := setupRunner(t,
		createMigration("20240101000000_create_vegetables", "vegetables"),
		createMigration("20240102000000_create_farmers", "farmers"),
		createMigration("20240103000000_create_seeds", "seeds"),
	)
	_, err := runner.Up(ctx)
	require.NoError(t, err)

	rolledBack, err := runner.Rollback(ctx, RollbackOptions{Until: "20240102000000_create_farmers"})
	require.NoError(t, err)
	assert.Equal(t, []string{"20240103000000_create_seeds", "20240102000000_create_farmers"}, rolledBack)
	assert.Equal(t, []string{"20240101000000_create_vegetables"}, appliedIDs(t, runner))
}

func TestRunner_RollbackUntilLimitedBySteps(t *testing.T) {
	ctx := context.Background()
	runner, _, _ := setupRunner(t,
		createMigration("20240101000000_create_vegetables", "vegetables"),
		createMigration("20240102000000_create_farmers", "farmers"),
		createMigration("20240103000000_create_seeds", "seeds"),
	)
	_, err := runner.Up(ctx)
	require.NoError(t, err)

	rolledBack, err := runner.Rollback(ctx, RollbackOptions{Steps: 1, Until: "20240101000000_create_vegetables"})
	require.NoError(t, err)
	assert.Equal(t, []string{"20240103000000_create_seeds"}, rolledBack)
}

func TestRunner_RollbackInvalidOptions(t *testing.T) {
	ctx := context.Background()
	runner, _, _ := setupRunner(t, createMigration("20240101000000_create_vegetables", "vegetables"))
	_, err := runner.Up(ctx)
	require.NoError(t, err)

	_, err = runner.Rollback(ctx, RollbackOptions{Steps: -1})
	assert.ErrorIs(t, err, ErrInvalidSteps)

	_, err = runner.Rollback(ctx, RollbackOptions{Until: "20990101000000_unknown"})
	assert.ErrorIs(t, err, ErrUnknownMigration)

	assert.Equal(t, []string{"20240101000000_create_vegetables"}, appliedIDs(t, runner))
}

func TestRunner_RollbackNothingApplied(t *testing.T) {
	runner, _, _ := setupRunner(t, createMigration("20240101000000_create_vegetables", "vegetables"))

	rolledBack, err := runner.Rollback(context.Background(), RollbackOptions{Steps: 3})
	require.NoError(t, err)
	assert.Empty(t, rolledBack)
}

func TestRunner_RollbackHaltsOnFailure(t *testing.T) {
	ctx := context.Background()
	runner, adapter, logs := setupRunner(t,
		createMigration("20240101000000_create_vegetables", "vegetables"),
		&Migration{
			ID:   "20240102000000_broken_down",
			Up:   func(s *Steps) { s.CreateCollection("farmers") },
			Down: func(s *Steps) { s.RenameCollection("missing", "farmers") },
		},
		createMigration("20240103000000_create_seeds", "seeds"),
	)
	_, err := runner.Up(ctx)
	require.NoError(t, err)

	rolledBack, err := runner.Rollback(ctx, RollbackOptions{Steps: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, collection.ErrNotFound)
	assert.Equal(t, []string{"20240103000000_create_seeds"}, rolledBack)

	assert.Equal(t, []string{
		"20240101000000_create_vegetables",
		"20240102000000_broken_down",
	}, appliedIDs(t, runner))
	assert.Contains(t, adapter.Collections(), "vegetables")
	assert.NotContains(t, adapter.Collections(), "seeds")

	entries := logs.FilterMessage("error in migration").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "20240102000000_broken_down", fields["migration"])
	assert.Contains(t, fields["error"], "not found")
	assert.NotEmpty(t, fields["stack"])
}

func TestRunner_RollbackIrreversible(t *testing.T) {
	ctx := context.Background()
	runner, adapter, _ := setupRunner(t, &Migration{
		ID:     "20240101000000_drop_legacy",
		Change: func(s *Steps) { s.DropCollection("legacy") },
	})
	_, err := runner.Up(ctx)
	require.NoError(t, err)

	_, err = runner.Rollback(ctx, RollbackOptions{})
	assert.ErrorIs(t, err, ErrIrreversible)
	assert.Equal(t, []string{"20240101000000_drop_legacy"}, appliedIDs(t, runner))
	assert.NotContains(t, adapter.Collections(), "legacy")
}

func TestRunner_RollbackUnregistered(t *testing.T) {
	ctx := context.Background()
	runner, _, _ := setupRunner(t, createMigration("20240101000000_create_vegetables", "vegetables"))

	_, err := runner.Collection().Create(ctx, map[string]interface{}{"id": "20240201000000_removed"})
	require.NoError(t, err)

	_, err = runner.Rollback(ctx, RollbackOptions{})
	assert.ErrorIs(t, err, ErrUnknownMigration)
}

func TestRunner_FieldMigrationRoundTrip(t *testing.T) {
	ctx := context.Background()
	runner, adapter, _ := setupRunner(t,
		createMigration("20240101000000_create_vegetables", "vegetables"),
		&Migration{
			ID: "20240102000000_add_weight",
			Change: func(s *Steps) {
				s.AddField("vegetables", "weight", FieldOptions{Type: schema.TypeInteger, Default: 10})
				s.RenameField("vegetables", "title", "name")
				s.Reversible(
					func(s *Steps) { s.AddIndex("vegetables", []string{"name"}, IndexOptions{}) },
					func(s *Steps) { s.RemoveIndex("vegetables", []string{"name"}) },
				)
			},
		},
	)

	_, err := runner.Up(ctx)
	require.NoError(t, err)
	seed(t, adapter, "vegetables", map[string]interface{}{"id": "1", "name": "carrot"})

	rolledBack, err := runner.Rollback(ctx, RollbackOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"20240102000000_add_weight"}, rolledBack)

	doc := take(t, adapter, "vegetables", "1")
	assert.Equal(t, map[string]interface{}{"id": "1", "title": "carrot"}, doc)
	assert.Empty(t, adapter.Indexes("vegetables"))
}

func TestRunner_WithCollection(t *testing.T) {
	ctx := context.Background()
	adapter := collection.NewMemoryAdapter()
	applied := collection.New("schema_migrations", MigrationClass, adapter)

	set := NewSet()
	require.NoError(t, set.Register(createMigration("20240101000000_create_vegetables", "vegetables")))
	runner := NewRunner(set, adapter, WithCollection(applied))
	require.NoError(t, runner.Initialize(ctx))

	_, err := runner.Up(ctx)
	require.NoError(t, err)

	found, err := applied.Includes(ctx, "20240101000000_create_vegetables")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, adapter.Collections(), "schema_migrations")
}
