package migrate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/orm/collection"
	"github.com/conduit-lang/mapper/internal/orm/record"
)

// DefaultCollection is the collection applied migrations are recorded in
const DefaultCollection = "migrations"

// MigrationClass is the record class of applied migrations. A record's id
// is the migration id and createdAt the time it was applied.
var MigrationClass = record.MustExtend(nil, "Mapper::SchemaMigration")

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithCollectionName records applied migrations in the named collection
func WithCollectionName(name string) RunnerOption {
	return func(r *Runner) { r.collectionName = name }
}

// WithCollection records applied migrations in an existing collection, such
// as one registered with an application facade. Its delegate should be
// MigrationClass or a subclass.
func WithCollection(c *collection.Collection) RunnerOption {
	return func(r *Runner) {
		r.migrations = c
		r.collectionName = c.Name()
	}
}

// WithRunnerLogger sets the runner and executor logger
func WithRunnerLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// Runner applies and rolls back the migrations of a Set, keeping one
// MigrationClass record per applied migration
type Runner struct {
	set            *Set
	exec           *Executor
	migrations     *collection.Collection
	collectionName string
	logger         *zap.Logger
}

// NewRunner creates a runner for set over adapter
func NewRunner(set *Set, adapter collection.Adapter, opts ...RunnerOption) *Runner {
	r := &Runner{
		set:            set,
		collectionName: DefaultCollection,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.exec = NewExecutor(adapter, r.logger)
	if r.migrations == nil {
		r.migrations = collection.New(r.collectionName, MigrationClass, adapter, collection.WithLogger(r.logger))
	}
	return r
}

// Executor returns the executor migrations run against
func (r *Runner) Executor() *Executor { return r.exec }

// Collection returns the collection of applied migration records
func (r *Runner) Collection() *collection.Collection { return r.migrations }

// Initialize creates the migrations collection when the adapter manages
// collections
func (r *Runner) Initialize(ctx context.Context) error {
	sa, ok := r.exec.Adapter().(collection.SchemaAdapter)
	if !ok {
		return nil
	}
	if err := sa.CreateCollection(ctx, r.collectionName); err != nil {
		return fmt.Errorf("failed to create migrations collection: %w", err)
	}
	return nil
}

// Applied returns the applied migration records ordered by id
func (r *Runner) Applied(ctx context.Context) ([]*record.Record, error) {
	cursor, err := r.migrations.TakeAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	defer cursor.Close()

	applied, err := cursor.ToArray(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	sort.Slice(applied, func(i, j int) bool { return migrationID(applied[i]) < migrationID(applied[j]) })
	return applied, nil
}

// Pending returns the registered migrations not applied yet, ordered by id
func (r *Runner) Pending(ctx context.Context) ([]*Migration, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}

	done := make(map[string]bool, len(applied))
	for _, rec := range applied {
		done[migrationID(rec)] = true
	}

	var pending []*Migration
	for _, m := range r.set.List() {
		if !done[m.ID] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Up applies every pending migration in ascending id order and returns the
// ids applied. It stops at the first failure.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	pending, err := r.Pending(ctx)
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		r.logger.Info("no pending migrations")
		return nil, nil
	}
	r.logger.Info("found pending migrations", zap.Int("count", len(pending)))

	var applied []string
	for _, m := range pending {
		start := time.Now()
		if err := m.Migrate(ctx, r.exec, Up); err != nil {
			return applied, fmt.Errorf("migration %s failed: %w", m.ID, err)
		}
		if _, err := r.migrations.Create(ctx, map[string]interface{}{"id": m.ID}); err != nil {
			return applied, fmt.Errorf("failed to record migration %s: %w", m.ID, err)
		}
		applied = append(applied, m.ID)
		r.logger.Info("applied migration", zap.String("migration", m.ID), zap.Duration("took", time.Since(start)))
	}
	return applied, nil
}

// RollbackOptions selects the migrations to roll back. Steps is the number
// of most recent migrations, 1 when zero and Until is empty. Until names
// the oldest migration to roll back, inclusive.
type RollbackOptions struct {
	Steps int
	Until string
}

// Rollback runs the down half of the most recent migrations, newest first,
// hard-destroying each migration's record after it. A failing migration
// stops the batch; migrations already rolled back stay rolled back. The
// ids rolled back are returned together with the error.
func (r *Runner) Rollback(ctx context.Context, opts RollbackOptions) ([]string, error) {
	if opts.Steps < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSteps, opts.Steps)
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(applied)-1; i < j; i, j = i+1, j-1 {
		applied[i], applied[j] = applied[j], applied[i]
	}

	if opts.Until != "" && !containsID(applied, opts.Until) {
		return nil, fmt.Errorf("%w: %s is not applied", ErrUnknownMigration, opts.Until)
	}

	limit := opts.Steps
	if limit == 0 {
		limit = 1
		if opts.Until != "" {
			limit = len(applied)
		}
	}
	if limit < len(applied) {
		applied = applied[:limit]
	}

	var rolledBack []string
	for _, rec := range applied {
		id := migrationID(rec)
		if err := r.rollback(ctx, id, rec); err != nil {
			r.logger.Error("error in migration",
				zap.String("migration", id),
				zap.Error(err),
				zap.Stack("stack"))
			return rolledBack, err
		}
		rolledBack = append(rolledBack, id)
		r.logger.Info("rolled back migration", zap.String("migration", id))

		if id == opts.Until {
			break
		}
	}
	return rolledBack, nil
}

func (r *Runner) rollback(ctx context.Context, id string, rec *record.Record) error {
	m, ok := r.set.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMigration, id)
	}
	if err := m.Migrate(ctx, r.exec, Down); err != nil {
		return err
	}
	if err := rec.Destroy(ctx); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", id, err)
	}
	return nil
}

// AppliedMigration is an applied migration with the time it was applied
type AppliedMigration struct {
	ID        string
	AppliedAt time.Time
}

// MigrationStatus represents the current state of migrations
type MigrationStatus struct {
	Total       int
	Applied     []AppliedMigration
	Pending     []string
	LastApplied *AppliedMigration
}

// Summary returns a human-readable summary
func (s *MigrationStatus) Summary() string {
	return fmt.Sprintf("Total: %d migrations (%d applied, %d pending)",
		s.Total,
		len(s.Applied),
		len(s.Pending))
}

// Status returns the current migration status
func (r *Runner) Status(ctx context.Context) (*MigrationStatus, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := r.Pending(ctx)
	if err != nil {
		return nil, err
	}

	status := &MigrationStatus{Total: r.set.Len()}
	for _, rec := range applied {
		at, _ := rec.Get("createdAt").(time.Time)
		status.Applied = append(status.Applied, AppliedMigration{ID: migrationID(rec), AppliedAt: at})
	}
	for _, m := range pending {
		status.Pending = append(status.Pending, m.ID)
	}
	if n := len(status.Applied); n > 0 {
		last := status.Applied[n-1]
		status.LastApplied = &last
	}
	return status, nil
}

func migrationID(rec *record.Record) string {
	return collection.DocumentKey(rec.ID())
}

func containsID(records []*record.Record, id string) bool {
	for _, rec := range records {
		if migrationID(rec) == id {
			return true
		}
	}
	return false
}
