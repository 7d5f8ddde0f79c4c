// Package migrate holds the migration DSL, the executor applying migration
// steps to storage adapters and the runner tracking applied migrations.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Direction selects which half of a migration runs
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Migration is a named set of schema changes. Change is reversed
// automatically for Down; explicit Up and Down take precedence over it.
type Migration struct {
	ID     string
	Change func(s *Steps)
	Up     func(s *Steps)
	Down   func(s *Steps)
}

// Plan returns the steps the migration runs in direction d. A Down plan
// derived from Change fails with ErrIrreversible before anything runs.
func (m *Migration) Plan(d Direction) ([]Step, error) {
	switch {
	case d == Up && m.Up != nil:
		return collect(m.Up), nil
	case d == Down && m.Down != nil:
		return collect(m.Down), nil
	case m.Change == nil:
		return nil, nil
	case d == Up:
		return collect(m.Change), nil
	}

	steps := collect(m.Change)
	reversed := make([]Step, 0, len(steps))
	for i := len(steps) - 1; i >= 0; i-- {
		inv, err := steps[i].Inverse()
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", m.ID, err)
		}
		reversed = append(reversed, inv)
	}
	return reversed, nil
}

// Migrate runs the migration in direction d. It stops at the first failing
// step; steps already applied are not undone.
func (m *Migration) Migrate(ctx context.Context, exec *Executor, d Direction) error {
	steps, err := m.Plan(d)
	if err != nil {
		return err
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		exec.logger.Debug("running step",
			zap.String("migration", m.ID),
			zap.String("direction", d.String()),
			zap.Stringer("step", step))
		if err := step.apply(ctx, exec); err != nil {
			return fmt.Errorf("migration %s %s: %s: %w", m.ID, d, step, err)
		}
	}
	return nil
}

func collect(fn func(s *Steps)) []Step {
	if fn == nil {
		return nil
	}
	s := &Steps{}
	fn(s)
	return s.steps
}

// Set is a registry of migrations keyed by id
type Set struct {
	mu         sync.RWMutex
	migrations map[string]*Migration
}

// NewSet creates an empty migration set
func NewSet() *Set {
	return &Set{migrations: make(map[string]*Migration)}
}

// Default is the process-wide set used by Register
var Default = NewSet()

// Register adds migrations to the default set
func Register(migrations ...*Migration) error {
	return Default.Register(migrations...)
}

// MustRegister is Register for use in init functions
func MustRegister(migrations ...*Migration) {
	if err := Register(migrations...); err != nil {
		panic(err)
	}
}

// Register adds migrations to the set. Every invalid migration is reported.
func (s *Set) Register(migrations ...*Migration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, m := range migrations {
		switch {
		case m == nil || m.ID == "":
			errs = append(errs, errors.New("migration id is required"))
		case m.Change == nil && m.Up == nil:
			errs = append(errs, fmt.Errorf("migration %s has neither change nor up", m.ID))
		case s.migrations[m.ID] != nil:
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateMigration, m.ID))
		default:
			s.migrations[m.ID] = m
		}
	}
	return errors.Join(errs...)
}

// Get returns a migration by id
func (s *Set) Get(id string) (*Migration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.migrations[id]
	return m, ok
}

// List returns every migration ordered by id
func (s *Set) List() []*Migration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Migration, 0, len(s.migrations))
	for _, m := range s.migrations {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Len returns the number of registered migrations
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.migrations)
}
