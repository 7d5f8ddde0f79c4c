package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/cli/config"
	"github.com/conduit-lang/mapper/internal/orm/collection"
	"github.com/conduit-lang/mapper/internal/orm/facade"
	"github.com/conduit-lang/mapper/internal/orm/migrate"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// Options configure the command tree. Applications embedding the CLI pass
// their migration set; Adapter replaces the configured storage.
type Options struct {
	Set     *migrate.Set
	Adapter collection.Adapter
}

// environment is everything a migrate command runs against
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	app    *facade.Facade
	runner *migrate.Runner
	close  []func() error
}

func openEnvironment(ctx context.Context, configPath string, opts Options) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	env := &environment{cfg: cfg, logger: logger}
	env.close = append(env.close, func() error {
		// stderr cannot always be synced
		_ = logger.Sync()
		return nil
	})

	adapter := opts.Adapter
	if adapter == nil {
		var closeFn func() error
		adapter, closeFn, err = openAdapter(ctx, cfg)
		if err != nil {
			env.Close()
			return nil, err
		}
		if closeFn != nil {
			env.close = append(env.close, closeFn)
		}
	}

	app, err := facade.New(cfg.App.Key, facade.WithLogger(logger))
	if err != nil {
		env.Close()
		return nil, err
	}
	env.app = app
	env.close = append(env.close, func() error {
		app.Remove()
		return nil
	})

	applied, err := app.AddCollection(cfg.Migrations.Collection, migrate.MigrationClass, adapter)
	if err != nil {
		env.Close()
		return nil, err
	}

	set := opts.Set
	if set == nil {
		set = migrate.Default
	}
	env.runner = migrate.NewRunner(set, adapter,
		migrate.WithCollection(applied),
		migrate.WithRunnerLogger(logger))
	if err := env.runner.Initialize(ctx); err != nil {
		env.Close()
		return nil, err
	}

	logger.Debug("environment ready",
		zap.String("adapter", cfg.Adapter),
		zap.String("app", cfg.App.Key),
		zap.Int("migrations", set.Len()))
	return env, nil
}

// Close releases the environment in reverse order of acquisition
func (e *environment) Close() error {
	var errs []error
	for i := len(e.close) - 1; i >= 0; i-- {
		if err := e.close[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.close = nil
	return errors.Join(errs...)
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := cfg.ParsedLevel()
	if err != nil {
		return nil, err
	}

	zc := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// openAdapter connects to the configured storage. The returned function
// closes the connection and may be nil.
func openAdapter(ctx context.Context, cfg *config.Config) (collection.Adapter, func() error, error) {
	switch cfg.Adapter {
	case config.AdapterSQL:
		dialect, err := collection.DialectFor(cfg.Database.Driver)
		if err != nil {
			return nil, nil, err
		}
		driver := cfg.Database.Driver
		if driver == "sqlite" {
			driver = "sqlite3"
		}

		db, err := sql.Open(driver, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return collection.NewSQLAdapter(db, dialect), db.Close, nil

	case config.AdapterRedis:
		adapter, err := collection.NewRedisAdapter(ctx, collection.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return adapter, adapter.Client().Close, nil
	}

	return collection.NewMemoryAdapter(), nil, nil
}
