package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Adapter kinds
const (
	AdapterMemory = "memory"
	AdapterSQL    = "sql"
	AdapterRedis  = "redis"
)

// Config represents the mapper configuration
type Config struct {
	Adapter    string           `mapstructure:"adapter"`
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Migrations MigrationsConfig `mapstructure:"migrations"`
	Log        LogConfig        `mapstructure:"log"`
}

// AppConfig holds the application module settings
type AppConfig struct {
	Key string `mapstructure:"key"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// RedisConfig represents redis configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// MigrationsConfig configures migration tracking
type MigrationsConfig struct {
	Collection string `mapstructure:"collection"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ParsedLevel returns the zap level of Level
func (c LogConfig) ParsedLevel() (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return level, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Load reads mapper.yml from the current directory, or the file at path
// when it is not empty. Environment variables prefixed with MAPPER_
// override file values, e.g. MAPPER_DATABASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("adapter", AdapterMemory)
	v.SetDefault("app.key", "mapper")
	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "mapper:")
	v.SetDefault("migrations.collection", "migrations")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mapper")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Database.URL == "" {
		config.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetProjectRoot walks up from the working directory to the first
// directory holding mapper.yml or mapper.yaml
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range []string{"mapper.yml", "mapper.yaml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a mapper project (no mapper.yml found)")
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Adapter {
	case AdapterMemory, AdapterRedis:
	case AdapterSQL:
		switch cfg.Database.Driver {
		case "pgx", "postgres", "sqlite3", "sqlite":
		default:
			return fmt.Errorf("database.driver must be one of pgx, postgres, sqlite3, got: %s", cfg.Database.Driver)
		}
		if cfg.Database.URL == "" {
			return fmt.Errorf("database.url is required for the sql adapter")
		}
	default:
		return fmt.Errorf("adapter must be one of memory, sql, redis, got: %s", cfg.Adapter)
	}

	if cfg.App.Key == "" {
		return fmt.Errorf("app.key must not be empty")
	}
	if cfg.Migrations.Collection == "" {
		return fmt.Errorf("migrations.collection must not be empty")
	}
	if _, err := cfg.Log.ParsedLevel(); err != nil {
		return err
	}
	if cfg.Log.Format != "console" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format)
	}
	return nil
}
