package repository

import (
	"os"
	"path/filepath"

	"arrodes-economy/internal/config"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Open initializes the database selected by cfg.Store.Type.
func Open(cfg *config.Config, logger zerolog.Logger) (Database, error) {
	switch cfg.Store.Type {
	case "mongodb", "mongo":
		return NewMongoDatabase(cfg.Store.MongoURI, cfg.Store.MongoDatabase, logger)
	case "postgres", "postgresql":
		return NewPostgresDatabase(cfg.Store.PostgresDSN(), logger)
	case "mysql":
		return NewMySQLDatabase(cfg.Store.MySQLDSN(), logger)
	case "redis":
		return NewRedisDatabase(RedisConfig{
			Addr:      cfg.Redis.Address(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger)
	case "memory":
		logger.Warn().Msg("using in-memory store, nothing will survive a restart")
		return NewMemoryDatabase(), nil
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Store.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrap(err, "failed to create SQLite directory")
			}
		}
		return NewSQLiteDatabase(cfg.Store.Path, logger)
	default:
		return nil, eris.Errorf("unknown store type %q", cfg.Store.Type)
	}
}
