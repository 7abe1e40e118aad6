package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"zimp-go/internal/config"
	"zimp-go/internal/zimp"
)

// DatabaseFileName is the SQLite file created under the configured data dir.
const DatabaseFileName = "zimp.db"

// NewDatabaseFromConfig opens the configured database and brings its schema
// up to date.
func NewDatabaseFromConfig(ctx context.Context, cfg config.DatabaseConfig) (zimp.Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return openSQLite(filepath.Join(cfg.DataDir, DatabaseFileName))
	case "memory":
		return openSQLite(":memory:")
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("dsn required for postgres database")
		}
		db, err := NewPostgresDatabase(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

func openSQLite(path string) (*SQLiteDatabase, error) {
	db, err := NewSQLiteDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
