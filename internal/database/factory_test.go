package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"zimp-go/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		db, err := NewDatabaseFromConfig(ctx, config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() error = %v", err)
		}
		defer db.Close()
		if err := db.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("sqlite creates data dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "db")
		db, err := NewDatabaseFromConfig(ctx, config.DatabaseConfig{Type: "sqlite", DataDir: dir})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() error = %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dir, DatabaseFileName)); err != nil {
			t.Errorf("database file not created: %v", err)
		}
	})

	errorCases := []struct {
		name string
		cfg  config.DatabaseConfig
	}{
		{"sqlite without data dir", config.DatabaseConfig{Type: "sqlite"}},
		{"postgres without dsn", config.DatabaseConfig{Type: "postgres"}},
		{"unknown type", config.DatabaseConfig{Type: "mongo"}},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewDatabaseFromConfig(ctx, tc.cfg); err == nil {
				t.Error("NewDatabaseFromConfig() expected error")
			}
		})
	}
}
