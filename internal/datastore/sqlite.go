package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/promptkeep/promptkeep/internal/conf"
	"github.com/promptkeep/promptkeep/internal/errors"
)

// SQLiteStore implements Interface on a local SQLite file.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the SQLite database connection and runs migrations.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Output.SQLite.Path
	if path == "" {
		return errors.Newf("sqlite path is empty").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(fmt.Errorf("failed to create database directory: %w", err)).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("path", dir).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: createGormLogger(store.Settings.Debug)})
	if err != nil {
		return errors.New(fmt.Errorf("failed to open SQLite database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("path", path).
			Build()
	}

	// Serialized writes suit the ingest pattern; WAL keeps readers unblocked.
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA foreign_keys=ON")

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "SQLite", path)
}

// Close releases the underlying connection pool.
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
