package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/promptkeep/promptkeep/internal/conf"
	"github.com/promptkeep/promptkeep/internal/errors"
)

// MySQLStore implements Interface on a MySQL server.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the MySQL database connection and runs migrations.
func (store *MySQLStore) Open() error {
	cfg := &store.Settings.Output.MySQL
	if cfg.Database == "" || cfg.Host == "" {
		return errors.Newf("mysql configuration incomplete: database and host are required").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: createGormLogger(store.Settings.Debug)})
	if err != nil {
		return errors.New(fmt.Errorf("failed to open MySQL database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("host", cfg.Host).
			Context("database", cfg.Database).
			Build()
	}

	store.DB = db
	connectionInfo := fmt.Sprintf("%s@%s:%s/%s", cfg.Username, cfg.Host, cfg.Port, cfg.Database)
	return performAutoMigration(db, store.Settings.Debug, "MySQL", connectionInfo)
}

// Close releases the underlying connection pool.
func (store *MySQLStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
