package datastore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/promptkeep/promptkeep/internal/conf"
	"github.com/promptkeep/promptkeep/internal/errors"
	"github.com/promptkeep/promptkeep/internal/logging"
)

// Interface is the storage contract the rest of the application depends on.
// Implementations are safe for concurrent use once Open has returned.
type Interface interface {
	Open() error
	Close() error

	Save(ctx context.Context, image *Image, tokens []ImageToken) error
	Get(ctx context.Context, id string) (*Image, error)
	Delete(ctx context.Context, id string) error

	SearchImages(ctx context.Context, filters *SearchFilters) ([]Image, int64, error)
	GroupByField(ctx context.Context, field string, limit int) ([]Bucket, error)
	TokenFrequencies(ctx context.Context, field TokenField, limit int) ([]Bucket, error)
	TotalStats(ctx context.Context, now time.Time) (*TotalStats, error)
}

// DataStore carries the shared GORM handle for the concrete stores.
type DataStore struct {
	DB *gorm.DB
}

// New selects the configured store backend. Validation guarantees exactly
// one output is enabled, but the fallthrough guards misuse from tests.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		logging.ForService("datastore").Error("no database backend enabled in settings")
		return nil
	}
}

// performAutoMigration drives gorm.AutoMigrate and wraps failures with
// context for the operator.
func performAutoMigration(db *gorm.DB, debug bool, dbType string, connectionInfo string) error {
	if err := db.AutoMigrate(&Image{}, &ImageToken{}); err != nil {
		return errors.New(fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Build()
	}

	if debug {
		logging.ForService("datastore").Debug("database migration completed",
			"db_type", dbType,
			"connection", connectionInfo)
	}

	return nil
}

// createGormLogger returns a slog-backed GORM logger matching the
// application's logging configuration.
func createGormLogger(debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	return logger.New(
		&slogWriter{logger: logging.ForService("datastore.gorm")},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Printf(format string, args ...any) {
	w.logger.Info(fmt.Sprintf(format, args...))
}

// Save writes the image and its tokens in one transaction.
func (ds *DataStore) Save(ctx context.Context, image *Image, tokens []ImageToken) error {
	if image == nil {
		return errors.Newf("cannot save nil image").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(image).Error; err != nil {
			return err
		}
		for i := range tokens {
			tokens[i].ImageID = image.ID
		}
		if len(tokens) > 0 {
			if err := tx.Create(&tokens).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_image").
			Context("image_id", image.ID).
			Build()
	}

	return nil
}

// Get fetches a single image by ID. Missing rows return a
// CategoryNotFound error.
func (ds *DataStore) Get(ctx context.Context, id string) (*Image, error) {
	var image Image
	err := ds.DB.WithContext(ctx).First(&image, "id = ?", id).Error
	if err != nil {
		category := errors.CategoryDatabase
		if errors.Is(err, gorm.ErrRecordNotFound) {
			category = errors.CategoryNotFound
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(category).
			Context("operation", "get_image").
			Context("image_id", id).
			Build()
	}
	return &image, nil
}

// Delete removes an image row and its tokens.
func (ds *DataStore) Delete(ctx context.Context, id string) error {
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", id).Delete(&ImageToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Image{}, "id = ?", id).Error
	})
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "delete_image").
			Context("image_id", id).
			Build()
	}
	return nil
}
