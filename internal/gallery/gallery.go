// Package gallery is the application service over the image store: the
// ingest pipeline on the producer side, and search plus aggregation on
// the consumer side.
package gallery

import (
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/promptkeep/promptkeep/internal/conf"
	"github.com/promptkeep/promptkeep/internal/datastore"
	"github.com/promptkeep/promptkeep/internal/logging"
)

// Service coordinates ingestion, search and statistics over one store.
type Service struct {
	Settings *conf.Settings

	store  datastore.Interface
	cache  *cache.Cache
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New builds a gallery service on the given store.
func New(settings *conf.Settings, store datastore.Interface) *Service {
	ttl := time.Duration(settings.Stats.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &Service{
		Settings: settings,
		store:    store,
		cache:    cache.New(ttl, 2*ttl),
		logger:   logging.ForService("gallery"),
		now:      time.Now,
	}
}
