package gallery

import (
	"context"
	"sort"

	"github.com/promptkeep/promptkeep/internal/datastore"
)

// Cache keys for the stats layer.
const (
	cacheKeyTotals     = "stats:totals"
	cacheKeyGroupByPfx = "stats:groupby:"
	cacheKeyChoicesPfx = "stats:choices:"
)

// TotalStats returns the combined usage totals, cached for the
// configured TTL.
func (s *Service) TotalStats(ctx context.Context) (*datastore.TotalStats, error) {
	if cached, found := s.cache.Get(cacheKeyTotals); found {
		return cached.(*datastore.TotalStats), nil
	}

	stats, err := s.store.TotalStats(ctx, s.now())
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(cacheKeyTotals, stats)
	return stats, nil
}

// GroupBy returns the grouped value counts for a field, cached for the
// configured TTL. Buckets keep the store order (most frequent first).
func (s *Service) GroupBy(ctx context.Context, field string) ([]datastore.Bucket, error) {
	key := cacheKeyGroupByPfx + field
	if cached, found := s.cache.Get(key); found {
		return cached.([]datastore.Bucket), nil
	}

	buckets, err := s.store.GroupByField(ctx, field, s.Settings.Stats.GroupByLimit)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, buckets)
	return buckets, nil
}

// FieldChoices returns the distinct values of a field sorted by key, for
// populating filter dropdowns. Cached for the configured TTL.
func (s *Service) FieldChoices(ctx context.Context, field string) ([]string, error) {
	key := cacheKeyChoicesPfx + field
	if cached, found := s.cache.Get(key); found {
		return cached.([]string), nil
	}

	buckets, err := s.store.GroupByField(ctx, field, s.Settings.Stats.GroupByLimit)
	if err != nil {
		return nil, err
	}

	choices := make([]string, 0, len(buckets))
	for _, b := range buckets {
		choices = append(choices, b.Key)
	}
	sort.Strings(choices)

	s.cache.SetDefault(key, choices)
	return choices, nil
}
