package gallery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptkeep/promptkeep/internal/conf"
	"github.com/promptkeep/promptkeep/internal/datastore"
	"github.com/promptkeep/promptkeep/internal/generation"
)

// newTestService wires a gallery service onto a temporary SQLite store
// with the image data path rooted in a temp dir.
func newTestService(t *testing.T) (*Service, datastore.Interface, string) {
	t.Helper()

	dataPath := t.TempDir()
	settings := &conf.Settings{}
	settings.Ingest.DataPath = dataPath
	settings.Search.DefaultPageSize = 20
	settings.Search.MaxPageSize = 100
	settings.Search.DefaultWindowHours = 72
	settings.Stats.GroupByLimit = 2000
	settings.Stats.CacheTTLSeconds = 60
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store := datastore.New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return New(settings, store), store, dataPath
}

// writeImageFile creates a placeholder image file under the data path.
func writeImageFile(t *testing.T, dataPath, name string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dataPath, name), []byte("png"), 0o644))
	return name
}

func testEvent(savePath any, start time.Time) *generation.Event {
	return &generation.Event{
		SavePath:     savePath,
		Parameters:   "a cat, masterpiece\nNegative prompt: blurry\nSteps: 20, Size: 512x768, Seed: 42",
		JobStartTime: start,
		IsTxt2Img:    true,
	}
}

func TestIngestWritesCoercedRecord(t *testing.T) {
	t.Parallel()
	svc, store, dataPath := newTestService(t)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 10, 0, 0, 500_000_000, time.UTC)
	svc.now = func() time.Time { return start.Add(90 * time.Second) }

	name := writeImageFile(t, dataPath, "cat.png")
	require.NoError(t, svc.Ingest(ctx, testEvent(name, start)))

	result, err := svc.Search(ctx, datastore.NewSearchFilters(svc.now(), 72))
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	image := result.Items[0]

	require.NotNil(t, image.Prompt)
	assert.Equal(t, "a cat, masterpiece", *image.Prompt)
	require.NotNil(t, image.NegativePrompt)
	assert.Equal(t, "blurry", *image.NegativePrompt)
	require.NotNil(t, image.Steps)
	assert.Equal(t, 20, *image.Steps)
	require.NotNil(t, image.Size)
	assert.Equal(t, "512x768", *image.Size)
	require.NotNil(t, image.Width)
	assert.Equal(t, 512, *image.Width)
	require.NotNil(t, image.Height)
	assert.Equal(t, 768, *image.Height)
	require.NotNil(t, image.Seed)
	assert.Equal(t, int64(42), *image.Seed)
	require.NotNil(t, image.UsedTimeInSeconds)
	assert.Equal(t, int64(90), *image.UsedTimeInSeconds)
	assert.Nil(t, image.CfgScale, "Absent tail fields stay nil")

	// Start time is stored as a UTC instant with second precision.
	require.NotNil(t, image.JobStartTime)
	assert.True(t, image.JobStartTime.Equal(start.Truncate(time.Second)))

	stored, err := store.Get(ctx, image.ID)
	require.NoError(t, err)
	assert.Equal(t, image.ID, stored.ID)
}

func TestIngestedImageFallsInsideDefaultWindow(t *testing.T) {
	t.Parallel()
	svc, _, dataPath := newTestService(t)
	ctx := context.Background()

	// A record started an hour ago must land inside a now-72h..now window
	// regardless of the zone the event timestamp arrived in.
	name := writeImageFile(t, dataPath, "recent.png")
	event := testEvent(name, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, svc.Ingest(ctx, event))

	inOffset := writeImageFile(t, dataPath, "offset.png")
	offsetEvent := testEvent(inOffset, time.Now().In(generation.JobTimezone).Add(-2*time.Hour))
	require.NoError(t, svc.Ingest(ctx, offsetEvent))

	result, err := svc.Search(ctx, svc.NewSearchFilters())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalCount)
	assert.Len(t, result.Items, 2)
}

func TestIngestRejectsNonStringSavePath(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)

	err := svc.Ingest(context.Background(), testEvent(42, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save path")
}

func TestIngestBatchContinuesPastFailures(t *testing.T) {
	t.Parallel()
	svc, _, dataPath := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	good := writeImageFile(t, dataPath, "good.png")
	events := []*generation.Event{
		testEvent(nil, now),
		testEvent(good, now),
	}

	err := svc.IngestBatch(ctx, events)
	require.Error(t, err, "Batch error must surface the dropped event")

	result, serr := svc.Search(ctx, svc.NewSearchFilters())
	require.NoError(t, serr)
	assert.Len(t, result.Items, 1, "Remaining events must still be written")
}

func TestIngestDropsUncoercibleField(t *testing.T) {
	t.Parallel()
	svc, _, dataPath := newTestService(t)
	ctx := context.Background()

	name := writeImageFile(t, dataPath, "odd.png")
	event := testEvent(name, time.Now())
	event.Parameters = "a cat\nSteps: twenty, Model: dreamshaper_8, CFG scale: 7.5"
	require.NoError(t, svc.Ingest(ctx, event))

	result, err := svc.Search(ctx, svc.NewSearchFilters())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	image := result.Items[0]

	assert.Nil(t, image.Steps, "Uncoercible field must be dropped, not defaulted")
	require.NotNil(t, image.Model)
	assert.Equal(t, "dreamshaper_8", *image.Model)
	require.NotNil(t, image.CfgScale)
	assert.InDelta(t, 7.5, *image.CfgScale, 1e-9)
}

func TestIngestDropsNonFiniteCfgScale(t *testing.T) {
	t.Parallel()
	svc, _, dataPath := newTestService(t)
	ctx := context.Background()

	// inf, -inf and nan all parse as floats but must never be persisted.
	tests := []struct {
		name  string
		value string
	}{
		{"positive infinity", "inf"},
		{"negative infinity", "-inf"},
		{"nan", "nan"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := writeImageFile(t, dataPath, fmt.Sprintf("nonfinite-%d.png", i))
			event := testEvent(file, time.Now())
			event.Parameters = "a cat\nSteps: 20, Model: dreamshaper_8, CFG scale: " + tt.value
			require.NoError(t, svc.Ingest(ctx, event))

			filters := svc.NewSearchFilters()
			result, err := svc.Search(ctx, filters)
			require.NoError(t, err)
			require.NotEmpty(t, result.Items)

			image := result.Items[0]
			assert.Nil(t, image.CfgScale, "Non-finite value must be dropped, not stored")
			require.NotNil(t, image.Steps, "Sibling fields survive the dropped one")
			assert.Equal(t, 20, *image.Steps)
		})
	}
}

func TestSearchReconcilesMissingFiles(t *testing.T) {
	t.Parallel()
	svc, store, dataPath := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	kept := writeImageFile(t, dataPath, "kept.png")
	gone := writeImageFile(t, dataPath, "gone.png")
	require.NoError(t, svc.Ingest(ctx, testEvent(kept, now)))
	require.NoError(t, svc.Ingest(ctx, testEvent(gone, now)))

	require.NoError(t, os.Remove(filepath.Join(dataPath, gone)))

	result, err := svc.Search(ctx, svc.NewSearchFilters())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalCount, "Total reflects the pre-reconciliation count")
	require.Len(t, result.Items, 1)
	assert.Equal(t, kept, result.Items[0].ImagePath)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], gone)

	// The orphaned record is gone from the store: a second search is clean.
	result, err = svc.Search(ctx, svc.NewSearchFilters())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalCount)
	assert.Empty(t, result.Warnings)

	_, total, err := store.SearchImages(ctx, svc.NewSearchFilters())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "Reconciliation deletes the orphaned record exactly once")
}

func TestSearchAppliesPageSizeDefaultsAndCap(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	filters := svc.NewSearchFilters()
	_, err := svc.Search(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 20, filters.PageSize, "Zero page size takes the configured default")

	filters.PageSize = 5000
	_, err = svc.Search(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 100, filters.PageSize, "Oversized page size is capped")
}

func TestRemoveDeletesRecordAndFile(t *testing.T) {
	t.Parallel()
	svc, _, dataPath := newTestService(t)
	ctx := context.Background()

	name := writeImageFile(t, dataPath, "doomed.png")
	require.NoError(t, svc.Ingest(ctx, testEvent(name, time.Now())))

	result, err := svc.Search(ctx, svc.NewSearchFilters())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	require.NoError(t, svc.Remove(ctx, result.Items[0].ID))

	_, statErr := os.Stat(filepath.Join(dataPath, name))
	assert.True(t, os.IsNotExist(statErr), "Backing file must be removed")

	result, err = svc.Search(ctx, svc.NewSearchFilters())
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestStatsCachedBetweenCalls(t *testing.T) {
	t.Parallel()
	svc, _, dataPath := newTestService(t)
	ctx := context.Background()

	name := writeImageFile(t, dataPath, "one.png")
	require.NoError(t, svc.Ingest(ctx, testEvent(name, time.Now())))

	stats, err := svc.TotalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total.Count)

	// A second ingest is invisible until the cache entry expires.
	other := writeImageFile(t, dataPath, "two.png")
	require.NoError(t, svc.Ingest(ctx, testEvent(other, time.Now())))

	stats, err = svc.TotalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total.Count)
}

func TestFieldChoicesSortedByKey(t *testing.T) {
	t.Parallel()
	svc, _, dataPath := newTestService(t)
	ctx := context.Background()

	for i, model := range []string{"zephyr", "anything_v5", "midway"} {
		name := writeImageFile(t, dataPath, string(rune('a'+i))+".png")
		event := testEvent(name, time.Now())
		event.Parameters = "x\nSteps: 20, Model: " + model + ", Seed: 1"
		require.NoError(t, svc.Ingest(ctx, event))
	}

	choices, err := svc.FieldChoices(ctx, "Model")
	require.NoError(t, err)
	assert.Equal(t, []string{"anything_v5", "midway", "zephyr"}, choices)
}
