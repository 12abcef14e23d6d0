package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionsDefaultFiltersYieldOnlyTimeWindow(t *testing.T) {
	t.Parallel()
	now := time.Now()
	filters := NewSearchFilters(now, 72)

	conds := filters.conditions()
	require.Len(t, conds, 1, "Default filters must compile to the time window alone")
	assert.Contains(t, conds[0].query, "job_start_time")
	assert.Equal(t, []any{filters.Begin, filters.End}, conds[0].args)
}

func TestConditionsTimeWindowDefaults(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	filters := NewSearchFilters(now, 72)

	assert.Equal(t, now.Add(-72*time.Hour), filters.Begin)
	assert.Equal(t, now, filters.End)
}

func TestRangeSentinelDefaultsAddNoConstraint(t *testing.T) {
	t.Parallel()
	// The range predicates only activate once narrowed off the sentinel
	// pair; a range still at (-1, MaxInt32) means "unfiltered".
	filters := NewSearchFilters(time.Now(), 72)
	require.Len(t, filters.conditions(), 1)

	filters.Width = IntRange{Min: 512, Max: DefaultMaxValue}
	conds := filters.conditions()
	require.Len(t, conds, 2, "Narrowing one bound must activate the range")
	assert.Contains(t, conds[1].query, "width")
}

func TestConditionsBooleanOnlyTrueConstrains(t *testing.T) {
	t.Parallel()
	filters := NewSearchFilters(time.Now(), 72)
	filters.IsTxt2Img = true

	conds := filters.conditions()
	require.Len(t, conds, 2)
	assert.Equal(t, "is_txt2img = ?", conds[1].query)
}

func TestConditionsTermAndMatchPredicates(t *testing.T) {
	t.Parallel()
	filters := NewSearchFilters(time.Now(), 72)
	filters.PromptMatch = "cat"
	filters.Models = []string{"dreamshaper_8", "sdxl_base"}
	filters.CfgScale = FloatRange{Min: 5, Max: 9}

	conds := filters.conditions()
	require.Len(t, conds, 4)
	assert.Equal(t, "prompt LIKE ?", conds[1].query)
	assert.Equal(t, []any{"%cat%"}, conds[1].args)
	assert.Equal(t, "model IN ?", conds[2].query)
	assert.Contains(t, conds[3].query, "cfg_scale")
}

func TestSearchImagesFiltersAndPaginates(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{
		"00000000-0000-0000-0000-000000000001",
		"00000000-0000-0000-0000-000000000002",
		"00000000-0000-0000-0000-000000000003",
	} {
		image := testImage(id, now.Add(-time.Duration(i)*time.Hour))
		image.Model = strPtr("dreamshaper_8")
		image.IsTxt2Img = boolPtr(true)
		require.NoError(t, ds.Save(ctx, image, nil))
	}
	// One image outside the window and one from a different model.
	old := testImage("00000000-0000-0000-0000-000000000004", now.Add(-100*time.Hour))
	require.NoError(t, ds.Save(ctx, old, nil))
	other := testImage("00000000-0000-0000-0000-000000000005", now)
	other.Model = strPtr("sdxl_base")
	require.NoError(t, ds.Save(ctx, other, nil))

	filters := NewSearchFilters(now, 72)
	filters.Models = []string{"dreamshaper_8"}
	filters.PageSize = 2

	images, total, err := ds.SearchImages(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, images, 2)
	// Most recent first.
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", images[0].ID)
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", images[1].ID)

	filters.Page = 1
	images, total, err = ds.SearchImages(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, images, 1)
	assert.Equal(t, "00000000-0000-0000-0000-000000000003", images[0].ID)
}

func TestSearchImagesNilFilters(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)

	_, _, err := ds.SearchImages(context.Background(), nil)
	require.Error(t, err)
}

func TestSearchImagesNumericRange(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	small := testImage("aaaaaaaa-0000-0000-0000-000000000001", now)
	small.Width = intPtr(512)
	require.NoError(t, ds.Save(ctx, small, nil))
	large := testImage("aaaaaaaa-0000-0000-0000-000000000002", now)
	large.Width = intPtr(1024)
	require.NoError(t, ds.Save(ctx, large, nil))

	filters := NewSearchFilters(now.Add(time.Minute), 72)
	filters.Width = IntRange{Min: 600, Max: 2048}

	images, total, err := ds.SearchImages(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, images, 1)
	assert.Equal(t, large.ID, images[0].ID)
}
