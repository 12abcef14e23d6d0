// analytics.go implements the aggregation side of the store: grouped
// value counts for dashboard facets and the combined usage totals.
package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/promptkeep/promptkeep/internal/errors"
)

// groupableColumns whitelists the image columns GroupByField may touch.
// Field names arrive from user input, so they never reach SQL directly.
var groupableColumns = map[string]string{
	"Model":   "model",
	"Size":    "size",
	"Sampler": "sampler",
	"Version": "version",
}

// GroupByField returns the distinct values of the given field with their
// record counts, most frequent first, capped at limit buckets. Fields with
// more distinct values than the cap are silently truncated. The prompt and
// negative-prompt token fields delegate to the token table.
func (ds *DataStore) GroupByField(ctx context.Context, field string, limit int) ([]Bucket, error) {
	switch field {
	case "PromptSplits":
		return ds.TokenFrequencies(ctx, TokenFieldPrompt, limit)
	case "NegativePromptSplits":
		return ds.TokenFrequencies(ctx, TokenFieldNegativePrompt, limit)
	}

	column, ok := groupableColumns[field]
	if !ok {
		return nil, errors.Newf("field %q is not groupable", field).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("field", field).
			Build()
	}

	var buckets []Bucket
	err := ds.DB.WithContext(ctx).
		Model(&Image{}).
		Select(column+" AS bucket_key, COUNT(*) AS bucket_count").
		Where(column + " IS NOT NULL").
		Group(column).
		Order("bucket_count DESC").
		Limit(limit).
		Scan(&buckets).Error
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to group by %s: %w", column, err)).
			Component("datastore").
			Category(errors.CategoryImageStats).
			Context("field", field).
			Build()
	}

	return buckets, nil
}

// TokenFrequencies counts token occurrences over the given token field,
// most frequent first, capped at limit buckets.
func (ds *DataStore) TokenFrequencies(ctx context.Context, field TokenField, limit int) ([]Bucket, error) {
	var buckets []Bucket
	err := ds.DB.WithContext(ctx).
		Model(&ImageToken{}).
		Select("token AS bucket_key, COUNT(*) AS bucket_count").
		Where("field = ?", field).
		Group("token").
		Order("bucket_count DESC").
		Limit(limit).
		Scan(&buckets).Error
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to count token frequencies: %w", err)).
			Component("datastore").
			Category(errors.CategoryImageStats).
			Context("token_field", string(field)).
			Build()
	}
	return buckets, nil
}

// totalStatsRow receives the twelve named aggregate columns of the
// TotalStats query. Mapping is by column name, not position.
type totalStatsRow struct {
	TotalCount          int64 `gorm:"column:total_count"`
	TotalUsedTime       int64 `gorm:"column:total_used_time"`
	Txt2imgCount        int64 `gorm:"column:txt2img_count"`
	Txt2imgUsedTime     int64 `gorm:"column:txt2img_used_time"`
	Img2imgCount        int64 `gorm:"column:img2img_count"`
	Img2imgUsedTime     int64 `gorm:"column:img2img_used_time"`
	Last24hCount        int64 `gorm:"column:last24h_count"`
	Last24hUsedTime     int64 `gorm:"column:last24h_used_time"`
	Last24hTxt2imgCount int64 `gorm:"column:last24h_txt2img_count"`
	Last24hTxt2imgUsed  int64 `gorm:"column:last24h_txt2img_used_time"`
	Last24hImg2imgCount int64 `gorm:"column:last24h_img2img_count"`
	Last24hImg2imgUsed  int64 `gorm:"column:last24h_img2img_used_time"`
}

// TotalStats computes all six count/used-time groups (all, txt2img,
// img2img, each all-time and over the trailing 24 hours) in a single
// conditional-aggregation query. No image rows are fetched.
func (ds *DataStore) TotalStats(ctx context.Context, now time.Time) (*TotalStats, error) {
	cutoff := now.Add(-24 * time.Hour)

	const query = `
		SELECT
			COUNT(*) AS total_count,
			COALESCE(SUM(used_time_in_seconds), 0) AS total_used_time,
			COALESCE(SUM(CASE WHEN is_txt2img THEN 1 ELSE 0 END), 0) AS txt2img_count,
			COALESCE(SUM(CASE WHEN is_txt2img THEN used_time_in_seconds ELSE 0 END), 0) AS txt2img_used_time,
			COALESCE(SUM(CASE WHEN is_img2img THEN 1 ELSE 0 END), 0) AS img2img_count,
			COALESCE(SUM(CASE WHEN is_img2img THEN used_time_in_seconds ELSE 0 END), 0) AS img2img_used_time,
			COALESCE(SUM(CASE WHEN job_start_time >= ? THEN 1 ELSE 0 END), 0) AS last24h_count,
			COALESCE(SUM(CASE WHEN job_start_time >= ? THEN used_time_in_seconds ELSE 0 END), 0) AS last24h_used_time,
			COALESCE(SUM(CASE WHEN job_start_time >= ? AND is_txt2img THEN 1 ELSE 0 END), 0) AS last24h_txt2img_count,
			COALESCE(SUM(CASE WHEN job_start_time >= ? AND is_txt2img THEN used_time_in_seconds ELSE 0 END), 0) AS last24h_txt2img_used_time,
			COALESCE(SUM(CASE WHEN job_start_time >= ? AND is_img2img THEN 1 ELSE 0 END), 0) AS last24h_img2img_count,
			COALESCE(SUM(CASE WHEN job_start_time >= ? AND is_img2img THEN used_time_in_seconds ELSE 0 END), 0) AS last24h_img2img_used_time
		FROM images`

	var row totalStatsRow
	err := ds.DB.WithContext(ctx).
		Raw(query, cutoff, cutoff, cutoff, cutoff, cutoff, cutoff).
		Scan(&row).Error
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to compute total stats: %w", err)).
			Component("datastore").
			Category(errors.CategoryImageStats).
			Build()
	}

	return &TotalStats{
		Total: Totals{
			Count:           row.TotalCount,
			UsedTimeSeconds: row.TotalUsedTime,
			Txt2ImgCount:    row.Txt2imgCount,
			Txt2ImgUsedTime: row.Txt2imgUsedTime,
			Img2ImgCount:    row.Img2imgCount,
			Img2ImgUsedTime: row.Img2imgUsedTime,
		},
		Last24h: Totals{
			Count:           row.Last24hCount,
			UsedTimeSeconds: row.Last24hUsedTime,
			Txt2ImgCount:    row.Last24hTxt2imgCount,
			Txt2ImgUsedTime: row.Last24hTxt2imgUsed,
			Img2ImgCount:    row.Last24hImg2imgCount,
			Img2ImgUsedTime: row.Last24hImg2imgUsed,
		},
	}, nil
}
