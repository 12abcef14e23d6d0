package datastore

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/promptkeep/promptkeep/internal/errors"
)

// Sentinel bounds for numeric range filters. A range still carrying both
// sentinels has not been narrowed by the user and adds no constraint.
const (
	DefaultMinValue = -1
	DefaultMaxValue = math.MaxInt32
)

// IntRange is an optional inclusive integer range filter.
type IntRange struct {
	Min int64
	Max int64
}

func (r IntRange) narrowed() bool {
	return r.Min != DefaultMinValue || r.Max != DefaultMaxValue
}

// FloatRange is an optional inclusive float range filter.
type FloatRange struct {
	Min float64
	Max float64
}

func (r FloatRange) narrowed() bool {
	return r.Min != DefaultMinValue || r.Max != DefaultMaxValue
}

// SearchFilters holds the per-invocation search predicates. Every field
// except the job-start-time window is optional: a zero value means "no
// constraint", never "match nothing". Ranges start at the sentinel pair
// and only constrain once narrowed.
type SearchFilters struct {
	PromptMatch         string
	NegativePromptMatch string

	Models   []string
	Sizes    []string
	Samplers []string
	Versions []string

	// Boolean filters constrain only when true; false means "don't care".
	// There is no way to filter for explicitly-false values.
	IsTxt2Img   bool
	IsImg2Img   bool
	Interrupted bool
	Skipped     bool

	Width    IntRange
	Height   IntRange
	Steps    IntRange
	Seed     IntRange
	UsedTime IntRange
	CfgScale FloatRange

	// Mandatory window over job_start_time.
	Begin time.Time
	End   time.Time

	Page     int
	PageSize int
}

// NewSearchFilters returns filters with the sentinel range defaults and a
// job-start-time window covering the given number of trailing hours.
func NewSearchFilters(now time.Time, windowHours int) *SearchFilters {
	sentinelInt := IntRange{Min: DefaultMinValue, Max: DefaultMaxValue}
	return &SearchFilters{
		IsTxt2Img:   false,
		IsImg2Img:   false,
		Interrupted: false,
		Skipped:     false,
		Width:       sentinelInt,
		Height:      sentinelInt,
		Steps:       sentinelInt,
		Seed:        sentinelInt,
		UsedTime:    sentinelInt,
		CfgScale:    FloatRange{Min: DefaultMinValue, Max: DefaultMaxValue},
		Begin:       now.Add(-time.Duration(windowHours) * time.Hour),
		End:         now,
	}
}

// condition is one compiled WHERE clause with its arguments.
type condition struct {
	query string
	args  []any
}

// conditions compiles the filters into WHERE clauses. Pure: no I/O, no
// store access. Clause order is stable so tests can assert on it.
func (f *SearchFilters) conditions() []condition {
	var conds []condition

	add := func(query string, args ...any) {
		conds = append(conds, condition{query: query, args: args})
	}

	// The time window is the one predicate always present.
	add("job_start_time >= ? AND job_start_time <= ?", f.Begin, f.End)

	if f.PromptMatch != "" {
		add("prompt LIKE ?", "%"+f.PromptMatch+"%")
	}
	if f.NegativePromptMatch != "" {
		add("negative_prompt LIKE ?", "%"+f.NegativePromptMatch+"%")
	}

	if len(f.Models) > 0 {
		add("model IN ?", f.Models)
	}
	if len(f.Sizes) > 0 {
		add("size IN ?", f.Sizes)
	}
	if len(f.Samplers) > 0 {
		add("sampler IN ?", f.Samplers)
	}
	if len(f.Versions) > 0 {
		add("version IN ?", f.Versions)
	}

	if f.IsTxt2Img {
		add("is_txt2img = ?", true)
	}
	if f.IsImg2Img {
		add("is_img2img = ?", true)
	}
	if f.Interrupted {
		add("interrupted = ?", true)
	}
	if f.Skipped {
		add("skipped = ?", true)
	}

	intRanges := []struct {
		column string
		r      IntRange
	}{
		{"width", f.Width},
		{"height", f.Height},
		{"steps", f.Steps},
		{"seed", f.Seed},
		{"used_time_in_seconds", f.UsedTime},
	}
	for _, ir := range intRanges {
		if ir.r.narrowed() {
			add(ir.column+" >= ? AND "+ir.column+" <= ?", ir.r.Min, ir.r.Max)
		}
	}
	if f.CfgScale.narrowed() {
		add("cfg_scale >= ? AND cfg_scale <= ?", f.CfgScale.Min, f.CfgScale.Max)
	}

	return conds
}

// SearchImages runs the compiled filters against the store, returning the
// page of matching images (job start time descending) and the total match
// count before pagination.
func (ds *DataStore) SearchImages(ctx context.Context, filters *SearchFilters) ([]Image, int64, error) {
	if filters == nil {
		return nil, 0, errors.Newf("search filters must not be nil").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	query := ds.DB.WithContext(ctx).Model(&Image{})
	for _, c := range filters.conditions() {
		query = query.Where(c.query, c.args...)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, errors.New(fmt.Errorf("failed to count search results: %w", err)).
			Component("datastore").
			Category(errors.CategoryImageSearch).
			Build()
	}

	query = query.Order("job_start_time DESC")
	if filters.PageSize > 0 {
		query = query.Limit(filters.PageSize).Offset(filters.Page * filters.PageSize)
	}

	var images []Image
	err := query.Find(&images).Error
	if err != nil {
		return nil, 0, errors.New(fmt.Errorf("failed to search images: %w", err)).
			Component("datastore").
			Category(errors.CategoryImageSearch).
			Context("page", filters.Page).
			Build()
	}

	return images, total, nil
}
