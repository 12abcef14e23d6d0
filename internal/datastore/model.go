// model.go defines the persistent data model for generated-image records.
package datastore

import "time"

// Image represents one produced image and its generation metadata.
//
// Scalar metadata fields are pointers: a field that could not be parsed or
// sanitized is absent (NULL), never a sentinel value. JobStartTime is
// stored as a UTC instant with second precision so range comparisons work
// on both backends; the fixed UTC+8 job-time basis is applied when
// presenting and when decoding zone-less upstream timestamps.
type Image struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	ImagePath string `gorm:"index:idx_images_path"`

	Model     *string `gorm:"index:idx_images_model"`
	ModelHash *string
	Version   *string `gorm:"index:idx_images_version"`
	Sampler   *string `gorm:"index:idx_images_sampler"`
	Size      *string `gorm:"index:idx_images_size"`

	Width    *int   `gorm:"index:idx_images_width"`
	Height   *int   `gorm:"index:idx_images_height"`
	Steps    *int
	CfgScale *float64 `gorm:"column:cfg_scale"`
	Seed     *int64

	Prompt         *string `gorm:"type:text"`
	NegativePrompt *string `gorm:"type:text"`
	Parameters     *string `gorm:"type:text"` // raw blob as received
	Comments       *string `gorm:"type:text"`

	Interrupted *bool `gorm:"column:interrupted"`
	Skipped     *bool `gorm:"column:skipped"`
	IsTxt2Img   *bool `gorm:"column:is_txt2img;index:idx_images_is_txt2img"`
	IsImg2Img   *bool `gorm:"column:is_img2img;index:idx_images_is_img2img"`

	UsedTimeInSeconds *int64     `gorm:"column:used_time_in_seconds"`
	JobStartTime      *time.Time `gorm:"index:idx_images_job_start_time"`

	Tokens []ImageToken `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE"`
}

// Token field discriminators for ImageToken rows.
type TokenField string

const (
	TokenFieldPrompt         TokenField = "prompt"
	TokenFieldNegativePrompt TokenField = "negative_prompt"
)

// ImageToken is one prompt or negative-prompt word of an image, used only
// for word-frequency aggregation, never for exact-match retrieval.
type ImageToken struct {
	ID      uint       `gorm:"primaryKey"`
	ImageID string     `gorm:"index;not null;type:varchar(36)"`
	Field   TokenField `gorm:"type:varchar(16);index:idx_image_tokens_field_token"`
	Token   string     `gorm:"index:idx_image_tokens_field_token"`
}

// Bucket is one group of a grouped aggregation: a field value and the
// number of records carrying it, optionally with a summed metric.
type Bucket struct {
	Key   string `gorm:"column:bucket_key" json:"key"`
	Count int64  `gorm:"column:bucket_count" json:"count"`
}

// Totals carries the count and used-time sums for one stats window.
type Totals struct {
	Count           int64
	UsedTimeSeconds int64
	Txt2ImgCount    int64
	Txt2ImgUsedTime int64
	Img2ImgCount    int64
	Img2ImgUsedTime int64
}

// TotalStats pairs the all-time totals with the rolling last-24h totals.
type TotalStats struct {
	Total   Totals
	Last24h Totals
}
