package gallery

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/promptkeep/promptkeep/internal/datastore"
	"github.com/promptkeep/promptkeep/internal/errors"
	"github.com/promptkeep/promptkeep/internal/generation"
)

// Ingest records one produced image. Best effort: unparseable metadata
// fields are dropped individually, only a missing or non-string save path
// rejects the whole event.
func (s *Service) Ingest(ctx context.Context, event *generation.Event) error {
	savePath, ok := event.SavePath.(string)
	if !ok || savePath == "" {
		return errors.Newf("image save path is not a plain string").
			Component("gallery").
			Category(errors.CategoryImageIngest).
			Context("save_path_type", typeName(event.SavePath)).
			Build()
	}

	image, tokens := s.buildImage(event, savePath)
	if err := s.store.Save(ctx, image, tokens); err != nil {
		return err
	}

	s.logger.Debug("image ingested",
		"image_id", image.ID,
		"image_path", savePath)
	return nil
}

// IngestBatch records a batch of events, continuing past per-event
// failures. The returned error joins every per-event failure, nil when
// all events were written.
func (s *Service) IngestBatch(ctx context.Context, events []*generation.Event) error {
	var errs []error
	for _, event := range events {
		if err := s.Ingest(ctx, event); err != nil {
			s.logger.Warn("dropping image from batch", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildImage converts a raw event into a store row plus its token rows.
// Field coercion happens here, after parsing: a field that fails coercion
// or sanitization is logged and omitted, never stored as a placeholder.
func (s *Service) buildImage(event *generation.Event, savePath string) (*datastore.Image, []datastore.ImageToken) {
	now := s.now()
	// Stored as a UTC instant so SQLite's textual time comparisons line up
	// with query bounds; the fixed UTC+8 basis applies only at the
	// presentation and decode edges.
	start := event.JobStartTime.UTC().Truncate(time.Second)
	usedTime := int64(now.Sub(event.JobStartTime).Seconds())

	image := &datastore.Image{
		ID:                uuid.New().String(),
		ImagePath:         savePath,
		JobStartTime:      &start,
		UsedTimeInSeconds: &usedTime,
		Interrupted:       &event.Interrupted,
		Skipped:           &event.Skipped,
		IsTxt2Img:         &event.IsTxt2Img,
		IsImg2Img:         &event.IsImg2Img,
	}

	fields := generation.ParseParameters(event.Parameters)
	if fields.Prompt != "" {
		image.Prompt = &fields.Prompt
	}
	if fields.NegativePrompt != "" {
		image.NegativePrompt = &fields.NegativePrompt
	}
	if event.Parameters != "" {
		image.Parameters = &event.Parameters
	}
	if event.Comments != "" {
		image.Comments = &event.Comments
	}

	s.applyTail(image, fields.Tail)

	var tokens []datastore.ImageToken
	for _, tok := range generation.SplitTokens(fields.Prompt) {
		tokens = append(tokens, datastore.ImageToken{Field: datastore.TokenFieldPrompt, Token: tok})
	}
	for _, tok := range generation.SplitTokens(fields.NegativePrompt) {
		tokens = append(tokens, datastore.ImageToken{Field: datastore.TokenFieldNegativePrompt, Token: tok})
	}

	return image, tokens
}

// applyTail coerces the well-known tail fields onto the image. Unknown
// tail keys are retained only through the raw parameters blob.
func (s *Service) applyTail(image *datastore.Image, tail map[string]string) {
	setString := func(field string, dst **string) {
		if v, ok := tail[field]; ok && v != "" {
			*dst = &v
		}
	}
	setString(generation.FieldModel, &image.Model)
	setString(generation.FieldModelHash, &image.ModelHash)
	setString(generation.FieldVersion, &image.Version)
	setString(generation.FieldSampler, &image.Sampler)
	setString(generation.FieldSize, &image.Size)

	setInt := func(field string, dst **int) {
		v, ok := tail[field]
		if !ok {
			return
		}
		n, err := generation.CoerceInt(v)
		if err != nil {
			s.logger.Warn("dropping uncoercible field", "field", field, "value", v, "error", err)
			return
		}
		*dst = &n
	}
	setInt(generation.FieldWidth, &image.Width)
	setInt(generation.FieldHeight, &image.Height)
	setInt(generation.FieldSteps, &image.Steps)

	if v, ok := tail[generation.FieldSeed]; ok {
		if n, err := generation.CoerceInt64(v); err == nil {
			image.Seed = &n
		} else {
			s.logger.Warn("dropping uncoercible field", "field", generation.FieldSeed, "value", v, "error", err)
		}
	}

	if v, ok := tail[generation.FieldCFGScale]; ok {
		f, err := generation.CoerceFloat(v)
		switch {
		case err != nil:
			s.logger.Warn("dropping uncoercible field", "field", generation.FieldCFGScale, "value", v, "error", err)
		case math.IsInf(f, 0) || math.IsNaN(f):
			s.logger.Warn("dropping non-finite field", "field", generation.FieldCFGScale, "value", v)
		default:
			image.CfgScale = &f
		}
	}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
