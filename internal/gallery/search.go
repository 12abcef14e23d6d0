package gallery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/promptkeep/promptkeep/internal/datastore"
	"github.com/promptkeep/promptkeep/internal/errors"
)

// PageResult is one page of search hits. TotalCount reflects the match
// count before reconciliation, so a caller can show "found N images"
// even when reconciliation removed every hit on this page.
type PageResult struct {
	Items      []datastore.Image `json:"items"`
	TotalCount int64             `json:"totalCount"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// NewSearchFilters returns filters carrying the configured default
// time window; callers then narrow them from user input.
func (s *Service) NewSearchFilters() *datastore.SearchFilters {
	return datastore.NewSearchFilters(s.now(), s.Settings.Search.DefaultWindowHours)
}

// Search runs the filters against the store and reconciles every hit
// against the filesystem: a hit whose image file is gone is deleted from
// the store and excluded from the result, with a warning. Search is
// therefore not a pure read.
func (s *Service) Search(ctx context.Context, filters *datastore.SearchFilters) (*PageResult, error) {
	if filters.PageSize <= 0 {
		filters.PageSize = s.Settings.Search.DefaultPageSize
	}
	if max := s.Settings.Search.MaxPageSize; max > 0 && filters.PageSize > max {
		filters.PageSize = max
	}

	images, total, err := s.store.SearchImages(ctx, filters)
	if err != nil {
		return nil, err
	}

	result := &PageResult{TotalCount: total}
	for i := range images {
		image := &images[i]
		if s.imageFileExists(image.ImagePath) {
			result.Items = append(result.Items, *image)
			continue
		}

		// Orphaned record: the backing file is gone.
		if err := s.store.Delete(ctx, image.ID); err != nil {
			s.logger.Error("failed to delete orphaned image record",
				"image_id", image.ID, "error", err)
		}
		warning := fmt.Sprintf("image file %s no longer exists, record removed", image.ImagePath)
		result.Warnings = append(result.Warnings, warning)
		s.logger.Warn("reconciled missing image file",
			"image_id", image.ID,
			"image_path", image.ImagePath)
	}

	return result, nil
}

// Remove deletes an image record and its backing file if present.
func (s *Service) Remove(ctx context.Context, id string) error {
	image, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	path := s.resolvePath(image.ImagePath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New(fmt.Errorf("failed to remove image file: %w", err)).
			Component("gallery").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	return nil
}

func (s *Service) imageFileExists(imagePath string) bool {
	_, err := os.Stat(s.resolvePath(imagePath))
	return err == nil
}

// resolvePath joins relative image paths onto the configured data path.
func (s *Service) resolvePath(imagePath string) string {
	if filepath.IsAbs(imagePath) || s.Settings.Ingest.DataPath == "" {
		return imagePath
	}
	return filepath.Join(s.Settings.Ingest.DataPath, imagePath)
}
