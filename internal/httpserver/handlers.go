package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/promptkeep/promptkeep/internal/datastore"
	"github.com/promptkeep/promptkeep/internal/errors"
	"github.com/promptkeep/promptkeep/internal/generation"
)

// SearchImages handles GET /api/v1/images. Filter parameters map onto
// SearchFilters; comma-separated values make up the term lists; range
// parameters come as min/max pairs.
func (s *Server) SearchImages(ctx echo.Context) error {
	filters := s.gallery.NewSearchFilters()

	filters.PromptMatch = strings.TrimSpace(ctx.QueryParam("prompt"))
	filters.NegativePromptMatch = strings.TrimSpace(ctx.QueryParam("negative_prompt"))

	filters.Models = splitTerms(ctx.QueryParam("models"))
	filters.Sizes = splitTerms(ctx.QueryParam("sizes"))
	filters.Samplers = splitTerms(ctx.QueryParam("samplers"))
	filters.Versions = splitTerms(ctx.QueryParam("versions"))

	var err error
	if filters.IsTxt2Img, err = parseBoolParam(ctx, "txt2img"); err != nil {
		return s.HandleError(ctx, err, "Invalid txt2img flag", http.StatusBadRequest)
	}
	if filters.IsImg2Img, err = parseBoolParam(ctx, "img2img"); err != nil {
		return s.HandleError(ctx, err, "Invalid img2img flag", http.StatusBadRequest)
	}
	if filters.Interrupted, err = parseBoolParam(ctx, "interrupted"); err != nil {
		return s.HandleError(ctx, err, "Invalid interrupted flag", http.StatusBadRequest)
	}
	if filters.Skipped, err = parseBoolParam(ctx, "skipped"); err != nil {
		return s.HandleError(ctx, err, "Invalid skipped flag", http.StatusBadRequest)
	}

	if filters.Width, err = parseIntRange(ctx, "width"); err != nil {
		return s.HandleError(ctx, err, "Invalid width range", http.StatusBadRequest)
	}
	if filters.Height, err = parseIntRange(ctx, "height"); err != nil {
		return s.HandleError(ctx, err, "Invalid height range", http.StatusBadRequest)
	}
	if filters.Steps, err = parseIntRange(ctx, "steps"); err != nil {
		return s.HandleError(ctx, err, "Invalid steps range", http.StatusBadRequest)
	}
	if filters.Seed, err = parseIntRange(ctx, "seed"); err != nil {
		return s.HandleError(ctx, err, "Invalid seed range", http.StatusBadRequest)
	}
	if filters.UsedTime, err = parseIntRange(ctx, "used_time"); err != nil {
		return s.HandleError(ctx, err, "Invalid used_time range", http.StatusBadRequest)
	}
	if filters.CfgScale, err = parseFloatRange(ctx, "cfg_scale"); err != nil {
		return s.HandleError(ctx, err, "Invalid cfg_scale range", http.StatusBadRequest)
	}

	if v := ctx.QueryParam("begin"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return s.HandleError(ctx, err, "Invalid begin timestamp", http.StatusBadRequest)
		}
		filters.Begin = t
	}
	if v := ctx.QueryParam("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return s.HandleError(ctx, err, "Invalid end timestamp", http.StatusBadRequest)
		}
		filters.End = t
	}

	if filters.Page, err = parseIntParam(ctx, "page", 0); err != nil {
		return s.HandleError(ctx, err, "Invalid page", http.StatusBadRequest)
	}
	if filters.PageSize, err = parseIntParam(ctx, "page_size", 0); err != nil {
		return s.HandleError(ctx, err, "Invalid page_size", http.StatusBadRequest)
	}

	result, err := s.gallery.Search(ctx.Request().Context(), filters)
	if err != nil {
		return s.HandleError(ctx, err, "Failed to search images", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, result)
}

// DeleteImage handles DELETE /api/v1/images/:id, removing the record and
// its backing file.
func (s *Server) DeleteImage(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return s.HandleError(ctx, errors.NewStd("missing image id"), "Missing image id", http.StatusBadRequest)
	}

	if err := s.gallery.Remove(ctx.Request().Context(), id); err != nil {
		if errors.IsNotFound(err) {
			return s.HandleError(ctx, err, "Image not found", http.StatusNotFound)
		}
		return s.HandleError(ctx, err, "Failed to delete image", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// StatsTotals handles GET /api/v1/stats/totals.
func (s *Server) StatsTotals(ctx echo.Context) error {
	stats, err := s.gallery.TotalStats(ctx.Request().Context())
	if err != nil {
		return s.HandleError(ctx, err, "Failed to compute totals", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, stats)
}

// StatsGroupBy handles GET /api/v1/stats/groupby/:field.
func (s *Server) StatsGroupBy(ctx echo.Context) error {
	buckets, err := s.gallery.GroupBy(ctx.Request().Context(), ctx.Param("field"))
	if err != nil {
		if errors.IsCategory(err, errors.CategoryValidation) {
			return s.HandleError(ctx, err, "Field is not groupable", http.StatusBadRequest)
		}
		return s.HandleError(ctx, err, "Failed to group by field", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, buckets)
}

// FieldChoices handles GET /api/v1/choices/:field, the sorted distinct
// values for filter dropdowns.
func (s *Server) FieldChoices(ctx echo.Context) error {
	choices, err := s.gallery.FieldChoices(ctx.Request().Context(), ctx.Param("field"))
	if err != nil {
		if errors.IsCategory(err, errors.CategoryValidation) {
			return s.HandleError(ctx, err, "Field is not groupable", http.StatusBadRequest)
		}
		return s.HandleError(ctx, err, "Failed to list field choices", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, choices)
}

func splitTerms(raw string) []string {
	if raw == "" {
		return nil
	}
	var terms []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func parseBoolParam(ctx echo.Context, name string) (bool, error) {
	v := ctx.QueryParam(name)
	if v == "" {
		return false, nil
	}
	return generation.CoerceBool(v)
}

func parseIntParam(ctx echo.Context, name string, fallback int) (int, error) {
	v := ctx.QueryParam(name)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func parseIntRange(ctx echo.Context, name string) (datastore.IntRange, error) {
	r := datastore.IntRange{Min: datastore.DefaultMinValue, Max: datastore.DefaultMaxValue}
	if v := ctx.QueryParam(name + "_min"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return r, err
		}
		r.Min = n
	}
	if v := ctx.QueryParam(name + "_max"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return r, err
		}
		r.Max = n
	}
	return r, nil
}

func parseFloatRange(ctx echo.Context, name string) (datastore.FloatRange, error) {
	r := datastore.FloatRange{Min: datastore.DefaultMinValue, Max: datastore.DefaultMaxValue}
	if v := ctx.QueryParam(name + "_min"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return r, err
		}
		r.Min = f
	}
	if v := ctx.QueryParam(name + "_max"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return r, err
		}
		r.Max = f
	}
	return r, nil
}
