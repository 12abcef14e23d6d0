// Package search implements the search subcommand for querying recorded
// images from the terminal.
package search

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/promptkeep/promptkeep/internal/conf"
	"github.com/promptkeep/promptkeep/internal/datastore"
	"github.com/promptkeep/promptkeep/internal/gallery"
	"github.com/promptkeep/promptkeep/internal/generation"
)

type searchFlags struct {
	prompt         string
	negativePrompt string
	models         []string
	sizes          []string
	samplers       []string
	versions       []string
	txt2img        bool
	img2img        bool
	interrupted    bool
	skipped        bool
	windowHours    int
	page           int
	pageSize       int
	asJSON         bool
}

// Command creates the search command.
func Command(settings *conf.Settings) *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search recorded images",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := datastore.New(settings)
			if store == nil {
				return fmt.Errorf("no database backend enabled")
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer store.Close()

			svc := gallery.New(settings, store)
			filters := svc.NewSearchFilters()
			applyFlags(filters, &flags, cmd.Flags().Changed("window"))

			result, err := svc.Search(cmd.Context(), filters)
			if err != nil {
				return err
			}
			return printResult(cmd, result, flags.asJSON)
		},
	}

	setupFlags(cmd, &flags)
	return cmd
}

func setupFlags(cmd *cobra.Command, flags *searchFlags) {
	cmd.Flags().StringVar(&flags.prompt, "prompt", "", "Substring match on the prompt")
	cmd.Flags().StringVar(&flags.negativePrompt, "negative-prompt", "", "Substring match on the negative prompt")
	cmd.Flags().StringSliceVar(&flags.models, "model", nil, "Match any of the given models")
	cmd.Flags().StringSliceVar(&flags.sizes, "size", nil, "Match any of the given sizes (WxH)")
	cmd.Flags().StringSliceVar(&flags.samplers, "sampler", nil, "Match any of the given samplers")
	cmd.Flags().StringSliceVar(&flags.versions, "version", nil, "Match any of the given versions")
	cmd.Flags().BoolVar(&flags.txt2img, "txt2img", false, "Only txt2img images")
	cmd.Flags().BoolVar(&flags.img2img, "img2img", false, "Only img2img images")
	cmd.Flags().BoolVar(&flags.interrupted, "interrupted", false, "Only interrupted jobs")
	cmd.Flags().BoolVar(&flags.skipped, "skipped", false, "Only skipped jobs")
	cmd.Flags().IntVar(&flags.windowHours, "window", viper.GetInt("search.defaultwindowhours"), "Trailing job-start-time window in hours")
	cmd.Flags().IntVar(&flags.page, "page", 0, "Page number, starting at 0")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 0, "Page size (0 for the configured default)")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Print results as JSON")
}

func applyFlags(filters *datastore.SearchFilters, flags *searchFlags, windowChanged bool) {
	filters.PromptMatch = flags.prompt
	filters.NegativePromptMatch = flags.negativePrompt
	filters.Models = flags.models
	filters.Sizes = flags.sizes
	filters.Samplers = flags.samplers
	filters.Versions = flags.versions
	filters.IsTxt2Img = flags.txt2img
	filters.IsImg2Img = flags.img2img
	filters.Interrupted = flags.interrupted
	filters.Skipped = flags.skipped
	filters.Page = flags.page
	filters.PageSize = flags.pageSize
	// Only an explicitly passed --window overrides the configured default,
	// even when the value matches it.
	if windowChanged && flags.windowHours > 0 {
		filters.Begin = filters.End.Add(-time.Duration(flags.windowHours) * time.Hour)
	}
}

func printResult(cmd *cobra.Command, result *gallery.PageResult, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	for i := range result.Items {
		image := &result.Items[i]
		model := ""
		if image.Model != nil {
			model = *image.Model
		}
		start := ""
		if image.JobStartTime != nil {
			// Job times are presented on the fixed UTC+8 basis.
			start = image.JobStartTime.In(generation.JobTimezone).Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "%s  %-19s  %-24s  %s\n", image.ID, start, model, image.ImagePath)
	}
	fmt.Fprintf(out, "found %d images\n", result.TotalCount)
	return nil
}
