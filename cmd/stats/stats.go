// Package stats implements the stats subcommand: usage totals and
// grouped value counts.
package stats

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptkeep/promptkeep/internal/conf"
	"github.com/promptkeep/promptkeep/internal/datastore"
	"github.com/promptkeep/promptkeep/internal/gallery"
)

// Command creates the stats command.
func Command(settings *conf.Settings) *cobra.Command {
	var groupBy string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage totals or grouped value counts",
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
			if groupBy != "" {
				return printGroupBy(cmd, svc, groupBy, asJSON)
			}
			return printTotals(cmd, svc, asJSON)
		},
	}

	cmd.Flags().StringVar(&groupBy, "group-by", "", "Group counts by a field (Model, Size, Sampler, Version, PromptSplits, NegativePromptSplits)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func printGroupBy(cmd *cobra.Command, svc *gallery.Service, field string, asJSON bool) error {
	buckets, err := svc.GroupBy(cmd.Context(), field)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(buckets)
	}
	for _, b := range buckets {
		fmt.Fprintf(out, "%8d  %s\n", b.Count, b.Key)
	}
	return nil
}

func printTotals(cmd *cobra.Command, svc *gallery.Service, asJSON bool) error {
	stats, err := svc.TotalStats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	printWindow := func(label string, t *datastore.Totals) {
		fmt.Fprintf(out, "%s:\n", label)
		fmt.Fprintf(out, "  images: %d (txt2img %d, img2img %d)\n", t.Count, t.Txt2ImgCount, t.Img2ImgCount)
		fmt.Fprintf(out, "  generation time: %ds (txt2img %ds, img2img %ds)\n",
			t.UsedTimeSeconds, t.Txt2ImgUsedTime, t.Img2ImgUsedTime)
	}
	printWindow("all time", &stats.Total)
	printWindow("last 24h", &stats.Last24h)
	return nil
}
