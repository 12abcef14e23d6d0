// Package ingest implements the ingest subcommand: it reads produced-image
// events from a JSON file (or stdin) and records them in the store.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptkeep/promptkeep/internal/conf"
	"github.com/promptkeep/promptkeep/internal/datastore"
	"github.com/promptkeep/promptkeep/internal/gallery"
	"github.com/promptkeep/promptkeep/internal/generation"
)

// Command creates the ingest command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [events.json]",
		Short: "Record produced-image events into the store",
		Long:  "Read a JSON array of produced-image events from a file or stdin and record each image's metadata. Events with unusable save paths are dropped and reported without aborting the batch.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := readEvents(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			store := datastore.New(settings)
			if store == nil {
				return fmt.Errorf("no database backend enabled")
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer store.Close()

			svc := gallery.New(settings, store)
			if err := svc.IngestBatch(cmd.Context(), events); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "some events were dropped: %v\n", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d events\n", len(events))
			return nil
		},
	}
}

func readEvents(stdin io.Reader, args []string) ([]*generation.Event, error) {
	in := stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to open events file: %w", err)
		}
		defer f.Close()
		in = f
	}

	var events []*generation.Event
	if err := json.NewDecoder(in).Decode(&events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}
