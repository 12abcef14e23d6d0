// Package cmd assembles the promptkeep command tree.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/promptkeep/promptkeep/cmd/ingest"
	"github.com/promptkeep/promptkeep/cmd/search"
	"github.com/promptkeep/promptkeep/cmd/serve"
	"github.com/promptkeep/promptkeep/cmd/stats"
	"github.com/promptkeep/promptkeep/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "promptkeep",
		Short:   "Generative-image metadata recorder and search",
		Version: settings.Version,
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		ingest.Command(settings),
		search.Command(settings),
		stats.Command(settings),
		serve.Command(settings),
	)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Ingest.DataPath, "datapath", viper.GetString("ingest.datapath"), "Base path for image files")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		cobra.CheckErr(err)
	}
}
