// Package serve implements the serve subcommand: the JSON API server
// backing the gallery UI.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/promptkeep/promptkeep/internal/conf"
	"github.com/promptkeep/promptkeep/internal/datastore"
	"github.com/promptkeep/promptkeep/internal/gallery"
	"github.com/promptkeep/promptkeep/internal/httpserver"
	"github.com/promptkeep/promptkeep/internal/logging"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gallery API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	setupFlags(cmd, settings)
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the API server")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		cobra.CheckErr(err)
	}
}

func runServer(settings *conf.Settings) error {
	logger := logging.ForService("serve")

	if settings.Main.Log.Enabled {
		fileLogger, closeLog, err := logging.NewFileLogger(&settings.Main.Log, "serve", slog.LevelInfo)
		if err != nil {
			return fmt.Errorf("failed to set up file logging: %w", err)
		}
		defer closeLog()
		logger = fileLogger
	}

	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database backend enabled")
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	server := httpserver.New(settings, gallery.New(settings, store))

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
