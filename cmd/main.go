// Command uniplay runs the live scoring service and its operator tasks.
//
// Usage:
//
//	uniplay serve
//	uniplay migrate
//	uniplay schedule generate --event 3
//	uniplay cricsheet inspect match.json
//	uniplay token issue --user 1 --role scorer
//
// @title UniPlay API
// @version 1.0
// @description Live cricket scoring, fixture scheduling and scorecard replay for university sports events.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dosada05/uniplay/config"
)

func main() {
	root := &cobra.Command{
		Use:           "uniplay",
		Short:         "UniPlay live scoring service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(scheduleCmd())
	root.AddCommand(cricsheetCmd())
	root.AddCommand(tokenCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the JSON logger as the
// process default.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
