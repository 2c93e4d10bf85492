package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xopoww/canteen/api"
	"github.com/xopoww/canteen/config"
	"github.com/xopoww/canteen/core"
	"github.com/xopoww/canteen/database"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:           "canteen",
		Short:         "Canteen ordering service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(serveCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// 	Open the database and build the core service from the config file.
func setup() (*core.Service, *database.DB, *config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("parse log level: %w", err)
	}
	logger := &logrus.Logger{
		Out:       os.Stdout,
		Formatter: &logrus.TextFormatter{DisableLevelTruncation: true},
		Level:     lvl,
		Hooks:     make(logrus.LevelHooks),
	}

	db, err := database.Open(&database.Config{Path: cfg.Database, Logger: logger})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return core.New(db, logger), db, cfg, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			server := api.NewServer(svc, logger)
			logger.Infof("Listening on %s.", cfg.Listen)
			return http.ListenAndServe(cfg.Listen, server.Router())
		},
	}
}
