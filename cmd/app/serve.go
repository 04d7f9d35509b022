package main

import (
	"github.com/spf13/cobra"

	"SignalDesk/internal/di"
	"SignalDesk/pkg/config"
)

type loader func() (*config.Config, error)

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, refresh consumer and warm-up scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			// Run blocks until SIGINT/SIGTERM
			return app.Run()
		},
	}
}
