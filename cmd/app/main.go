package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"SignalDesk/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "signaldesk",
		Short:         "Daily price signal engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")

	load := func() (*config.Config, error) {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return config.LoadWithEnv("")
		}
		return config.LoadWithEnv(configPath)
	}

	serve := newServeCmd(load)
	root.AddCommand(serve, newAnalyzeCmd(load), newRefreshCmd(load))
	root.RunE = serve.RunE
	return root
}
