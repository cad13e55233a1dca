package main

import (
	"github.com/spf13/cobra"

	"steelcraft-site/internal/config"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sitectl",
		Short:         "Operate the СТИЛКРАФТ site backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(
		newServeCommand(config.Load),
		newSetWebhookCommand(config.Load),
		newDeleteWebhookCommand(config.Load),
		newWebhookInfoCommand(config.Load),
		newMigrateCommand(config.Load),
	)
	return root
}

// loadFunc loads configuration. Commands take it as a parameter so tests can
// supply a fixed config.
type loadFunc func() (*config.Config, error)
