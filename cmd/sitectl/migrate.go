package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"steelcraft-site/migrations"
)

var runMigrations = migrations.Run

func newMigrateCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the PostgreSQL schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(migrations.Up), string(migrations.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := migrations.ParseDirection(args[0])
			if err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("sitectl: DATABASE_URL is not set")
			}
			changed, err := runMigrations(cfg.DatabaseURL, dir)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "no change")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", dir)
			return nil
		},
	}
}
