package main

import (
	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/spf13/cobra"
)

func migrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.connect()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := database.MigrateUp(db)
			if err != nil {
				return err
			}
			a.log.WithField("applied", n).Info("migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.connect()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := database.MigrateDown(db)
			if err != nil {
				return err
			}
			a.log.WithField("rolled_back", n).Info("migration rolled back")
			return nil
		},
	})

	return cmd
}
