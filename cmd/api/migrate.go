package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migraciones de la base (postgres o sqlite)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Aplica las migraciones pendientes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, dialect, err := openDB(cfg)
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("DB_DRIVER=memory has no migrations")
			}
			defer db.Close()

			m, err := migrator(db, dialect)
			if err != nil {
				return err
			}
			applied, err := m.Up(cmd.Context())
			for _, a := range applied {
				log.Info("applied", map[string]any{"version": a.Version, "description": a.Description})
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", len(applied))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Lista las migraciones y si están aplicadas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			db, dialect, err := openDB(cfg)
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("DB_DRIVER=memory has no migrations")
			}
			defer db.Close()

			m, err := migrator(db, dialect)
			if err != nil {
				return err
			}
			status, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range status {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%03d  %-30s %s\n", s.Version, s.Description, state)
			}
			return nil
		},
	})

	return cmd
}
