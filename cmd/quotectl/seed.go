package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wolfman30/dental-quote-platform/internal/app/bootstrap"
	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/clinic"
)

func newSeedCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert catalog clinics into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := envOr(databaseURL, "DATABASE_URL")
			if url == "" {
				return errors.New("--database-url or DATABASE_URL is required")
			}
			cat, err := catalog.Load()
			if err != nil {
				return err
			}
			pool := bootstrap.BuildPostgresPool(cmd.Context(), url, logger)
			if pool == nil {
				return errors.New("database unavailable")
			}
			defer pool.Close()

			n, err := clinic.NewPostgresRepository(pool).Seed(cmd.Context(), cat)
			if err != nil {
				return fmt.Errorf("seeded %d clinics before failing: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d clinics\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres URL (default: $DATABASE_URL)")
	return cmd
}
