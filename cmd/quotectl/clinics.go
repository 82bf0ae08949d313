package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/clinic"
)

func newClinicsCmd() *cobra.Command {
	var (
		tier   string
		apiURL string
	)
	cmd := &cobra.Command{
		Use:   "clinics [clinic-id]",
		Short: "List partner clinics or fetch one from the API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && apiURL != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				c, err := clinic.NewHTTPFetcher(apiURL, nil).FetchClinic(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), c)
			}

			cat, err := catalog.Load()
			if err != nil {
				return err
			}
			svc := clinic.NewService(clinic.NewCatalogRepository(cat), logger)
			if len(args) == 1 {
				c, err := svc.FetchClinic(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), c)
			}
			clinics, err := svc.ListClinics(cmd.Context(), catalog.Tier(tier))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"clinics": clinics})
		},
	}
	cmd.Flags().StringVar(&tier, "tier", "", "Only list clinics of this tier")
	cmd.Flags().StringVar(&apiURL, "api", "", "Fetch the clinic from this API base URL instead of the catalog")
	return cmd
}
