package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/pricing"
	"github.com/wolfman30/dental-quote-platform/internal/quoteflow"
)

func newPriceCmd() *cobra.Command {
	var (
		treatments []string
		clinicIDs  []string
		packageID  string
		usdRate    float64
	)
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price a treatment plan at partner clinics",
		Example: `  quotectl price -t "Dental Implant:2" -t "Zirconia Crown:4"
  quotectl price -t "Dental Implant" --clinic dentgroup-istanbul --package pkg-002`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(treatments) == 0 {
				return errors.New("at least one --treatment is required")
			}
			cat, err := catalog.Load()
			if err != nil {
				return err
			}

			items := make([]catalog.PlanItem, 0, len(treatments))
			for _, t := range treatments {
				items = append(items, catalog.ParsePlanItem(t))
			}
			rate := decimal.NewFromFloat(usdRate)
			lines, unknown := pricing.LinesFromPlan(cat, items, rate)
			if len(unknown) > 0 {
				return fmt.Errorf("unknown treatments: %s", strings.Join(unknown, ", "))
			}

			clinics := cat.Clinics()
			if len(clinicIDs) > 0 {
				clinics = clinics[:0:0]
				for _, id := range clinicIDs {
					c, ok := cat.Clinic(id)
					if !ok {
						return fmt.Errorf("unknown clinic %q", id)
					}
					clinics = append(clinics, c)
				}
			}

			opts := pricing.Options{USDRate: rate}
			if packageID != "" {
				if len(clinicIDs) != 1 {
					return errors.New("--package needs exactly one --clinic")
				}
				price, known := quoteflow.PackagePrice(packageID)
				if !known {
					logger.Warn("unknown package, using default price", "package_id", packageID, "price", price.String())
				}
				opts.Package = &pricing.PackageDeal{ID: packageID, ClinicID: clinicIDs[0], Price: price}
			}

			return printJSON(cmd.OutOrStdout(), map[string]any{
				"results": pricing.CompareClinics(clinics, lines, opts),
			})
		},
	}
	cmd.Flags().StringArrayVarP(&treatments, "treatment", "t", nil, `Treatment as "Name:qty" (repeatable)`)
	cmd.Flags().StringSliceVar(&clinicIDs, "clinic", nil, "Clinic ids to price at (default: all)")
	cmd.Flags().StringVar(&packageID, "package", "", "Package id to apply at the single --clinic")
	cmd.Flags().Float64Var(&usdRate, "usd-rate", pricing.DefaultUSDRate.InexactFloat64(), "GBP to USD conversion rate")
	return cmd
}
