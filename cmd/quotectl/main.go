// Command quotectl prices treatment plans, seeds clinics and manages portal
// access from the command line.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

var (
	verbose bool
	logger  *logging.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quotectl",
		Short: "Dental quote platform operator tool",
		Long: `quotectl works against the embedded treatment catalog, the clinic
database and a running API.

Available subcommands:
  price   - Price a treatment plan at partner clinics
  clinics - List partner clinics or fetch one from the API
  seed    - Upsert catalog clinics into Postgres
  token   - Issue a portal bearer token
  auth    - Check portal access against a running API`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger = logging.NewWithWriter(cmd.ErrOrStderr(), level, "text")
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(newPriceCmd())
	root.AddCommand(newClinicsCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newAuthCmd())
	return root
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func envOr(flagValue, key string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(key)
}
