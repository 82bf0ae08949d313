package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wolfman30/dental-quote-platform/internal/authgate"
	httpmiddleware "github.com/wolfman30/dental-quote-platform/internal/http/middleware"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Check portal access against a running API",
	}
	cmd.AddCommand(newAuthCheckCmd())
	return cmd
}

func newAuthCheckCmd() *cobra.Command {
	var (
		apiURL string
		token  string
		role   string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a bearer token and print the gate decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				return errors.New("--api is required")
			}
			gate := authgate.New(
				authgate.NewCredentialStore(authgate.DefaultCredentialTTL, 0),
				authgate.NewHTTPValidator(apiURL, nil),
				authgate.Config{RequiredRole: role},
				logger,
			)
			decision := gate.Decide(cmd.Context(), "quotectl", token)
			if err := printJSON(cmd.OutOrStdout(), decision); err != nil {
				return err
			}
			if !decision.Allowed() {
				return fmt.Errorf("access not granted: %s", decision.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "", "API base URL")
	cmd.Flags().StringVar(&token, "token", "", "Portal bearer token")
	cmd.Flags().StringVar(&role, "role", httpmiddleware.RoleClinicStaff, "Required role (empty allows any signed-in user)")
	return cmd
}
