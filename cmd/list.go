package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/awsbridge/aws-profile-bridge/pkg/profile"
)

func newListCmd() *cobra.Command {
	var (
		full   bool
		asJSON bool
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all known profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			depth := profile.DepthFast
			if full {
				depth = profile.DepthFull
			}

			profiles := newEngine().ListProfiles(cmd.Context(), depth)

			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(profiles)
			}

			for _, p := range profiles {
				kind := "credentials"
				if p.IsSSO {
					kind = "sso"
				}
				status := ""
				if p.Expired {
					status = " (expired)"
				} else if !p.HasCredentials && full {
					status = " (no credentials)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-30s %-12s%s\n", p.Name, kind, status)
			}
			return nil
		},
	}

	listCmd.Flags().BoolVar(&full, "full", false, "validate SSO tokens while listing (slower)")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")

	return listCmd
}
