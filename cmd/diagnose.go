package cmd

import (
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"
)

func newDiagnoseCmd() *cobra.Command {
	var region string

	diagnoseCmd := &cobra.Command{
		Use:   "diagnose <profile>",
		Short: "Resolve a profile and verify its credentials against STS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			ctx := cmd.Context()

			creds, err := newEngine().ResolveCredentials(ctx, name)
			if err != nil {
				return fmt.Errorf("resolution failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Resolved credentials for %q", name)
			if creds.Expiration != nil {
				fmt.Fprintf(cmd.OutOrStdout(), " (expires %s)", creds.Expiration.Format("2006-01-02 15:04:05 MST"))
			}
			fmt.Fprintln(cmd.OutOrStdout())

			cfg, err := config.LoadDefaultConfig(ctx,
				config.WithRegion(region),
				config.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
					creds.AccessKeyID,
					creds.SecretAccessKey,
					creds.SessionToken,
				)),
			)
			if err != nil {
				return fmt.Errorf("building client config: %w", err)
			}

			out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
			if err != nil {
				return fmt.Errorf("credentials rejected by STS: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated as: %s\n", awsv2.ToString(out.Arn))
			return nil
		},
	}

	diagnoseCmd.Flags().StringVar(&region, "region", "us-east-1", "region for the STS check")

	return diagnoseCmd
}
