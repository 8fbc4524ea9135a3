package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newConsoleCmd() *cobra.Command {
	var open bool

	consoleCmd := &cobra.Command{
		Use:   "console <profile>",
		Short: "Generate a console sign-in URL for a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			url, err := newEngine().ConsoleURL(cmd.Context(), name)
			if err != nil {
				return err
			}

			if open {
				fmt.Fprintln(cmd.OutOrStdout(), "Opening AWS Console in your browser...")
				return openBrowser(url, runtime.GOOS, osExecutor{})
			}

			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	consoleCmd.Flags().BoolVar(&open, "open", false, "open the URL in the default browser")

	return consoleCmd
}
