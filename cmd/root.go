// Package cmd is the operator CLI around the profile bridge engine.
package cmd

import (
	"fmt"
	"os/exec"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/awsbridge/aws-profile-bridge/pkg/engine"
)

var (
	flagAWSDir            string
	flagVerbose           bool
	flagDisableSDK        bool
	flagDisableEnumerator bool
)

// Executor abstracts command execution for easier testing.
type Executor interface {
	Start(name string, args []string) error
}

type osExecutor struct{}

func (osExecutor) Start(name string, args []string) error {
	return exec.Command(name, args...).Start()
}

// NewRootCmd creates the root CLI command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aws-profile-bridge",
		Short: "Resolve AWS profiles into credentials and console URLs for the browser extension",
		Long: `aws-profile-bridge reads the AWS shared credentials and config stores,
resolves profiles into time-bounded credentials (directly or through an SSO
bearer token exchange), and turns them into federated console URLs. It serves
a browser extension over native messaging and optionally over a local HTTP
endpoint.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagAWSDir, "aws-dir", "", "AWS config directory (defaults to ~/.aws)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagDisableSDK, "no-sdk", false, "skip SDK-native credential resolution")
	rootCmd.PersistentFlags().BoolVar(&flagDisableEnumerator, "no-enumerator", false, "list profiles from the stores only")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAPICmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newConsoleCmd())
	rootCmd.AddCommand(newDiagnoseCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func newEngine() *engine.Engine {
	return engine.New(engine.Options{
		AWSDir:            flagAWSDir,
		DisableSDK:        flagDisableSDK,
		DisableEnumerator: flagDisableEnumerator,
	})
}

// openBrowser opens the given URL in the user's default browser.
func openBrowser(targetURL, goos string, executor Executor) error {
	var command string
	var args []string

	switch goos {
	case "darwin":
		command = "open"
	case "linux":
		command = "xdg-open"
	case "windows":
		command = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	default:
		return fmt.Errorf("unsupported platform: %s", goos)
	}

	args = append(args, targetURL)
	return executor.Start(command, args)
}
