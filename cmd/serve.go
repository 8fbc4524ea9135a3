package cmd

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/awsbridge/aws-profile-bridge/pkg/bridge"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the native messaging host on stdin/stdout",
		Long: `Serves the browser extension over the native messaging protocol. Stdout
carries the framed protocol, so all logging goes to a file under
~/.aws/logs/.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logToFile(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			host := bridge.NewHost(newEngine(), os.Stdin, os.Stdout)
			log.Info("native messaging host started")
			err := host.Run(ctx)
			if err != nil {
				log.Error("native messaging host stopped", "err", err)
			}
			return err
		},
	}
}

// logToFile redirects logging away from the std streams the protocol owns.
func logToFile() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	logDir := filepath.Join(home, ".aws", "logs")
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return err
	}

	file, err := os.OpenFile(filepath.Join(logDir, "aws-profile-bridge.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	log.SetOutput(file)
	return nil
}
