package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/awsbridge/aws-profile-bridge/pkg/api"
)

func newAPICmd() *cobra.Command {
	var (
		addr  string
		token string
		rps   float64
	)

	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Run the local HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := &http.Server{
				Addr: addr,
				Handler: api.NewServer(newEngine(), api.Config{
					APIToken:          token,
					RequestsPerSecond: rps,
				}),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info("http surface listening", "addr", addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}

	apiCmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8765", "listen address")
	apiCmd.Flags().StringVar(&token, "token", os.Getenv("AWS_PROFILE_BRIDGE_TOKEN"), "require this X-API-Token header value")
	apiCmd.Flags().Float64Var(&rps, "rps", 20, "per-client request rate limit (0 disables)")

	return apiCmd
}
