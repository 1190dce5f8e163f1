package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	oauthhttp "github.com/custodia-labs/delegate/internal/adapters/driving/oauth"
	"github.com/custodia-labs/delegate/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the authorization callback server",
	Long: `Serve the consent flow over HTTP until interrupted:

  GET /authorize/{service}   redirect to the provider
  GET /callback              complete the flow
  GET /metrics               Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveListen string

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := requireApp()
	if err != nil {
		return err
	}
	addr := rt.Listen
	if serveListen != "" {
		addr = serveListen
	}

	handler := oauthhttp.NewHandler(rt.Auth, oauthhttp.StaticOwner(rt.Owner))
	handler.Handle("GET /metrics", promhttp.Handler())

	server := oauthhttp.NewServer(addr, handler)
	if err := server.Start(); err != nil {
		return err
	}
	cmd.Printf("Listening on http://%s (owner %s)\n", server.Addr(), rt.Owner)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down callback server")
	case err := <-server.Errors():
		return fmt.Errorf("callback server: %w", err)
	}
	return server.Stop(context.WithoutCancel(ctx))
}
