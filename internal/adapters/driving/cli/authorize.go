package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	oauthhttp "github.com/custodia-labs/delegate/internal/adapters/driving/oauth"
	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/logger"
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize <service>",
	Short: "Start the consent flow for a service",
	Long: `Build the provider authorization URL for a service (calendar, video, music).

Without --listen the URL is printed and the callback must reach a running
'delegate serve'. With --listen a local callback server is started, the
browser is opened and the command waits for the provider to redirect back.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthorize,
}

// Flags for authorize.
var (
	authorizeListen    bool
	authorizeNoBrowser bool
	authorizeTimeout   time.Duration
)

func init() {
	authorizeCmd.Flags().BoolVar(&authorizeListen, "listen", false, "Run a local callback server and wait")
	authorizeCmd.Flags().BoolVar(&authorizeNoBrowser, "no-browser", false, "Do not open the browser")
	authorizeCmd.Flags().DurationVar(&authorizeTimeout, "timeout", 5*time.Minute, "How long to wait for the callback")
	rootCmd.AddCommand(authorizeCmd)
}

func runAuthorize(cmd *cobra.Command, args []string) error {
	rt, err := requireApp()
	if err != nil {
		return err
	}
	service, err := domain.ParseServiceIdentifier(args[0])
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	uri, err := rt.Auth.StartAuthorization(ctx, service)
	if err != nil {
		return err
	}
	if !authorizeListen {
		fmt.Fprintln(cmd.OutOrStdout(), uri)
		return nil
	}

	results := make(chan oauthhttp.CallbackResult, 1)
	handler := oauthhttp.NewHandler(rt.Auth, oauthhttp.StaticOwner(rt.Owner), oauthhttp.WithResults(results))
	server := oauthhttp.NewServer(rt.Listen, handler)
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		if err := server.Stop(ctx); err != nil {
			logger.Warn("Stopping callback server: %v", err)
		}
	}()

	cmd.Printf("Open this URL to authorize %s:\n\n  %s\n\n", service, uri)
	if !authorizeNoBrowser {
		if err := oauthhttp.OpenBrowser(uri); err != nil {
			logger.Warn("Could not open browser: %v", err)
		}
	}

	timer := time.NewTimer(authorizeTimeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.Err != nil {
			return explain(res.Err, service)
		}
		cmd.Printf("Authorized %s for %s (token valid until %s)\n",
			res.Record.Service, rt.Owner, formatExpiry(res.Record.ExpiresAtEpochMillis))
		return nil
	case err := <-server.Errors():
		return fmt.Errorf("callback server: %w", err)
	case <-timer.C:
		return errors.New("timed out waiting for authorization callback")
	case <-ctx.Done():
		return ctx.Err()
	}
}
