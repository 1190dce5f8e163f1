package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driven"
	"github.com/custodia-labs/delegate/internal/core/ports/driving"
	"github.com/custodia-labs/delegate/internal/logger"
)

// Runtime is the wired application the commands operate on.
type Runtime struct {
	// Auth is the authorization service.
	Auth driving.AuthorizationService
	// Owner is the configured owner the CLI acts for.
	Owner string
	// Listen is the callback server address.
	Listen string
	// Tokens returns a token provider for one service, retries included.
	Tokens func(ownerID string, service domain.ServiceIdentifier) driven.TokenProvider
	// Close releases stores and connections.
	Close func() error
}

// RuntimeFactory builds the runtime from the config file path.
type RuntimeFactory func(configPath string) (*Runtime, error)

var (
	version    = "dev"
	verbose    bool
	configPath string

	newRuntime RuntimeFactory
	app        *Runtime
)

var rootCmd = &cobra.Command{
	Use:   "delegate",
	Short: "Delegated OAuth credentials for calendar, video and music services",
	Long: `delegate stores OAuth credentials for third-party services and hands out
fresh access tokens, refreshing them transparently when they expire.

Examples:
  delegate authorize calendar --listen   # Run the consent flow in the browser
  delegate token calendar                # Print a valid access token
  delegate status                        # Show every configured service
  delegate serve                         # Run the callback server`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.delegate/config.toml)")
}

// Execute runs the CLI with the given version and runtime factory.
func Execute(v string, factory RuntimeFactory) error {
	version = v
	newRuntime = factory
	defer closeApp()
	return rootCmd.Execute()
}

// requireApp builds the runtime on first use.
func requireApp() (*Runtime, error) {
	if app != nil {
		return app, nil
	}
	if newRuntime == nil {
		return nil, errors.New("application not configured")
	}
	rt, err := newRuntime(configPath)
	if err != nil {
		return nil, err
	}
	app = rt
	return app, nil
}

func closeApp() {
	if app == nil {
		return
	}
	if app.Close != nil {
		if err := app.Close(); err != nil {
			logger.Error("Closing application: %v", err)
		}
	}
	app = nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// explain adds a next step to consent errors.
func explain(err error, service domain.ServiceIdentifier) error {
	if domain.RequiresConsent(err) && service != "" {
		return errors.Join(err, errors.New("run 'delegate authorize "+service.String()+" --listen' to grant access"))
	}
	return err
}
