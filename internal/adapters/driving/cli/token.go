package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/delegate/internal/core/domain"
)

var tokenCmd = &cobra.Command{
	Use:   "token <service>",
	Short: "Print a valid access token for a service",
	Long: `Print a valid access token, refreshing the stored one if it has expired.

The token is written to stdout alone so it can be captured:
  curl -H "Authorization: Bearer $(delegate token calendar)" ...`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	rt, err := requireApp()
	if err != nil {
		return err
	}
	service, err := domain.ParseServiceIdentifier(args[0])
	if err != nil {
		return err
	}

	token, err := rt.Tokens(rt.Owner, service).GetToken(commandContext(cmd))
	if err != nil {
		return explain(err, service)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
