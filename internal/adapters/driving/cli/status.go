package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/delegate/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the authorization state of every configured service",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	stateStyles = map[domain.AuthorizationState]lipgloss.Style{
		domain.StateAuthorized: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		domain.StateExpired:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		domain.StateRevoked:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		domain.StateNone:       lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	}
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	rt, err := requireApp()
	if err != nil {
		return err
	}

	summaries, err := rt.Auth.Status(commandContext(cmd), rt.Owner)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		cmd.Println("No services configured. Add provider client ids to the config file.")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderStatus(rt.Owner, summaries))
	return nil
}

func renderStatus(owner string, summaries []domain.AuthorizationSummary) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("SERVICE", "PROVIDER", "STATE", "EXPIRES", "SCOPE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, s := range summaries {
		state := stateStyles[s.State].Render(string(s.State))
		t.Row(s.Service.String(), string(s.Provider), state, formatExpiry(s.ExpiresAtEpochMillis), s.Scope)
	}

	return headerStyle.UnsetPadding().Render("Owner: "+owner) + "\n" + t.String()
}

func formatExpiry(epochMillis int64) string {
	if epochMillis == 0 {
		return "-"
	}
	return time.UnixMilli(epochMillis).Local().Format(time.RFC3339)
}
