package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/derickschaefer/departures/internal/screen"
	"github.com/spf13/cobra"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Open the interactive search screen",
	Long: `Open a full-screen terminal search.

Type an origin code, optionally a destination, and press Enter to search.
Remembered codes appear as suggestions once you have typed two letters;
use ↑/↓ and Enter to pick one, Esc to close the list. Tab moves to the
results, where Enter shows the flight detail and Esc returns.

Ctrl+L signs out and leaves the screen; Ctrl+C quits.`,
	Example: `  departures screen
  departures screen --detail-times placeholder`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		ctrl := deps.NewController(nil)
		ctrl.Start(ctx)
		updates, unsubscribe := ctrl.Subscribe()
		defer unsubscribe()

		final, err := tea.NewProgram(screen.New(ctx, ctrl, updates), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		cancel()
		ctrl.Wait()
		if err != nil {
			return fmt.Errorf("running screen: %w", err)
		}
		if m, ok := final.(screen.Model); ok && m.SignedOut() && !deps.Config.Quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed out")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)
}
