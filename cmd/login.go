package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <USER>",
	Short: "Record the locally signed-in user",
	Long: `Record USER as the signed-in identity in the local store.

Identity is not verified; the record only marks who is using this
history database until 'departures logout'.`,
	Example: `  departures login ada`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user := strings.TrimSpace(args[0])
		if user == "" {
			return fmt.Errorf("user must not be empty")
		}
		deps, err := openHistory()
		if err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Store.PutSession(user); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Signed in as %s\n", user)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of the local session",
	Long: `Sign out through the search controller: the local session is
cleared. Search history is kept.`,
	Example: `  departures logout`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := openHistory()
		if err != nil {
			return err
		}
		defer deps.Close()

		user, err := deps.Store.Session()
		if err != nil {
			return fmt.Errorf("reading session: %w", err)
		}

		ctrl := deps.NewController(func() {
			if deps.Config.Quiet {
				return
			}
			if user == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Not signed in")
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Signed out %s\n", user)
		})
		return ctrl.SignOut(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
