package cmd

import (
	"fmt"

	"github.com/derickschaefer/departures/internal/app"
	"github.com/derickschaefer/departures/internal/model"
	"github.com/derickschaefer/departures/internal/render"
	"github.com/derickschaefer/departures/internal/search"
	"github.com/derickschaefer/departures/internal/util"
	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <origin|destination> <PREFIX>",
	Short: "Show remembered airport codes that start with a prefix",
	Long: `Show the airport codes from your search history that start with PREFIX,
ignoring case. Prefixes shorter than two letters match nothing, exactly
as in the interactive screen.`,
	Example: `  departures suggest origin JF
  departures suggest dest LA --format json`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return []string{"origin", "destination"}, cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		field, err := search.ParseField(args[0])
		if err != nil {
			return err
		}
		prefix := util.NormaliseCode(args[1])

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		deps := &app.Deps{Config: cfg}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		var history []string
		if field == search.FieldDestination {
			history, err = deps.Store.DestinationHistory()
		} else {
			history, err = deps.Store.OriginHistory()
		}
		if err != nil {
			return fmt.Errorf("reading %s history: %w", field, err)
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		result := buildHistoryResult(model.KindSuggestions,
			fmt.Sprintf("suggest %s %s", field, prefix),
			&model.HistoryList{
				Field:   field.String(),
				Prefix:  prefix,
				Entries: search.Suggest(history, prefix),
			})
		return render.Render(w, result, resolveFormat(cfg.Format))
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}
