package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/derickschaefer/departures/internal/model"
	"github.com/derickschaefer/departures/internal/render"
	"github.com/derickschaefer/departures/internal/search"
	"github.com/derickschaefer/departures/internal/util"
	"github.com/spf13/cobra"
)

var searchSelect string

var searchCmd = &cobra.Command{
	Use:   "search <ORIGIN> [DESTINATION]",
	Short: "List today's departures from an airport",
	Long: `List today's departures from ORIGIN, a 3-letter IATA airport code.

When DESTINATION is also a 3-letter code, only flights arriving there are
shown. Any other destination text is remembered but does not filter.

Both codes are saved to the local history and offered as suggestions
later (see 'departures suggest').

A failed lookup prints "No flights found!" with the reason as a warning.`,
	Example: `  departures search JFK
  departures search jfk lax
  departures search LHR --select "BA 117"
  departures search JFK --format json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		origin, err := requireCode("origin", args[0])
		if err != nil {
			return err
		}
		dest := ""
		if len(args) == 2 {
			dest = util.NormaliseCode(args[1])
		}

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

		ctrl := deps.NewController(nil)
		ctrl.SetOrigin(search.Text(origin))
		ctrl.SetDestination(search.Text(dest))

		start := time.Now()
		seq, ok := ctrl.SubmitCurrent(cmd.Context())
		if !ok {
			return fmt.Errorf("origin must be 3 letters, got %q", origin)
		}
		st, err := ctrl.Await(cmd.Context(), seq)
		ctrl.Wait()
		if err != nil {
			return err
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		format := resolveFormat(deps.Config.Format)

		if searchSelect != "" {
			detail, found := ctrl.SelectNumber(searchSelect)
			if !found {
				return fmt.Errorf("flight %q is not among the %d departures found", searchSelect, len(st.Flights))
			}
			result := buildDetailResult(fmt.Sprintf("search %s --select %q", origin, searchSelect), &detail)
			return render.Render(w, result, format)
		}

		command := strings.TrimSpace("search " + origin + " " + dest)
		result := buildFlightsResult(command, &model.FlightList{
			Origin:      origin,
			Destination: dest,
			Flights:     st.Flights,
		}, start, false)
		if st.Outcome == search.OutcomeFailed {
			result.Warnings = append(result.Warnings, st.Err)
		}

		if err := render.Render(w, result, format); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			render.PrintFooter(cmd.ErrOrStderr(), result, deps.Config.Verbose)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchSelect, "select", "",
		"show the detail of one flight from the results, by flight number")
}
