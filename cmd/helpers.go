package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/derickschaefer/departures/internal/model"
	"github.com/derickschaefer/departures/internal/render"
	"github.com/derickschaefer/departures/internal/util"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// outputWriter returns the writer for command output: the --out file when
// set, otherwise def. The returned close function is always safe to call.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// requireCode validates a positional airport code argument. The check
// mirrors what the search controller accepts.
func requireCode(label, code string) (string, error) {
	code = util.NormaliseCode(code)
	if !util.IsCodeLength(code) {
		return "", fmt.Errorf("%s must be 3 letters, got %q", label, code)
	}
	return code, nil
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// buildFlightsResult wraps a filtered flight list in a Result envelope.
func buildFlightsResult(command string, list *model.FlightList, start time.Time, cacheHit bool) *model.Result {
	return &model.Result{
		Kind:        model.KindFlights,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        list,
		Stats: model.ResultStats{
			CacheHit:   cacheHit,
			DurationMs: time.Since(start).Milliseconds(),
			Items:      len(list.Flights),
		},
	}
}

// buildDetailResult wraps a flight detail in a Result envelope.
func buildDetailResult(command string, d *model.FlightDetail) *model.Result {
	return &model.Result{
		Kind:        model.KindFlightDetail,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        d,
		Stats:       model.ResultStats{Items: 1},
	}
}

// buildHistoryResult wraps history codes in a Result envelope.
func buildHistoryResult(kind, command string, list *model.HistoryList) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        list,
		Stats:       model.ResultStats{Items: len(list.Entries)},
	}
}

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
