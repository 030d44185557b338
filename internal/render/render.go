// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/derickschaefer/departures/internal/model"
	"github.com/derickschaefer/departures/internal/util"
	"github.com/olekukonko/tablewriter"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// EmptyMessage is shown in place of a flight list with no entries.
const EmptyMessage = "No flights found!"

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── Display Helpers ──────────────────────────────────────────────────────────

// FlightTitle is the "<airline> <number>" heading of a flight row.
func FlightTitle(airline, number string) string {
	return strings.TrimSpace(util.Or(airline, util.UnknownAirline) + " " + number)
}

// StatusLabel is the status shown in lists and details.
func StatusLabel(status string) string {
	return util.Or(status, util.UnknownStatus)
}

// LegLine describes one leg of a detail, e.g. "Heathrow at 09:15".
func LegLine(m model.MovementInfo) string {
	return fmt.Sprintf("%s at %s",
		util.Or(m.Airport.Label(), util.UnknownValue),
		util.Or(m.ScheduledTimeLocal, util.UnknownValue))
}

func legCode(m *model.MovementInfo) string {
	return util.Or(m.AirportIATA(), util.UnknownValue)
}

func legTime(m *model.MovementInfo) string {
	if m == nil {
		return util.UnknownValue
	}
	return util.Or(m.ScheduledTimeLocal, util.UnknownValue)
}

func flightRow(f model.FlightRecord) []string {
	return []string{
		util.Or(f.Number, util.UnknownValue),
		util.Or(f.Airline, util.UnknownAirline),
		StatusLabel(f.Status),
		legTime(f.Departure),
		legCode(f.Arrival),
	}
}

var flightHeaders = []string{"FLIGHT", "AIRLINE", "STATUS", "DEPARTS", "TO"}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// jsonlRow is a canonical JSONL record for one flight.
type jsonlRow struct {
	Origin      string `json:"origin"`
	Number      string `json:"number"`
	Airline     string `json:"airline,omitempty"`
	Status      string `json:"status,omitempty"`
	Departs     string `json:"departs,omitempty"`
	Destination string `json:"destination,omitempty"`
}

func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch result.Kind {
	case model.KindFlights:
		fl, ok := result.Data.(*model.FlightList)
		if !ok {
			return renderJSON(w, result)
		}
		for _, f := range fl.Flights {
			row := jsonlRow{
				Origin:      fl.Origin,
				Number:      f.Number,
				Airline:     f.Airline,
				Status:      f.Status,
				Destination: f.Arrival.AirportIATA(),
			}
			if f.Departure != nil {
				row.Departs = f.Departure.ScheduledTimeLocal
			}
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil
	case model.KindHistory, model.KindSuggestions:
		hl, ok := result.Data.(*model.HistoryList)
		if !ok {
			return renderJSON(w, result)
		}
		for _, e := range hl.Entries {
			if err := enc.Encode(map[string]string{"field": hl.Field, "code": e}); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	switch result.Kind {
	case model.KindFlights:
		fl, ok := result.Data.(*model.FlightList)
		if !ok {
			return fmt.Errorf("unexpected data type for flights")
		}
		return renderFlightTable(w, fl)
	case model.KindFlightDetail:
		d, ok := result.Data.(*model.FlightDetail)
		if !ok {
			return fmt.Errorf("unexpected data type for flight_detail")
		}
		return renderDetailTable(w, d)
	case model.KindHistory, model.KindSuggestions:
		hl, ok := result.Data.(*model.HistoryList)
		if !ok {
			return fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		return renderHistoryTable(w, hl)
	default:
		// Fallback: JSON
		return renderJSON(w, result)
	}
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

func renderFlightTable(w io.Writer, fl *model.FlightList) error {
	if fl.Destination != "" {
		fmt.Fprintf(w, "Departures from %s to %s\n\n", fl.Origin, fl.Destination)
	} else {
		fmt.Fprintf(w, "Departures from %s\n\n", fl.Origin)
	}
	if len(fl.Flights) == 0 {
		fmt.Fprintln(w, EmptyMessage)
		return nil
	}
	tw := newTable(w, flightHeaders)
	tw.SetColWidth(40)
	for _, f := range fl.Flights {
		row := flightRow(f)
		row[1] = util.Truncate(row[1], 30)
		tw.Append(row)
	}
	tw.Render()
	return nil
}

func renderDetailTable(w io.Writer, d *model.FlightDetail) error {
	tw := newTable(w, []string{"FIELD", "VALUE"})
	tw.SetColWidth(80)
	rows := [][]string{
		{"Flight", FlightTitle(d.Airline, d.Number)},
		{"Status", StatusLabel(d.Status)},
		{"Departure", LegLine(d.Departure)},
		{"Arrival", LegLine(d.Arrival)},
	}
	for _, r := range rows {
		tw.Append(r)
	}
	tw.Render()
	return nil
}

func renderHistoryTable(w io.Writer, hl *model.HistoryList) error {
	if len(hl.Entries) == 0 {
		fmt.Fprintf(w, "No %s history.\n", hl.Field)
		return nil
	}
	tw := newTable(w, []string{strings.ToUpper(hl.Field)})
	for _, e := range hl.Entries {
		tw.Append([]string{e})
	}
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	switch result.Kind {
	case model.KindFlights:
		fl, ok := result.Data.(*model.FlightList)
		if !ok {
			return fmt.Errorf("unexpected data type for flights")
		}
		_ = cw.Write([]string{"number", "airline", "status", "departs", "destination"})
		for _, f := range fl.Flights {
			dep := ""
			if f.Departure != nil {
				dep = f.Departure.ScheduledTimeLocal
			}
			_ = cw.Write([]string{f.Number, f.Airline, f.Status, dep, f.Arrival.AirportIATA()})
		}
	case model.KindFlightDetail:
		d, ok := result.Data.(*model.FlightDetail)
		if !ok {
			return fmt.Errorf("unexpected data type for flight_detail")
		}
		_ = cw.Write([]string{"field", "value"})
		_ = cw.Write([]string{"number", d.Number})
		_ = cw.Write([]string{"airline", d.Airline})
		_ = cw.Write([]string{"status", d.Status})
		_ = cw.Write([]string{"departure_airport", d.Departure.AirportIATA()})
		_ = cw.Write([]string{"departure_time", d.Departure.ScheduledTimeLocal})
		_ = cw.Write([]string{"arrival_airport", d.Arrival.AirportIATA()})
		_ = cw.Write([]string{"arrival_time", d.Arrival.ScheduledTimeLocal})
	case model.KindHistory, model.KindSuggestions:
		hl, ok := result.Data.(*model.HistoryList)
		if !ok {
			return fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		_ = cw.Write([]string{"field", "code"})
		for _, e := range hl.Entries {
			_ = cw.Write([]string{hl.Field, e})
		}
	default:
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	switch result.Kind {
	case model.KindFlights:
		fl, ok := result.Data.(*model.FlightList)
		if !ok {
			return renderJSON(w, result)
		}
		if len(fl.Flights) == 0 {
			fmt.Fprintln(w, EmptyMessage)
			return nil
		}
		fmt.Fprintf(w, "| %s |\n|%s\n", strings.Join(flightHeaders, " | "), strings.Repeat("----|", len(flightHeaders)))
		for _, f := range fl.Flights {
			row := flightRow(f)
			for i := range row {
				row[i] = mdEscape(row[i])
			}
			fmt.Fprintf(w, "| %s |\n", strings.Join(row, " | "))
		}
		return nil
	case model.KindFlightDetail:
		d, ok := result.Data.(*model.FlightDetail)
		if !ok {
			return renderJSON(w, result)
		}
		fmt.Fprintf(w, "**%s**\n\n", mdEscape(FlightTitle(d.Airline, d.Number)))
		fmt.Fprintf(w, "- Status: %s\n", mdEscape(StatusLabel(d.Status)))
		fmt.Fprintf(w, "- Departure: %s\n", mdEscape(LegLine(d.Departure)))
		fmt.Fprintf(w, "- Arrival: %s\n", mdEscape(LegLine(d.Arrival)))
		return nil
	default:
		return renderJSON(w, result)
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := "live"
		if result.Stats.CacheHit {
			src = "cache"
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
		)
	}
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
