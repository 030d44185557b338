package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/derickschaefer/departures/internal/model"
)

// Field identifies one of the two airport code inputs.
type Field int

const (
	FieldOrigin Field = iota
	FieldDestination
)

func (f Field) String() string {
	switch f {
	case FieldOrigin:
		return "origin"
	case FieldDestination:
		return "destination"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseField accepts "origin"/"destination" and their short forms.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "origin", "orig", "from":
		return FieldOrigin, nil
	case "destination", "dest", "to":
		return FieldDestination, nil
	default:
		return 0, fmt.Errorf("unknown field %q: choose origin|destination", s)
	}
}

// Outcome is the result of the most recent search.
type Outcome string

const (
	OutcomeIdle    Outcome = "idle"
	OutcomeLoading Outcome = "loading"
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// TextValue is the content of a text input together with its selection.
// SelStart and SelEnd are rune offsets; they are equal for a plain caret.
type TextValue struct {
	Text     string `json:"text"`
	SelStart int    `json:"sel_start"`
	SelEnd   int    `json:"sel_end"`
}

// Text returns a TextValue with the caret placed after the last rune.
func Text(s string) TextValue {
	n := utf8.RuneCountInString(s)
	return TextValue{Text: s, SelStart: n, SelEnd: n}
}

// upper returns v with its text upper-cased and the selection clamped to
// the new length.
func (v TextValue) upper() TextValue {
	out := TextValue{Text: strings.ToUpper(v.Text), SelStart: v.SelStart, SelEnd: v.SelEnd}
	n := utf8.RuneCountInString(out.Text)
	out.SelStart = clamp(out.SelStart, 0, n)
	out.SelEnd = clamp(out.SelEnd, 0, n)
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// State is a snapshot of the search screen. Snapshots are copies; mutating
// one never affects the controller.
type State struct {
	Origin      TextValue            `json:"origin"`
	Destination TextValue            `json:"destination"`
	Loading     bool                 `json:"loading"`
	Outcome     Outcome              `json:"outcome"`
	Err         string               `json:"error,omitempty"`
	Seq         uint64               `json:"seq"`
	Flights     []model.FlightRecord `json:"flights"`
	Selected    *model.FlightRecord  `json:"selected,omitempty"`
	Detail      *model.FlightDetail  `json:"detail,omitempty"`
}

// Empty reports whether the screen should show the "no flights" message:
// not loading and nothing in the result list.
func (s State) Empty() bool {
	return !s.Loading && len(s.Flights) == 0
}

func (s State) clone() State {
	out := s
	out.Flights = append([]model.FlightRecord(nil), s.Flights...)
	if out.Flights == nil {
		out.Flights = []model.FlightRecord{}
	}
	if s.Selected != nil {
		sel := *s.Selected
		out.Selected = &sel
	}
	if s.Detail != nil {
		d := *s.Detail
		out.Detail = &d
	}
	return out
}

// Suggestions is the derived autocomplete panel for one field.
type Suggestions struct {
	Items   []string `json:"items"`
	Visible bool     `json:"visible"`
}
