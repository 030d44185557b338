// Package screen is the interactive terminal front end of the search
// controller. It owns nothing but presentation: every edit, search,
// selection and sign-out goes through the controller, and the view is a
// function of the controller's latest state plus local focus and cursor
// positions.
package screen

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/derickschaefer/departures/internal/render"
	"github.com/derickschaefer/departures/internal/search"
	"github.com/derickschaefer/departures/internal/util"
)

type focus int

const (
	focusOrigin focus = iota
	focusDestination
	focusResults
	focusCount
)

// stateMsg carries a controller snapshot into the update loop.
type stateMsg struct{ state search.State }

// signedOutMsg reports the outcome of a sign-out started from the screen.
type signedOutMsg struct{ err error }

// Model is the bubbletea model of the search screen.
type Model struct {
	ctx     context.Context
	ctrl    *search.Controller
	updates <-chan search.State
	keys    KeyMap
	styles  styles

	origin      textinput.Model
	destination textinput.Model
	focus       focus
	cursor      int // highlighted result
	pick        int // highlighted suggestion

	state     search.State
	width     int
	signedOut bool
	err       error
}

// New builds the screen for ctrl. updates is normally the channel returned
// by ctrl.Subscribe; searches are started under ctx.
func New(ctx context.Context, ctrl *search.Controller, updates <-chan search.State) Model {
	newInput := func(placeholder string) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Prompt = ""
		ti.Width = 8
		return ti
	}
	model := Model{
		ctx:         ctx,
		ctrl:        ctrl,
		updates:     updates,
		keys:        DefaultKeyMap,
		styles:      newStyles(DefaultTheme),
		origin:      newInput("JFK"),
		destination: newInput("LAX"),
		state:       ctrl.State(),
	}
	model.origin.Focus()
	return model
}

// SignedOut reports whether the screen exited through a successful sign-out.
func (model Model) SignedOut() bool {
	return model.signedOut
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listen(model.updates))
}

// listen returns a tea.Cmd that blocks until the controller publishes a
// new snapshot.
func listen(updates <-chan search.State) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		state, ok := <-updates
		if !ok {
			return nil
		}
		return stateMsg{state: state}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		return model, nil
	case stateMsg:
		model.apply(message.state)
		return model, listen(model.updates)
	case signedOutMsg:
		if message.err != nil {
			model.err = message.err
			return model, nil
		}
		model.signedOut = true
		return model, tea.Quit
	case tea.KeyMsg:
		return model.handleKey(message)
	}
	return model.updateInput(message)
}

func (model *Model) apply(state search.State) {
	model.state = state
	if model.cursor >= len(state.Flights) {
		model.cursor = max(0, len(state.Flights)-1)
	}
}

func (model *Model) refresh() {
	model.apply(model.ctrl.State())
}

func (model Model) field() search.Field {
	if model.focus == focusDestination {
		return search.FieldDestination
	}
	return search.FieldOrigin
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit
	case key.Matches(message, model.keys.SignOut):
		return model, model.signOut()
	}

	// The detail view only knows how to go back.
	if model.state.Selected != nil {
		if key.Matches(message, model.keys.Back) {
			model.ctrl.ClearSelection()
			model.refresh()
		}
		return model, nil
	}

	if model.focus != focusResults {
		if panel := model.ctrl.Suggestions(model.field()); panel.Visible {
			n := len(panel.Items)
			switch {
			case key.Matches(message, model.keys.Up):
				model.pick = (model.pick - 1 + n) % n
				return model, nil
			case key.Matches(message, model.keys.Down):
				model.pick = (model.pick + 1) % n
				return model, nil
			case key.Matches(message, model.keys.Submit):
				model.accept(panel.Items[min(model.pick, n-1)])
				return model, nil
			case key.Matches(message, model.keys.Dismiss):
				model.ctrl.Dismiss(model.field())
				return model, nil
			}
		}
	}

	switch {
	case key.Matches(message, model.keys.NextFocus):
		return model, model.setFocus((model.focus + 1) % focusCount)
	case key.Matches(message, model.keys.PrevFocus):
		return model, model.setFocus((model.focus + focusCount - 1) % focusCount)
	case key.Matches(message, model.keys.Submit):
		if model.focus == focusResults {
			if len(model.state.Flights) > 0 {
				model.ctrl.Select(model.state.Flights[model.cursor])
				model.refresh()
			}
			return model, nil
		}
		if _, ok := model.ctrl.SubmitCurrent(model.ctx); ok {
			model.cursor = 0
			model.refresh()
		}
		return model, nil
	}

	if model.focus == focusResults {
		switch {
		case key.Matches(message, model.keys.Up):
			if model.cursor > 0 {
				model.cursor--
			}
		case key.Matches(message, model.keys.Down):
			if model.cursor < len(model.state.Flights)-1 {
				model.cursor++
			}
		}
		return model, nil
	}
	return model.updateInput(message)
}

// updateInput forwards a message to the focused text input and pushes any
// text change to the controller.
func (model Model) updateInput(message tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch model.focus {
	case focusOrigin:
		before := model.origin.Value()
		model.origin, cmd = model.origin.Update(message)
		if model.origin.Value() != before {
			model.ctrl.SetOrigin(syncUpper(&model.origin))
			model.pick = 0
			model.refresh()
		}
	case focusDestination:
		before := model.destination.Value()
		model.destination, cmd = model.destination.Update(message)
		if model.destination.Value() != before {
			model.ctrl.SetDestination(syncUpper(&model.destination))
			model.pick = 0
			model.refresh()
		}
	}
	return model, cmd
}

// syncUpper upper-cases the input in place, keeping the caret where it was,
// and returns the value to hand to the controller.
func syncUpper(ti *textinput.Model) search.TextValue {
	pos := ti.Position()
	upper := strings.ToUpper(ti.Value())
	if upper != ti.Value() {
		ti.SetValue(upper)
		ti.SetCursor(pos)
	}
	pos = ti.Position()
	return search.TextValue{Text: upper, SelStart: pos, SelEnd: pos}
}

func (model *Model) accept(value string) {
	f := model.field()
	model.ctrl.Accept(f, value)
	ti := &model.origin
	if f == search.FieldDestination {
		ti = &model.destination
	}
	ti.SetValue(strings.ToUpper(value))
	ti.CursorEnd()
	model.pick = 0
	model.refresh()
}

func (model *Model) setFocus(f focus) tea.Cmd {
	model.focus = f
	model.pick = 0
	model.origin.Blur()
	model.destination.Blur()
	switch f {
	case focusOrigin:
		return model.origin.Focus()
	case focusDestination:
		return model.destination.Focus()
	}
	return nil
}

func (model Model) signOut() tea.Cmd {
	ctrl, ctx := model.ctrl, model.ctx
	return func() tea.Msg {
		return signedOutMsg{err: ctrl.SignOut(ctx)}
	}
}

// ─── View ─────────────────────────────────────────────────────────────────────

// View implements tea.Model.
func (model Model) View() string {
	if model.state.Detail != nil {
		return model.detailView()
	}

	var b strings.Builder
	b.WriteString(model.styles.title.Render("✈ Search Flights"))
	b.WriteString("\n\n")

	model.writeInput(&b, "Origin", model.origin, search.FieldOrigin)
	if text := model.state.Origin.Text; text != "" && utf8.RuneCountInString(text) != util.CodeLen {
		b.WriteString(model.styles.label.Render(""))
		b.WriteString(model.styles.hint.Render("Must be 3 letters"))
		b.WriteString("\n")
	}
	model.writeInput(&b, "Destination", model.destination, search.FieldDestination)
	b.WriteString("\n")

	switch {
	case model.state.Loading:
		b.WriteString(model.styles.rowStatus.Render("Searching…"))
		b.WriteString("\n")
	case len(model.state.Flights) == 0:
		b.WriteString(render.EmptyMessage)
		b.WriteString("\n")
		if model.state.Outcome == search.OutcomeFailed {
			b.WriteString(model.styles.warning.Render("⚠  " + model.state.Err))
			b.WriteString("\n")
		}
	default:
		for i, f := range model.state.Flights {
			b.WriteString(model.fit(model.resultRow(i, f.Airline, f.Number, f.Status)))
			b.WriteString("\n")
		}
	}

	if model.err != nil {
		b.WriteString("\n")
		b.WriteString(model.styles.warning.Render("⚠  sign-out failed: " + model.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(model.styles.help.Render("Tab switch field • Enter search/select • Esc close • C-l logout • C-c quit"))
	return b.String()
}

func (model Model) writeInput(b *strings.Builder, label string, ti textinput.Model, f search.Field) {
	b.WriteString(model.styles.label.Render(label))
	b.WriteString(ti.View())
	b.WriteString("\n")

	if model.field() != f || model.focus == focusResults {
		return
	}
	panel := model.ctrl.Suggestions(f)
	if !panel.Visible {
		return
	}
	for i, item := range panel.Items {
		b.WriteString(model.styles.label.Render(""))
		if i == model.pick {
			b.WriteString(model.styles.cursor.Render(item))
		} else {
			b.WriteString(model.styles.suggestion.Render(item))
		}
		b.WriteString("\n")
	}
}

func (model Model) resultRow(i int, airline, number, status string) string {
	marker := "  "
	if model.focus == focusResults && i == model.cursor {
		marker = "▸ "
	}
	return marker + model.styles.row.Render(render.FlightTitle(airline, number)) + "  " +
		model.styles.rowStatus.Render("Status: "+render.StatusLabel(status))
}

// fit truncates a styled line to the terminal width.
func (model Model) fit(line string) string {
	if model.width <= 0 {
		return line
	}
	return ansi.Truncate(line, model.width, "…")
}

func (model Model) detailView() string {
	d := model.state.Detail
	body := strings.Join([]string{
		model.styles.title.Render(render.FlightTitle(d.Airline, d.Number)),
		"Status: " + render.StatusLabel(d.Status),
		"Departure: " + render.LegLine(d.Departure),
		"Arrival: " + render.LegLine(d.Arrival),
	}, "\n")
	return fmt.Sprintf("%s\n\n%s\n\n%s",
		model.styles.help.Render("← Back (Esc)"),
		model.styles.card.Render(body),
		model.styles.help.Render("Esc back • C-l logout • C-c quit"))
}
