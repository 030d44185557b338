package screen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/derickschaefer/departures/internal/aerodata"
	"github.com/derickschaefer/departures/internal/model"
	"github.com/derickschaefer/departures/internal/search"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

type stubSource struct {
	flights []model.FlightRecord
	err     error
}

func (s stubSource) Departures(_ context.Context, origin string, _ aerodata.DeparturesOptions) (*model.DeparturesResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.DeparturesResponse{Origin: origin, Departures: s.flights}, nil
}

type stubHistory struct {
	origins chan []string
}

func (h stubHistory) SaveOrigin(string) error                              { return nil }
func (h stubHistory) SaveDestination(string) error                         { return nil }
func (h stubHistory) ObserveOrigins(context.Context) <-chan []string      { return h.origins }
func (h stubHistory) ObserveDestinations(context.Context) <-chan []string { return nil }

type stubIdentity struct{ err error }

func (s stubIdentity) SignOut(context.Context) error { return s.err }

// ─── Helpers ──────────────────────────────────────────────────────────────────

var sample = []model.FlightRecord{
	{Number: "AA1", Airline: "American", Arrival: &model.MovementInfo{Airport: &model.AirportRef{IATA: "LAX", Name: "Los Angeles"}}},
	{Number: "AA2", Airline: "American", Status: "Departed", Arrival: &model.MovementInfo{Airport: &model.AirportRef{IATA: "SFO"}}},
}

func newScreen(t *testing.T, src stubSource, opts search.Options) (Model, *search.Controller) {
	t.Helper()
	ctrl := search.New(src, nil, opts)
	return New(context.Background(), ctrl, nil), ctrl
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

// settle waits for background searches and feeds the final state back in,
// the way the subscription would.
func settle(t *testing.T, m Model, ctrl *search.Controller) Model {
	t.Helper()
	ctrl.Wait()
	return send(t, m, stateMsg{state: ctrl.State()})
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestTypingUppercasesAndShowsHint(t *testing.T) {
	m, ctrl := newScreen(t, stubSource{}, search.Options{})
	m = typeText(t, m, "jf")

	if got := m.origin.Value(); got != "JF" {
		t.Errorf("input value: got %q", got)
	}
	if got := ctrl.State().Origin; got != (search.TextValue{Text: "JF", SelStart: 2, SelEnd: 2}) {
		t.Errorf("controller origin: %+v", got)
	}
	if !strings.Contains(m.View(), "Must be 3 letters") {
		t.Error("expected length hint for two letters")
	}

	m = send(t, m, enter)
	if ctrl.State().Seq != 0 {
		t.Error("enter with a short origin must not search")
	}

	m = typeText(t, m, "k")
	if strings.Contains(m.View(), "Must be 3 letters") {
		t.Error("hint should disappear at three letters")
	}
}

func TestSearchShowsResults(t *testing.T) {
	m, ctrl := newScreen(t, stubSource{flights: sample}, search.Options{})
	m = typeText(t, m, "jfk")
	m = send(t, m, tab)
	m = typeText(t, m, "lax")
	m = send(t, m, enter)
	m = settle(t, m, ctrl)

	view := m.View()
	if !strings.Contains(view, "American AA1") {
		t.Errorf("expected AA1 in view:\n%s", view)
	}
	if strings.Contains(view, "AA2") {
		t.Errorf("AA2 should be filtered out by destination:\n%s", view)
	}
	if !strings.Contains(view, "Status: N/A") {
		t.Errorf("missing status should show N/A in the list:\n%s", view)
	}
}

func TestEmptyAndFailedResults(t *testing.T) {
	m, ctrl := newScreen(t, stubSource{err: errors.New("upstream 503")}, search.Options{})
	if !strings.Contains(m.View(), "No flights found!") {
		t.Error("initial screen should show the empty message")
	}
	m = typeText(t, m, "JFK")
	m = send(t, m, enter)
	m = settle(t, m, ctrl)

	view := m.View()
	if !strings.Contains(view, "No flights found!") || !strings.Contains(view, "upstream 503") {
		t.Errorf("failed search should show empty message and warning:\n%s", view)
	}
}

func TestSelectDetailAndBack(t *testing.T) {
	m, ctrl := newScreen(t, stubSource{flights: sample}, search.Options{})
	m = typeText(t, m, "JFK")
	m = send(t, m, enter)
	m = settle(t, m, ctrl)

	m = send(t, m, tab, tab, down, enter)
	st := ctrl.State()
	if st.Selected == nil || st.Selected.Number != "AA2" {
		t.Fatalf("expected AA2 selected, got %+v", st.Selected)
	}
	view := m.View()
	if !strings.Contains(view, "Status: Departed") || !strings.Contains(view, "Arrival: SFO at") {
		t.Errorf("detail view:\n%s", view)
	}

	m = send(t, m, esc)
	if st := ctrl.State(); st.Selected != nil || st.Detail != nil {
		t.Errorf("esc should clear the selection: %+v", st)
	}
	if !strings.Contains(m.View(), "American AA1") {
		t.Error("results should be visible again")
	}
}

func TestSuggestionPanel(t *testing.T) {
	origins := make(chan []string, 1)
	ctrl := search.New(stubSource{}, stubHistory{origins: origins}, search.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrl.Start(ctx)
	origins <- []string{"JFK", "JFK2"}

	m := New(ctx, ctrl, nil)
	m = typeText(t, m, "jf")
	deadline := time.Now().Add(time.Second)
	for !ctrl.Suggestions(search.FieldOrigin).Visible {
		if time.Now().After(deadline) {
			t.Fatal("suggestions never became visible")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if view := m.View(); !strings.Contains(view, "JFK2") {
		t.Errorf("expected suggestions in view:\n%s", view)
	}

	m = send(t, m, down, enter)
	if got := m.origin.Value(); got != "JFK2" {
		t.Errorf("accepted suggestion: got %q", got)
	}
	if ctrl.Suggestions(search.FieldOrigin).Visible {
		t.Error("panel should close after accepting")
	}
	if ctrl.State().Seq != 0 {
		t.Error("accepting a suggestion must not search")
	}

	m = typeText(t, m, "x")
	if !strings.Contains(m.View(), "Must be 3 letters") {
		t.Error("five letters should show the hint")
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if !ctrl.Suggestions(search.FieldOrigin).Visible {
		t.Error("editing should re-arm the panel")
	}
	send(t, m, esc)
	if ctrl.Suggestions(search.FieldOrigin).Visible {
		t.Error("esc should dismiss the panel")
	}
}

func TestSignOut(t *testing.T) {
	m, _ := newScreen(t, stubSource{}, search.Options{Identity: stubIdentity{}})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if cmd == nil {
		t.Fatal("ctrl+l should return a command")
	}
	msg := cmd()
	next, quit := m.Update(msg)
	if !next.(Model).SignedOut() {
		t.Error("expected signed-out model")
	}
	if quit == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := quit().(tea.QuitMsg); !ok {
		t.Error("sign-out should quit the program")
	}
}

func TestSignOutFailureStays(t *testing.T) {
	m, _ := newScreen(t, stubSource{}, search.Options{Identity: stubIdentity{err: errors.New("offline")}})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	next, quit := m.Update(cmd())
	if next.(Model).SignedOut() || quit != nil {
		t.Error("failed sign-out should keep the screen open")
	}
	if !strings.Contains(next.(Model).View(), "offline") {
		t.Error("failure should be shown")
	}
}
