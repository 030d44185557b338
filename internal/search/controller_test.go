package search_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/derickschaefer/departures/internal/aerodata"
	"github.com/derickschaefer/departures/internal/config"
	"github.com/derickschaefer/departures/internal/model"
	"github.com/derickschaefer/departures/internal/search"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

type call struct {
	origin string
	opts   aerodata.DeparturesOptions
}

// fakeSource answers Departures from a fixed list. When gate is non-nil
// each call blocks until a value is received from it or ctx ends.
type fakeSource struct {
	mu      sync.Mutex
	calls   []call
	flights []model.FlightRecord
	err     error
	gate    chan struct{}
}

func (f *fakeSource) Departures(ctx context.Context, origin string, opts aerodata.DeparturesOptions) (*model.DeparturesResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{origin, opts})
	gate, flights, err := f.gate, f.flights, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &model.DeparturesResponse{Origin: origin, Departures: flights}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeHistory struct {
	mu      sync.Mutex
	origins []string
	dests   []string
	originC chan []string
	destC   chan []string
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		originC: make(chan []string, 8),
		destC:   make(chan []string, 8),
	}
}

func (h *fakeHistory) SaveOrigin(code string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.origins = append(h.origins, code)
	return nil
}

func (h *fakeHistory) SaveDestination(code string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dests = append(h.dests, code)
	return nil
}

func (h *fakeHistory) ObserveOrigins(context.Context) <-chan []string      { return h.originC }
func (h *fakeHistory) ObserveDestinations(context.Context) <-chan []string { return h.destC }

func (h *fakeHistory) saved() ([]string, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.origins...), append([]string(nil), h.dests...)
}

type fakeIdentity struct {
	calls int
	err   error
}

func (i *fakeIdentity) SignOut(context.Context) error {
	i.calls++
	return i.err
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func flight(number, airline, status, from, to string) model.FlightRecord {
	return model.FlightRecord{
		Number:  number,
		Airline: airline,
		Status:  status,
		Departure: &model.MovementInfo{
			ScheduledTimeLocal: "2024-05-01 09:15",
			Airport:            &model.AirportRef{IATA: from},
		},
		Arrival: &model.MovementInfo{
			ScheduledTimeLocal: "2024-05-01 12:40",
			Airport:            &model.AirportRef{IATA: to},
		},
	}
}

func numbers(fs []model.FlightRecord) []string {
	out := []string{}
	for _, f := range fs {
		out = append(out, f.Number)
	}
	return out
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newController(src *fakeSource, h *fakeHistory, opts search.Options) *search.Controller {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 2))
	}
	if h == nil {
		return search.New(src, nil, opts)
	}
	return search.New(src, h, opts)
}

var (
	aa1 = flight("AA1", "American", "", "JFK", "LAX")
	aa2 = flight("AA2", "American", "Departed", "JFK", "SFO")
)

// ─── Submit ───────────────────────────────────────────────────────────────────

func TestInitialState(t *testing.T) {
	c := newController(&fakeSource{}, nil, search.Options{})
	st := c.State()
	if st.Loading || st.Outcome != search.OutcomeIdle || st.Selected != nil || st.Detail != nil {
		t.Errorf("unexpected initial state: %+v", st)
	}
	if st.Flights == nil || len(st.Flights) != 0 {
		t.Errorf("initial flights should be empty non-nil, got %#v", st.Flights)
	}
	if !st.Empty() {
		t.Error("initial state should render the empty message")
	}
}

func TestSubmitRejectsBadOrigin(t *testing.T) {
	for _, origin := range []string{"", "JF", "JFKX", "J F K"} {
		t.Run(origin, func(t *testing.T) {
			src := &fakeSource{flights: []model.FlightRecord{aa1}}
			h := newFakeHistory()
			c := newController(src, h, search.Options{})

			if _, ok := c.Submit(context.Background(), origin, "LAX"); ok {
				t.Fatal("Submit should reject origin")
			}
			c.Wait()
			if src.callCount() != 0 {
				t.Errorf("no remote call expected, got %d", src.callCount())
			}
			o, d := h.saved()
			if len(o) != 0 || len(d) != 0 {
				t.Errorf("no history writes expected, got %v / %v", o, d)
			}
			if st := c.State(); st.Loading || st.Seq != 0 {
				t.Errorf("state should be untouched: %+v", st)
			}
		})
	}
}

func TestSubmitWithoutDestinationKeepsAll(t *testing.T) {
	src := &fakeSource{flights: []model.FlightRecord{aa1, aa2}}
	h := newFakeHistory()
	c := newController(src, h, search.Options{})

	if _, ok := c.Submit(context.Background(), "JFK", ""); !ok {
		t.Fatal("Submit rejected a valid origin")
	}
	c.Wait()

	st := c.State()
	if got := numbers(st.Flights); !reflect.DeepEqual(got, []string{"AA1", "AA2"}) {
		t.Errorf("flights: got %v", got)
	}
	if st.Loading || st.Outcome != search.OutcomeSuccess {
		t.Errorf("expected finished success, got loading=%v outcome=%s", st.Loading, st.Outcome)
	}
	o, d := h.saved()
	if !reflect.DeepEqual(o, []string{"JFK"}) || len(d) != 0 {
		t.Errorf("history writes: origins=%v dests=%v", o, d)
	}
	if got := src.calls[0].opts; got != aerodata.DefaultDeparturesOptions() {
		t.Errorf("fetch options: got %+v", got)
	}
}

func TestSubmitFiltersByDestination(t *testing.T) {
	src := &fakeSource{flights: []model.FlightRecord{aa1, aa2}}
	h := newFakeHistory()
	c := newController(src, h, search.Options{})

	c.Submit(context.Background(), "JFK", "lax")
	c.Wait()

	if got := numbers(c.State().Flights); !reflect.DeepEqual(got, []string{"AA1"}) {
		t.Errorf("filtered flights: got %v", got)
	}
	_, d := h.saved()
	if !reflect.DeepEqual(d, []string{"lax"}) {
		t.Errorf("destination history: got %v", d)
	}
}

func TestSubmitPartialDestinationNotFiltered(t *testing.T) {
	src := &fakeSource{flights: []model.FlightRecord{aa1, aa2}}
	h := newFakeHistory()
	c := newController(src, h, search.Options{})

	c.Submit(context.Background(), "JFK", "LA")
	c.Wait()

	if got := numbers(c.State().Flights); len(got) != 2 {
		t.Errorf("two-letter destination should not filter: got %v", got)
	}
	if _, d := h.saved(); !reflect.DeepEqual(d, []string{"LA"}) {
		t.Errorf("non-empty destination is still remembered: got %v", d)
	}
}

func TestSubmitSetsLoadingAndClearsResults(t *testing.T) {
	src := &fakeSource{flights: []model.FlightRecord{aa1}}
	c := newController(src, nil, search.Options{})
	c.Submit(context.Background(), "JFK", "")
	c.Wait()

	src.gate = make(chan struct{})
	c.Submit(context.Background(), "JFK", "")
	st := c.State()
	if !st.Loading || st.Outcome != search.OutcomeLoading || len(st.Flights) != 0 {
		t.Errorf("after submit: loading=%v outcome=%s flights=%d", st.Loading, st.Outcome, len(st.Flights))
	}
	if st.Empty() {
		t.Error("loading state must not show the empty message")
	}
	close(src.gate)
	c.Wait()
	if st := c.State(); st.Loading || len(st.Flights) != 1 {
		t.Errorf("after completion: %+v", st)
	}
}

func TestSubmitFailureYieldsEmptyList(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	c := newController(src, nil, search.Options{})

	c.Submit(context.Background(), "JFK", "")
	c.Wait()

	st := c.State()
	if st.Loading || len(st.Flights) != 0 {
		t.Errorf("failed search should stop loading with no flights: %+v", st)
	}
	if st.Outcome != search.OutcomeFailed || st.Err != "boom" {
		t.Errorf("outcome=%s err=%q", st.Outcome, st.Err)
	}
	if !st.Empty() {
		t.Error("failed search should render the empty message")
	}
}

func TestStaleCompletionDiscarded(t *testing.T) {
	src := &fakeSource{flights: []model.FlightRecord{aa1, aa2}, gate: make(chan struct{})}
	c := newController(src, nil, search.Options{})

	first, _ := c.Submit(context.Background(), "JFK", "")
	second, _ := c.Submit(context.Background(), "JFK", "SFO")
	if second <= first {
		t.Fatalf("sequence should increase: %d then %d", first, second)
	}

	// The first fetch was cancelled by the second submission.
	waitFor(t, "both fetches to start", func() bool { return src.callCount() == 2 })
	if st := c.State(); !st.Loading {
		t.Error("stale completion must not clear loading")
	}
	src.gate <- struct{}{}
	c.Wait()

	st := c.State()
	if st.Seq != second {
		t.Errorf("seq: expected %d, got %d", second, st.Seq)
	}
	if got := numbers(st.Flights); !reflect.DeepEqual(got, []string{"AA2"}) {
		t.Errorf("latest result should win: got %v", got)
	}
	if st.Outcome != search.OutcomeSuccess {
		t.Errorf("outcome: got %s", st.Outcome)
	}
}

func TestSubmitCurrentUsesInputs(t *testing.T) {
	src := &fakeSource{flights: []model.FlightRecord{aa1, aa2}}
	c := newController(src, nil, search.Options{})
	c.SetOrigin(search.Text("jfk"))
	c.SetDestination(search.Text("sfo"))

	if _, ok := c.SubmitCurrent(context.Background()); !ok {
		t.Fatal("SubmitCurrent rejected")
	}
	c.Wait()
	if src.calls[0].origin != "JFK" {
		t.Errorf("origin sent: %q", src.calls[0].origin)
	}
	if got := numbers(c.State().Flights); !reflect.DeepEqual(got, []string{"AA2"}) {
		t.Errorf("flights: got %v", got)
	}
}

// ─── Selection ────────────────────────────────────────────────────────────────

var timeRE = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func TestSelectAndClear(t *testing.T) {
	c := newController(&fakeSource{}, nil, search.Options{})

	d := c.Select(aa1)
	st := c.State()
	if st.Selected == nil || st.Selected.Number != "AA1" || st.Detail == nil {
		t.Fatalf("selection not applied: %+v", st)
	}
	if d.Number != "AA1" || d.Airline != "American" {
		t.Errorf("detail: %+v", d)
	}
	if d.Status != model.StatusScheduled {
		t.Errorf("missing status should default to %q, got %q", model.StatusScheduled, d.Status)
	}
	if d.Departure.AirportIATA() != "JFK" || d.Arrival.AirportIATA() != "LAX" {
		t.Errorf("detail airports: %+v", d)
	}

	c.ClearSelection()
	st = c.State()
	if st.Selected != nil || st.Detail != nil {
		t.Errorf("selection and detail must clear together: %+v", st)
	}
}

func TestSelectKeepsStatus(t *testing.T) {
	c := newController(&fakeSource{}, nil, search.Options{})
	if d := c.Select(aa2); d.Status != "Departed" {
		t.Errorf("status: got %q", d.Status)
	}
}

func TestDetailScheduledTimes(t *testing.T) {
	c := newController(&fakeSource{}, nil, search.Options{DetailTimes: config.DetailTimesScheduled})
	d := c.Select(aa1)
	if d.Departure.ScheduledTimeLocal != "2024-05-01 09:15" || d.Arrival.ScheduledTimeLocal != "2024-05-01 12:40" {
		t.Errorf("scheduled mode should keep record times: %+v", d)
	}

	noTimes := model.FlightRecord{Number: "XX9"}
	d = c.Select(noTimes)
	if !timeRE.MatchString(d.Departure.ScheduledTimeLocal) || !timeRE.MatchString(d.Arrival.ScheduledTimeLocal) {
		t.Errorf("missing times should fall back to placeholders: %+v", d)
	}
}

func TestDetailPlaceholderTimes(t *testing.T) {
	c := newController(&fakeSource{}, nil, search.Options{DetailTimes: config.DetailTimesPlaceholder})
	for i := 0; i < 50; i++ {
		d := c.Select(aa1)
		for _, v := range []string{d.Departure.ScheduledTimeLocal, d.Arrival.ScheduledTimeLocal} {
			if !timeRE.MatchString(v) {
				t.Fatalf("placeholder %q does not match HH:MM", v)
			}
		}
	}
}

func TestPlaceholderTimeFormat(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 500; i++ {
		if v := search.PlaceholderTime(r); !timeRE.MatchString(v) {
			t.Fatalf("PlaceholderTime = %q", v)
		}
	}
	if v := search.PlaceholderTime(nil); !timeRE.MatchString(v) {
		t.Errorf("PlaceholderTime(nil) = %q", v)
	}
}

func TestSelectNumber(t *testing.T) {
	src := &fakeSource{flights: []model.FlightRecord{aa1, aa2}}
	c := newController(src, nil, search.Options{})
	c.Submit(context.Background(), "JFK", "")
	c.Wait()

	d, ok := c.SelectNumber("aa 2")
	if !ok || d.Number != "AA2" {
		t.Errorf("SelectNumber: ok=%v detail=%+v", ok, d)
	}
	if _, ok := c.SelectNumber("ZZ9"); ok {
		t.Error("unknown number should not match")
	}
	if st := c.State(); st.Selected == nil || st.Selected.Number != "AA2" {
		t.Errorf("failed lookup must not change selection: %+v", st.Selected)
	}
}

func TestSubmitKeepsSelection(t *testing.T) {
	src := &fakeSource{flights: []model.FlightRecord{aa1}}
	c := newController(src, nil, search.Options{})
	c.Select(aa2)
	c.Submit(context.Background(), "JFK", "")
	c.Wait()
	if st := c.State(); st.Selected == nil || st.Selected.Number != "AA2" {
		t.Errorf("selection should survive a new search: %+v", st.Selected)
	}
}

// ─── Text input & suggestions ─────────────────────────────────────────────────

func TestSetOriginUppercasesAndKeepsCaret(t *testing.T) {
	c := newController(&fakeSource{}, nil, search.Options{})
	c.SetOrigin(search.TextValue{Text: "jfk", SelStart: 1, SelEnd: 2})
	got := c.State().Origin
	want := search.TextValue{Text: "JFK", SelStart: 1, SelEnd: 2}
	if got != want {
		t.Errorf("origin: expected %+v, got %+v", want, got)
	}
	if c.State().Seq != 0 {
		t.Error("editing must not start a search")
	}
}

func TestSetDestinationClampsSelection(t *testing.T) {
	c := newController(&fakeSource{}, nil, search.Options{})
	c.SetDestination(search.TextValue{Text: "la", SelStart: -1, SelEnd: 9})
	got := c.State().Destination
	if got.Text != "LA" || got.SelStart != 0 || got.SelEnd != 2 {
		t.Errorf("destination: got %+v", got)
	}
}

func TestSuggestions(t *testing.T) {
	h := newFakeHistory()
	c := newController(&fakeSource{}, h, search.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	h.originC <- []string{"JFK", "JFK2", "LAX"}
	waitFor(t, "origin history", func() bool {
		c.SetOrigin(search.Text("JF"))
		return len(c.Suggestions(search.FieldOrigin).Items) > 0
	})

	c.SetOrigin(search.Text("J"))
	if s := c.Suggestions(search.FieldOrigin); len(s.Items) != 0 || s.Visible {
		t.Errorf("one character should not suggest: %+v", s)
	}

	c.SetOrigin(search.Text("jf"))
	s := c.Suggestions(search.FieldOrigin)
	if !reflect.DeepEqual(s.Items, []string{"JFK", "JFK2"}) || !s.Visible {
		t.Errorf("suggestions for JF: %+v", s)
	}

	if d := c.Suggestions(search.FieldDestination); d.Visible || len(d.Items) != 0 {
		t.Errorf("destination panel should be empty: %+v", d)
	}
}

func TestDismissAndRearm(t *testing.T) {
	h := newFakeHistory()
	c := newController(&fakeSource{}, h, search.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	h.destC <- []string{"LAX", "LAS"}
	waitFor(t, "destination history", func() bool {
		c.SetDestination(search.Text("LA"))
		return c.Suggestions(search.FieldDestination).Visible
	})

	c.Dismiss(search.FieldDestination)
	s := c.Suggestions(search.FieldDestination)
	if s.Visible || len(s.Items) != 2 {
		t.Errorf("dismissed panel keeps items but hides: %+v", s)
	}

	c.SetDestination(search.Text("LA"))
	if !c.Suggestions(search.FieldDestination).Visible {
		t.Error("any edit should re-arm the panel")
	}
}

func TestAcceptSuggestion(t *testing.T) {
	h := newFakeHistory()
	c := newController(&fakeSource{}, h, search.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	h.originC <- []string{"JFK"}

	c.Accept(search.FieldOrigin, "jfk")
	st := c.State()
	if st.Origin != (search.TextValue{Text: "JFK", SelStart: 3, SelEnd: 3}) {
		t.Errorf("accepted origin: %+v", st.Origin)
	}
	if c.Suggestions(search.FieldOrigin).Visible {
		t.Error("panel should close after accept")
	}
}

// ─── Subscribe ────────────────────────────────────────────────────────────────

func TestSubscribeReceivesLatest(t *testing.T) {
	src := &fakeSource{flights: []model.FlightRecord{aa1}}
	c := newController(src, nil, search.Options{})
	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()

	c.Submit(context.Background(), "JFK", "")
	c.Wait()

	var last search.State
	deadline := time.After(time.Second)
	for {
		select {
		case last = <-ch:
		case <-deadline:
			t.Fatal("no snapshot received")
		}
		if !last.Loading {
			break
		}
	}
	if len(last.Flights) != 1 {
		t.Errorf("latest snapshot: %+v", last)
	}
}

func TestAwait(t *testing.T) {
	src := &fakeSource{flights: []model.FlightRecord{aa1}, gate: make(chan struct{})}
	c := newController(src, nil, search.Options{})
	seq, _ := c.Submit(context.Background(), "JFK", "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Await(ctx, seq); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await on a blocked fetch: expected deadline, got %v", err)
	}

	close(src.gate)
	st, err := c.Await(context.Background(), seq)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if st.Loading || st.Seq != seq || len(st.Flights) != 1 {
		t.Errorf("awaited state: %+v", st)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c := newController(&fakeSource{}, nil, search.Options{})
	ch, unsubscribe := c.Subscribe()
	unsubscribe()
	unsubscribe()
	c.SetOrigin(search.Text("JFK"))
	select {
	case v := <-ch:
		t.Errorf("unexpected snapshot after unsubscribe: %+v", v)
	default:
	}
}

// ─── Sign-out ─────────────────────────────────────────────────────────────────

func TestSignOut(t *testing.T) {
	id := &fakeIdentity{}
	navigated := false
	c := newController(&fakeSource{}, nil, search.Options{
		Identity:  id,
		OnSignOut: func() { navigated = true },
	})
	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if id.calls != 1 || !navigated {
		t.Errorf("calls=%d navigated=%v", id.calls, navigated)
	}
}

func TestSignOutFailureSkipsNavigation(t *testing.T) {
	id := &fakeIdentity{err: errors.New("offline")}
	navigated := false
	c := newController(&fakeSource{}, nil, search.Options{
		Identity:  id,
		OnSignOut: func() { navigated = true },
	})
	if err := c.SignOut(context.Background()); err == nil {
		t.Error("expected error")
	}
	if navigated {
		t.Error("navigation must not happen after a failed sign-out")
	}
}

// ─── FilterByDestination ──────────────────────────────────────────────────────

func TestFilterByDestination(t *testing.T) {
	noArrival := model.FlightRecord{Number: "ZZ1"}
	all := []model.FlightRecord{aa1, aa2, noArrival}

	tests := []struct {
		dest string
		want []string
	}{
		{"", []string{"AA1", "AA2", "ZZ1"}},
		{"LA", []string{"AA1", "AA2", "ZZ1"}},
		{"LAX", []string{"AA1"}},
		{"sfo", []string{"AA2"}},
		{"ORD", []string{}},
	}
	for _, tc := range tests {
		if got := numbers(search.FilterByDestination(all, tc.dest)); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("dest %q: expected %v, got %v", tc.dest, tc.want, got)
		}
	}
	if got := search.FilterByDestination(nil, ""); got == nil {
		t.Error("nil input should yield an empty non-nil slice")
	}
}
