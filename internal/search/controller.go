// Package search implements the departures search screen controller.
//
// The Controller owns the transient screen state: the two airport code
// inputs, the loading flag, the result list and the current selection. It
// decides when to call the flight data source, filters results by
// destination, and derives a detail record for the selected flight.
//
// All state transitions happen under one mutex, so readers never observe a
// half-applied change. Remote calls and history writes run in background
// goroutines and report back through the same locked path. Each submission
// carries a sequence number; a completion whose number is no longer the
// latest is dropped.
package search

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/derickschaefer/departures/internal/aerodata"
	"github.com/derickschaefer/departures/internal/config"
	"github.com/derickschaefer/departures/internal/model"
	"github.com/derickschaefer/departures/internal/util"
)

// FlightSource fetches today's departures for an origin airport.
type FlightSource interface {
	Departures(ctx context.Context, origin string, opts aerodata.DeparturesOptions) (*model.DeparturesResponse, error)
}

// History persists and streams previously used airport codes.
type History interface {
	SaveOrigin(code string) error
	SaveDestination(code string) error
	ObserveOrigins(ctx context.Context) <-chan []string
	ObserveDestinations(ctx context.Context) <-chan []string
}

// Identity signs the current user out of the external identity provider.
type Identity interface {
	SignOut(ctx context.Context) error
}

// Options configures a Controller. The zero value is usable.
type Options struct {
	// DetailTimes selects how detail leg times are produced:
	// config.DetailTimesScheduled (default) or config.DetailTimesPlaceholder.
	DetailTimes string
	// Rand drives placeholder times. Nil uses the package-level source.
	Rand *rand.Rand
	// Identity is called by SignOut. Nil skips the provider call.
	Identity Identity
	// OnSignOut runs after a successful SignOut, typically to leave the screen.
	OnSignOut func()
	// Logger receives fetch failures. Nil uses slog.Default().
	Logger *slog.Logger
}

// Controller is the search screen controller.
type Controller struct {
	source    FlightSource
	history   History
	identity  Identity
	onSignOut func()
	mode      string
	log       *slog.Logger

	mu              sync.Mutex
	state           State
	rng             *rand.Rand
	originHistory   []string
	destHistory     []string
	originDismissed bool
	destDismissed   bool
	cancel          context.CancelFunc
	subs            map[chan State]struct{}

	wg sync.WaitGroup
}

// New creates a Controller. history may be nil, in which case nothing is
// remembered and no suggestions are offered.
func New(source FlightSource, history History, opts Options) *Controller {
	mode := opts.DetailTimes
	if mode == "" {
		mode = config.DetailTimesScheduled
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		source:    source,
		history:   history,
		identity:  opts.Identity,
		onSignOut: opts.OnSignOut,
		mode:      mode,
		log:       logger,
		rng:       opts.Rand,
		state: State{
			Outcome: OutcomeIdle,
			Flights: []model.FlightRecord{},
		},
		originHistory: []string{},
		destHistory:   []string{},
		subs:          make(map[chan State]struct{}),
	}
}

// Start begins observing the history store. Both histories are empty until
// the store delivers its first value. Observation stops when ctx ends.
func (c *Controller) Start(ctx context.Context) {
	if c.history == nil {
		return
	}
	go c.watch(c.history.ObserveOrigins(ctx), func(codes []string) { c.originHistory = codes })
	go c.watch(c.history.ObserveDestinations(ctx), func(codes []string) { c.destHistory = codes })
}

func (c *Controller) watch(ch <-chan []string, apply func([]string)) {
	for codes := range ch {
		c.mu.Lock()
		apply(append([]string(nil), codes...))
		c.notifyLocked()
		c.mu.Unlock()
	}
}

// ─── Reads ────────────────────────────────────────────────────────────────────

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Suggestions derives the autocomplete panel for a field from its history
// and current text.
func (c *Controller) Suggestions(f Field) Suggestions {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == FieldDestination {
		return panel(c.destHistory, c.state.Destination.Text, c.destDismissed)
	}
	return panel(c.originHistory, c.state.Origin.Text, c.originDismissed)
}

// Subscribe returns a stream of state snapshots, one after every
// transition. Only the latest unread snapshot is kept. Call the returned
// function to unsubscribe.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
		})
	}
}

// Wait blocks until every background search started so far has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Await blocks until the submission identified by seq has completed or been
// superseded by a newer one, and returns the state at that point.
func (c *Controller) Await(ctx context.Context, seq uint64) (State, error) {
	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()
	for {
		st := c.State()
		if st.Seq != seq || !st.Loading {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
}

// ─── Text input ───────────────────────────────────────────────────────────────

// SetOrigin replaces the origin input. The text is upper-cased with the
// selection preserved, and the suggestion panel is re-armed. It never
// starts a search.
func (c *Controller) SetOrigin(v TextValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Origin = v.upper()
	c.originDismissed = false
	c.notifyLocked()
}

// SetDestination is SetOrigin for the destination input.
func (c *Controller) SetDestination(v TextValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Destination = v.upper()
	c.destDismissed = false
	c.notifyLocked()
}

// Dismiss hides a field's suggestion panel until its text changes again.
func (c *Controller) Dismiss(f Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == FieldDestination {
		c.destDismissed = true
	} else {
		c.originDismissed = true
	}
	c.notifyLocked()
}

// Accept fills a field with a chosen suggestion, caret at the end, and
// closes its panel.
func (c *Controller) Accept(f Field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := Text(value).upper()
	if f == FieldDestination {
		c.state.Destination = v
		c.destDismissed = true
	} else {
		c.state.Origin = v
		c.originDismissed = true
	}
	c.notifyLocked()
}

// ─── Search ───────────────────────────────────────────────────────────────────

// SubmitCurrent submits the texts currently held in the two inputs.
func (c *Controller) SubmitCurrent(ctx context.Context) (uint64, bool) {
	c.mu.Lock()
	origin, dest := c.state.Origin.Text, c.state.Destination.Text
	c.mu.Unlock()
	return c.Submit(ctx, origin, dest)
}

// Submit starts a search for departures from origin, keeping only flights
// to destination when destination is a three-letter code. When origin is
// not exactly three characters it does nothing and returns false.
//
// On acceptance the result list is cleared and loading set before Submit
// returns; the history writes and the remote call run in the background.
// The returned sequence number identifies this submission. Any earlier
// in-flight search is cancelled and its result ignored.
func (c *Controller) Submit(ctx context.Context, origin, destination string) (uint64, bool) {
	if !util.IsCodeLength(origin) {
		return 0, false
	}

	fetchCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.state.Seq++
	seq := c.state.Seq
	c.state.Loading = true
	c.state.Outcome = OutcomeLoading
	c.state.Err = ""
	c.state.Flights = []model.FlightRecord{}
	c.notifyLocked()
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.remember(origin, destination)
		resp, err := c.source.Departures(fetchCtx, origin, aerodata.DefaultDeparturesOptions())
		c.complete(seq, origin, destination, resp, err)
	}()
	return seq, true
}

// remember writes non-empty inputs to the history store. Failures are
// logged and never block the search.
func (c *Controller) remember(origin, destination string) {
	if c.history == nil {
		return
	}
	if origin != "" {
		if err := c.history.SaveOrigin(origin); err != nil {
			c.log.Warn("saving origin history", "origin", origin, "err", err)
		}
	}
	if destination != "" {
		if err := c.history.SaveDestination(destination); err != nil {
			c.log.Warn("saving destination history", "destination", destination, "err", err)
		}
	}
}

// complete applies a finished fetch if seq is still the latest submission.
func (c *Controller) complete(seq uint64, origin, destination string, resp *model.DeparturesResponse, err error) {
	var flights []model.FlightRecord
	if err == nil && resp != nil {
		flights = FilterByDestination(resp.Departures, destination)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.state.Seq {
		c.log.Debug("discarding stale search result", "seq", seq, "latest", c.state.Seq, "origin", origin)
		return
	}
	c.cancel = nil
	c.state.Loading = false

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Error("departures fetch failed", "origin", origin, "err", err)
		}
		c.state.Outcome = OutcomeFailed
		c.state.Err = err.Error()
		c.state.Flights = []model.FlightRecord{}
		c.notifyLocked()
		return
	}

	c.state.Outcome = OutcomeSuccess
	c.state.Flights = flights
	c.notifyLocked()
}

// FilterByDestination keeps the flights arriving at destination when it is
// a three-character code, preserving order. Any other destination keeps
// every flight. A nil list yields an empty one.
func FilterByDestination(flights []model.FlightRecord, destination string) []model.FlightRecord {
	if !util.IsCodeLength(destination) {
		out := make([]model.FlightRecord, len(flights))
		copy(out, flights)
		return out
	}
	out := []model.FlightRecord{}
	for _, f := range flights {
		if f.ArrivesAt(destination) {
			out = append(out, f)
		}
	}
	return out
}

// ─── Selection ────────────────────────────────────────────────────────────────

// Select makes record the selected flight and derives its detail.
func (c *Controller) Select(record model.FlightRecord) model.FlightDetail {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel := record
	detail := synthesizeDetail(record, c.mode, c.rng)
	c.state.Selected = &sel
	c.state.Detail = detail
	c.notifyLocked()
	return *detail
}

// SelectNumber selects the first result whose flight number matches,
// ignoring case and spaces. It reports false when no result matches.
func (c *Controller) SelectNumber(number string) (model.FlightDetail, bool) {
	want := compactNumber(number)
	c.mu.Lock()
	var found *model.FlightRecord
	for i := range c.state.Flights {
		if want != "" && compactNumber(c.state.Flights[i].Number) == want {
			rec := c.state.Flights[i]
			found = &rec
			break
		}
	}
	c.mu.Unlock()
	if found == nil {
		return model.FlightDetail{}, false
	}
	return c.Select(*found), true
}

func compactNumber(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// ClearSelection removes the selected flight and its detail together.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Selected = nil
	c.state.Detail = nil
	c.notifyLocked()
}

// ─── Sign-out ─────────────────────────────────────────────────────────────────

// SignOut signs out of the identity provider and then runs the OnSignOut
// callback. Search state is left untouched.
func (c *Controller) SignOut(ctx context.Context) error {
	if c.identity != nil {
		if err := c.identity.SignOut(ctx); err != nil {
			return err
		}
	}
	if c.onSignOut != nil {
		c.onSignOut()
	}
	return nil
}

// ─── Notification ─────────────────────────────────────────────────────────────

// notifyLocked sends a snapshot to every subscriber. c.mu must be held.
func (c *Controller) notifyLocked() {
	if len(c.subs) == 0 {
		return
	}
	snap := c.state.clone()
	for ch := range c.subs {
		for {
			select {
			case ch <- snap:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}
