package aerodata

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/derickschaefer/departures/internal/model"
	"github.com/derickschaefer/departures/internal/util"
)

// Direction values accepted by the airport flights endpoint.
const (
	DirectionDeparture = "Departure"
	DirectionArrival   = "Arrival"
)

// DeparturesOptions holds the query parameters of the airport flights call.
type DeparturesOptions struct {
	Direction         string
	WithLocation      bool
	WithAircraftImage bool
}

// DefaultDeparturesOptions are the fixed options the search workflow uses.
func DefaultDeparturesOptions() DeparturesOptions {
	return DeparturesOptions{
		Direction:         DirectionDeparture,
		WithLocation:      true,
		WithAircraftImage: false,
	}
}

// Departures fetches today's scheduled flights for an origin IATA code.
// An absent list in the response yields a nil Departures slice.
func (c *Client) Departures(ctx context.Context, origin string, opts DeparturesOptions) (*model.DeparturesResponse, error) {
	origin = util.NormaliseCode(origin)
	if opts.Direction == "" {
		opts.Direction = DirectionDeparture
	}

	if !c.cacheBypass(opts) {
		if cached, ok := c.cache.Get(ctx, origin); ok {
			slog.Debug("departures cache hit", "origin", origin, "flights", len(cached.Departures))
			cached.Cached = true
			return cached, nil
		}
	}

	params := url.Values{}
	params.Set("direction", opts.Direction)
	params.Set("withLocation", strconv.FormatBool(opts.WithLocation))
	params.Set("withAircraftImage", strconv.FormatBool(opts.WithAircraftImage))

	var raw rawAirportFlights
	if err := c.get(ctx, "flights/airports/iata/"+url.PathEscape(origin), params, &raw); err != nil {
		return nil, fmt.Errorf("departures %s: %w", origin, err)
	}

	resp := &model.DeparturesResponse{
		Origin:    origin,
		FetchedAt: time.Now().UTC(),
	}
	if raw.Departures != nil {
		resp.Departures = make([]model.FlightRecord, len(raw.Departures))
		for i, f := range raw.Departures {
			resp.Departures[i] = normalizeFlight(f)
		}
	}

	if !c.cacheBypass(opts) {
		if err := c.cache.Set(ctx, origin, resp); err != nil {
			slog.Warn("departures cache write failed", "origin", origin, "err", err)
		}
	}
	return resp, nil
}

// cacheBypass reports whether opts differ from the defaults the cache is
// keyed under.
func (c *Client) cacheBypass(opts DeparturesOptions) bool {
	return opts != DefaultDeparturesOptions()
}

// ─── Internal helpers ─────────────────────────────────────────────────────────

type rawAirportFlights struct {
	Departures []rawFlight `json:"departures"`
}

type rawFlight struct {
	Number  *string `json:"number"`
	Airline *struct {
		Name *string `json:"name"`
	} `json:"airline"`
	Status    *string      `json:"status"`
	Departure *rawMovement `json:"departure"`
	Arrival   *rawMovement `json:"arrival"`
}

type rawMovement struct {
	ScheduledTimeLocal *string `json:"scheduledTimeLocal"`
	ScheduledTime      *struct {
		Local *string `json:"local"`
	} `json:"scheduledTime"`
	Airport *struct {
		IATA *string `json:"iata"`
		Name *string `json:"name"`
	} `json:"airport"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func normalizeFlight(r rawFlight) model.FlightRecord {
	f := model.FlightRecord{
		Number:    str(r.Number),
		Status:    str(r.Status),
		Departure: normalizeMovement(r.Departure),
		Arrival:   normalizeMovement(r.Arrival),
	}
	if r.Airline != nil {
		f.Airline = str(r.Airline.Name)
	}
	return f
}

func normalizeMovement(r *rawMovement) *model.MovementInfo {
	if r == nil {
		return nil
	}
	m := &model.MovementInfo{ScheduledTimeLocal: str(r.ScheduledTimeLocal)}
	if m.ScheduledTimeLocal == "" && r.ScheduledTime != nil {
		m.ScheduledTimeLocal = str(r.ScheduledTime.Local)
	}
	if r.Airport != nil {
		m.Airport = &model.AirportRef{
			IATA: str(r.Airport.IATA),
			Name: str(r.Airport.Name),
		}
	}
	return m
}
