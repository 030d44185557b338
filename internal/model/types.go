// Package model defines the canonical data types used throughout departures.
// These types are the single source of truth for flight records returned by
// the remote source, the details derived from them, and the result envelope
// that every command returns.
package model

import (
	"strings"
	"time"
)

// ─── Flight Entity Types ──────────────────────────────────────────────────────

// AirportRef loosely identifies an airport. Either field may be empty.
type AirportRef struct {
	IATA string `json:"iata,omitempty"`
	Name string `json:"name,omitempty"`
}

// Label returns the airport name, falling back to the IATA code.
// Returns "" when neither is known.
func (a *AirportRef) Label() string {
	if a == nil {
		return ""
	}
	if a.Name != "" {
		return a.Name
	}
	return a.IATA
}

// MovementInfo is one leg (departure or arrival) of a flight.
// ScheduledTimeLocal is a free-form time string as delivered by the source.
type MovementInfo struct {
	ScheduledTimeLocal string      `json:"scheduled_time_local,omitempty"`
	Airport            *AirportRef `json:"airport,omitempty"`
}

// AirportIATA returns the leg's airport code, or "" when absent.
func (m *MovementInfo) AirportIATA() string {
	if m == nil || m.Airport == nil {
		return ""
	}
	return m.Airport.IATA
}

// FlightRecord is one scheduled flight as returned by the remote source.
// Empty strings and nil pointers mean the source did not supply the field.
type FlightRecord struct {
	Number    string        `json:"number,omitempty"`
	Airline   string        `json:"airline,omitempty"`
	Status    string        `json:"status,omitempty"`
	Departure *MovementInfo `json:"departure,omitempty"`
	Arrival   *MovementInfo `json:"arrival,omitempty"`
}

// ArrivesAt reports whether the flight's arrival airport IATA code equals
// code, ignoring case.
func (f FlightRecord) ArrivesAt(code string) bool {
	iata := f.Arrival.AirportIATA()
	return iata != "" && strings.EqualFold(iata, code)
}

// StatusScheduled is the status given to a detail when the source omits one.
const StatusScheduled = "Scheduled"

// FlightDetail is derived from a selected FlightRecord, never fetched.
type FlightDetail struct {
	Number    string       `json:"number,omitempty"`
	Airline   string       `json:"airline,omitempty"`
	Status    string       `json:"status"`
	Departure MovementInfo `json:"departure"`
	Arrival   MovementInfo `json:"arrival"`
}

// DeparturesResponse is the decoded remote answer for one origin airport.
// A nil Departures slice means the source sent no list.
type DeparturesResponse struct {
	Origin     string         `json:"origin"`
	Departures []FlightRecord `json:"departures"`
	FetchedAt  time.Time      `json:"fetched_at"`
	Cached     bool           `json:"-"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance and cache metadata for a command result.
type ResultStats struct {
	CacheHit   bool  `json:"cache_hit"`
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindFlights      = "flights"
	KindFlightDetail = "flight_detail"
	KindHistory      = "history"
	KindSuggestions  = "suggestions"
)

// FlightList is the payload of a KindFlights result.
type FlightList struct {
	Origin      string         `json:"origin"`
	Destination string         `json:"destination,omitempty"`
	Flights     []FlightRecord `json:"flights"`
}

// HistoryList is the payload of KindHistory and KindSuggestions results.
type HistoryList struct {
	Field   string   `json:"field"`
	Prefix  string   `json:"prefix,omitempty"`
	Entries []string `json:"entries"`
}
