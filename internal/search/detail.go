package search

import (
	"fmt"
	"math/rand/v2"

	"github.com/derickschaefer/departures/internal/config"
	"github.com/derickschaefer/departures/internal/model"
	"github.com/derickschaefer/departures/internal/util"
)

// PlaceholderTime returns a random 24-hour "HH:MM" time with hour and
// minute drawn independently. A nil r uses the package-level source.
func PlaceholderTime(r *rand.Rand) string {
	var h, m int
	if r == nil {
		h, m = rand.IntN(24), rand.IntN(60)
	} else {
		h, m = r.IntN(24), r.IntN(60)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// synthesizeDetail builds the detail record for a selected flight.
// In scheduled mode each leg keeps the record's own scheduled local time
// and only falls back to a placeholder when that time is missing; in
// placeholder mode both legs always get a fresh random time.
func synthesizeDetail(r model.FlightRecord, mode string, rng *rand.Rand) *model.FlightDetail {
	return &model.FlightDetail{
		Number:    r.Number,
		Airline:   r.Airline,
		Status:    util.Or(r.Status, model.StatusScheduled),
		Departure: legDetail(r.Departure, mode, rng),
		Arrival:   legDetail(r.Arrival, mode, rng),
	}
}

func legDetail(leg *model.MovementInfo, mode string, rng *rand.Rand) model.MovementInfo {
	var out model.MovementInfo
	if leg != nil {
		if leg.Airport != nil {
			ap := *leg.Airport
			out.Airport = &ap
		}
		if mode == config.DetailTimesScheduled {
			out.ScheduledTimeLocal = leg.ScheduledTimeLocal
		}
	}
	if out.ScheduledTimeLocal == "" {
		out.ScheduledTimeLocal = PlaceholderTime(rng)
	}
	return out
}
