package mapview

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"flight_tracker/internal/flight"
	"flight_tracker/internal/geocode"
	"flight_tracker/internal/logger"
)

// Resolver finds coordinates for an IATA code.
type Resolver interface {
	Resolve(ctx context.Context, code string) (geocode.Coordinate, bool)
}

// Builder assembles map models.
type Builder struct {
	resolver Resolver
	log      *slog.Logger
}

// NewBuilder returns a Builder that looks airports up through r.
func NewBuilder(r Resolver, log *slog.Logger) *Builder {
	if log == nil {
		log = logger.Logger
	}
	return &Builder{resolver: r, log: log}
}

type resolution struct {
	coord geocode.Coordinate
	ok    bool
}

// Build produces the model for flights, which are expected newest first.
// The map is centred on the first flight's origin when it resolves.
func (b *Builder) Build(ctx context.Context, flights []flight.Flight) Model {
	m := Empty()
	if len(flights) == 0 {
		b.log.Warn("no flight data found")
		return m
	}

	// Each code is resolved at most once per build, so an unresolvable code
	// costs one round of geocoder queries rather than one per flight.
	seen := make(map[string]resolution)
	resolve := func(code string) (geocode.Coordinate, bool) {
		if r, ok := seen[code]; ok {
			return r.coord, r.ok
		}
		c, ok := b.resolver.Resolve(ctx, code)
		seen[code] = resolution{coord: c, ok: ok}
		return c, ok
	}

	if c, ok := resolve(flights[0].Origin); ok {
		m.Center = c
	}

	missing := make(map[string]struct{})
	for _, f := range flights {
		from, okFrom := resolve(f.Origin)
		to, okTo := resolve(f.Destination)
		if !okFrom {
			missing[f.Origin] = struct{}{}
		}
		if !okTo {
			missing[f.Destination] = struct{}{}
		}
		if !okFrom || !okTo {
			continue
		}
		m.Routes = append(m.Routes, newRoute(f, from, to))
	}

	m.Markers = b.markers(flights, resolve)
	m.Legend = legend(flights)

	for code := range missing {
		m.Missing = append(m.Missing, code)
	}
	sort.Strings(m.Missing)

	b.log.Info("built map model", "flights", len(flights), "routes", len(m.Routes),
		"markers", len(m.Markers), "missing", len(m.Missing))
	return m
}

func newRoute(f flight.Flight, from, to geocode.Coordinate) Route {
	var departure string
	if f.ScheduledDeparture != nil {
		departure = f.ScheduledDeparture.Format(timeFormat)
	}
	return Route{
		From:    from,
		To:      to,
		Color:   Color(f.Airline),
		Tooltip: fmt.Sprintf("%s (%s)", f.FlightNumber, f.Airline),
		Popup: Popup{
			FlightNumber: f.FlightNumber,
			Airline:      f.Airline,
			Origin:       f.Origin,
			ICAOCode:     f.ICAOCode,
			Destination:  f.Destination,
			Departure:    departure,
			Arrival:      f.ScheduledTime.Format(timeFormat),
			Status:       f.Status,
			Aircraft:     f.AircraftModel,
		},
	}
}

func (b *Builder) markers(flights []flight.Flight, resolve func(string) (geocode.Coordinate, bool)) []Marker {
	codes := make(map[string]struct{})
	for _, f := range flights {
		codes[f.Origin] = struct{}{}
		codes[f.Destination] = struct{}{}
	}
	sorted := make([]string, 0, len(codes))
	for c := range codes {
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)

	out := []Marker{}
	for _, code := range sorted {
		c, ok := resolve(code)
		if !ok {
			continue
		}
		out = append(out, Marker{Code: code, Position: c, Label: "Airport: " + code})
	}
	return out
}

func legend(flights []flight.Flight) []LegendGroup {
	type key struct{ airline, model string }
	// Repeated flight numbers are listed once per flight.
	numbers := make(map[key][]string)
	for _, f := range flights {
		model := f.AircraftModel
		if model == "" {
			model = flight.UnknownAircraft
		}
		k := key{f.Airline, model}
		if f.FlightNumber != "" {
			numbers[k] = append(numbers[k], f.FlightNumber)
		}
	}

	keys := make([]key, 0, len(numbers))
	for k := range numbers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].airline != keys[j].airline {
			return keys[i].airline < keys[j].airline
		}
		return keys[i].model < keys[j].model
	})

	out := []LegendGroup{}
	for _, k := range keys {
		list := numbers[k]
		sort.Strings(list)

		if len(out) == 0 || out[len(out)-1].Airline != k.airline {
			out = append(out, LegendGroup{Airline: k.airline, Color: Color(k.airline)})
		}
		g := &out[len(out)-1]
		g.Models = append(g.Models, LegendEntry{Model: k.model, Flights: list})
	}
	return out
}
