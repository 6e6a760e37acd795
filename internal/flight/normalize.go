package flight

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformed marks a raw record that cannot be turned into a Flight.
// Callers skip the record and keep going with the rest of the batch.
var ErrMalformed = errors.New("malformed schedule record")

// Paths into a Flightradar24 airport schedule entry.
var (
	pathArrival      = []string{"flight", "time", "scheduled", "arrival"}
	pathDeparture    = []string{"flight", "time", "scheduled", "departure"}
	pathOriginIATA   = []string{"flight", "airport", "origin", "code", "iata"}
	pathOriginICAO   = []string{"flight", "airport", "origin", "code", "icao"}
	pathModel        = []string{"flight", "aircraft", "model"}
	pathFlightNumber = []string{"flight", "identification", "number", "default"}
	pathAirline      = []string{"flight", "airline", "name"}
	pathStatus       = []string{"flight", "status", "text"}
)

// Normalize maps one raw schedule entry fetched for airport into a Flight.
//
// Missing fields take their documented defaults. A missing or zero arrival
// timestamp becomes the unix epoch; the departure is nil only when its
// timestamp is missing, null or zero.
func Normalize(raw any, airport string) (Flight, error) {
	arrival, ok := Epoch(raw, pathArrival...)
	if !ok {
		return Flight{}, fmt.Errorf("%w: arrival timestamp is not numeric", ErrMalformed)
	}
	departure, err := departureEpoch(raw)
	if err != nil {
		return Flight{}, err
	}

	model, ok := Object(raw, map[string]any{}, pathModel...)
	if !ok {
		return Flight{}, fmt.Errorf("%w: aircraft model is not an object", ErrMalformed)
	}

	f := Flight{
		FlightNumber:  String(raw, UnknownFlightNumber, pathFlightNumber...),
		Airline:       String(raw, UnknownAirline, pathAirline...),
		Origin:        String(raw, UnknownOrigin, pathOriginIATA...),
		Destination:   airport,
		ScheduledTime: time.Unix(arrival, 0).UTC(),
		Status:        String(raw, UnknownStatus, pathStatus...),
		AircraftModel: aircraftModel(model),
		ICAOCode:      String(raw, UnknownICAO, pathOriginICAO...),
	}
	if departure != 0 {
		t := time.Unix(departure, 0).UTC()
		f.ScheduledDeparture = &t
	}
	return f, nil
}

// departureEpoch reads the departure timestamp. Unlike the arrival, a null
// departure is accepted and reads as 0.
func departureEpoch(raw any) (int64, error) {
	if v, found := Lookup(raw, pathDeparture...); found && v == nil {
		return 0, nil
	}
	ts, ok := Epoch(raw, pathDeparture...)
	if !ok {
		return 0, fmt.Errorf("%w: departure timestamp is not numeric", ErrMalformed)
	}
	return ts, nil
}

// aircraftModel prefers the readable model name, then the type code.
func aircraftModel(model map[string]any) string {
	if s := String(model, "", "text"); s != "" {
		return s
	}
	if s := String(model, "", "code"); s != "" {
		return s
	}
	return UnknownAircraft
}
