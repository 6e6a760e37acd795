// Package flight holds the canonical scheduled-arrival record and the
// normaliser that builds it from raw Flightradar24 schedule entries.
package flight

import (
	"time"
)

// Defaults used when a raw schedule record omits a field.
const (
	UnknownFlightNumber = "UNKNOWN"
	UnknownAirline      = "Unknown"
	UnknownOrigin       = "XXX"
	UnknownStatus       = "Unknown"
	UnknownAircraft     = "Unknown"
	UnknownICAO         = "N/A"
)

// Flight is one scheduled arrival at a tracked airport.
type Flight struct {
	FlightNumber       string     `json:"flight_number"`
	Airline            string     `json:"airline"`
	Origin             string     `json:"origin"`      // IATA code of the departure airport.
	Destination        string     `json:"destination"` // IATA code of the airport that was queried.
	ScheduledTime      time.Time  `json:"scheduled_time"`
	ScheduledDeparture *time.Time `json:"scheduled_departure,omitempty"`
	Status             string     `json:"status"`
	AircraftModel      string     `json:"aircraft_model"`
	ICAOCode           string     `json:"icao_code"` // ICAO code of the origin airport.
}

// Key identifies a flight within one ingestion batch.
type Key struct {
	FlightNumber  string
	ScheduledTime time.Time
}

// Key returns the (flight number, scheduled arrival) pair of f.
func (f Flight) Key() Key {
	return Key{FlightNumber: f.FlightNumber, ScheduledTime: f.ScheduledTime}
}
