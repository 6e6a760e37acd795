// Package mapview turns stored flights into a route map model and exports it.
//
// The model is renderer-agnostic: routes between resolved airports, one
// marker per airport, and a legend of flight numbers grouped by airline and
// aircraft model. Codes that could not be resolved are reported in Missing.
package mapview

import (
	"crypto/md5"
	"encoding/hex"

	"flight_tracker/internal/geocode"
)

// Map defaults used when nothing better is known.
var DefaultCenter = geocode.Coordinate{Lat: 55, Lon: 37}

const (
	DefaultZoom = 5

	timeFormat = "2006-01-02 15:04"
)

// Route is a line between two resolved airports for one flight.
type Route struct {
	From    geocode.Coordinate `json:"from"`
	To      geocode.Coordinate `json:"to"`
	Color   string             `json:"color"`
	Tooltip string             `json:"tooltip"`
	Popup   Popup              `json:"popup"`
}

// Popup is the detail payload shown for a route.
type Popup struct {
	FlightNumber string `json:"flight_number"`
	Airline      string `json:"airline"`
	Origin       string `json:"origin"`
	ICAOCode     string `json:"icao_code"`
	Destination  string `json:"destination"`
	Departure    string `json:"departure"` // Empty when unknown.
	Arrival      string `json:"arrival"`
	Status       string `json:"status"`
	Aircraft     string `json:"aircraft"`
}

// Marker is one airport on the map.
type Marker struct {
	Code     string             `json:"code"`
	Position geocode.Coordinate `json:"position"`
	Label    string             `json:"label"`
}

// LegendGroup lists the flights of one airline, per aircraft model.
type LegendGroup struct {
	Airline string        `json:"airline"`
	Color   string        `json:"color"`
	Models  []LegendEntry `json:"models"`
}

// LegendEntry holds the sorted flight numbers flown with one aircraft model.
type LegendEntry struct {
	Model   string   `json:"model"`
	Flights []string `json:"flights"`
}

// Model is everything a renderer needs to draw the map.
type Model struct {
	Center  geocode.Coordinate `json:"center"`
	Zoom    int                `json:"zoom"`
	Routes  []Route            `json:"routes"`
	Markers []Marker           `json:"markers"`
	Legend  []LegendGroup      `json:"legend"`
	Missing []string           `json:"missing"`
}

// Empty returns a model with no features.
func Empty() Model {
	return Model{
		Center:  DefaultCenter,
		Zoom:    DefaultZoom,
		Routes:  []Route{},
		Markers: []Marker{},
		Legend:  []LegendGroup{},
		Missing: []string{},
	}
}

// Color maps an airline name to a stable "#rrggbb" colour.
func Color(airline string) string {
	sum := md5.Sum([]byte(airline))
	return "#" + hex.EncodeToString(sum[:])[:6]
}
