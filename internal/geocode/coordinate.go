// Package geocode resolves airport codes to coordinates through a seed table,
// a file-backed cache and a rate-limited place lookup.
package geocode

import (
	"encoding/json"
	"fmt"
)

// Coordinate is a WGS84 latitude/longitude pair. It encodes as [lat, lon].
type Coordinate struct {
	Lat float64
	Lon float64
}

// MarshalJSON implements json.Marshaler.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lon})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coordinate) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate needs 2 values, got %d", len(pair))
	}
	c.Lat, c.Lon = pair[0], pair[1]
	return nil
}

// Seed holds curated airport positions. They always win over looked-up values.
var Seed = map[string]Coordinate{
	"PEE": {56.2503, 48.0538},
	"PKV": {58.4313, 31.3155},
	"IWA": {56.8522, 60.6544},
	"KVX": {57.1902, 40.5847},
	"MSQ": {53.88, 27.55},
	"MCX": {46.2208, 48.0384},
	"LED": {59.806084, 30.3083},
	"AER": {43.4489, 39.9569},
	"SVO": {55.9726, 37.4146},
	"DME": {55.4146, 37.8994},
	"VKO": {55.6033, 37.2922},
	"IST": {41.2611, 28.7422},
	"KUF": {53.5066, 50.1644},
	"TLV": {32.0114, 34.8867},
	"VAR": {43.2321, 27.8251},
	"DUS": {51.2809, 6.7573},
	"KUT": {42.178349, 42.491012},
	"AAQ": {44.8953, 37.3194},
	"BOJ": {42.5667, 27.5},
	"BUS": {41.6103, 41.6056},
	"MAN": {53.3650, -2.2725},
	"ALA": {43.3506, 77.0275},
}
