package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"flight_tracker/internal/geocode"
)

func point(c geocode.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FeatureCollection converts the model into GeoJSON features: a LineString
// per route and a Point per airport marker.
func FeatureCollection(m Model) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, r := range m.Routes {
		f := geojson.NewFeature(orb.LineString{point(r.From), point(r.To)})
		f.Properties["kind"] = "route"
		f.Properties["color"] = r.Color
		f.Properties["tooltip"] = r.Tooltip
		f.Properties["flight_number"] = r.Popup.FlightNumber
		f.Properties["airline"] = r.Popup.Airline
		f.Properties["origin"] = r.Popup.Origin
		f.Properties["icao_code"] = r.Popup.ICAOCode
		f.Properties["destination"] = r.Popup.Destination
		f.Properties["departure"] = r.Popup.Departure
		f.Properties["arrival"] = r.Popup.Arrival
		f.Properties["status"] = r.Popup.Status
		f.Properties["aircraft"] = r.Popup.Aircraft
		fc.Append(f)
	}

	for _, mk := range m.Markers {
		f := geojson.NewFeature(point(mk.Position))
		f.Properties["kind"] = "airport"
		f.Properties["code"] = mk.Code
		f.Properties["label"] = mk.Label
		fc.Append(f)
	}

	return fc
}

// GeoJSON encodes the model as a GeoJSON FeatureCollection.
func GeoJSON(m Model) ([]byte, error) {
	return FeatureCollection(m).MarshalJSON()
}
