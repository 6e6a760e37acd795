package mapview

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// KML structures follow the KML 2.2 reference:
// https://developers.google.com/kml/documentation/kmlreference

type kmlRoot struct {
	XMLName   xml.Name    `xml:"kml"`
	Namespace string      `xml:"xmlns,attr"`
	Document  kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name        string         `xml:"name"`
	Description string         `xml:"description,omitempty"`
	Styles      []kmlStyle     `xml:"Style,omitempty"`
	Placemarks  []kmlPlacemark `xml:"Placemark"`
}

type kmlStyle struct {
	ID        string        `xml:"id,attr"`
	IconStyle *kmlIconStyle `xml:"IconStyle,omitempty"`
	LineStyle *kmlLineStyle `xml:"LineStyle,omitempty"`
}

type kmlIconStyle struct {
	Scale float64 `xml:"scale,omitempty"`
	Icon  kmlIcon `xml:"Icon"`
}

type kmlIcon struct {
	Href string `xml:"href"`
}

type kmlLineStyle struct {
	Color string  `xml:"color"` // aabbggrr
	Width float64 `xml:"width"`
}

type kmlPlacemark struct {
	Name         string           `xml:"name"`
	Description  string           `xml:"description,omitempty"`
	StyleURL     string           `xml:"styleUrl,omitempty"`
	Point        *kmlPoint        `xml:"Point,omitempty"`
	LineString   *kmlLineString   `xml:"LineString,omitempty"`
	ExtendedData *kmlExtendedData `xml:"ExtendedData,omitempty"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"` // lon,lat,altitude
}

type kmlLineString struct {
	Tessellate int    `xml:"tessellate"`
	Coords     string `xml:"coordinates"`
}

type kmlExtendedData struct {
	Data []kmlData `xml:"Data"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

// KML renders the model as a KML 2.2 document with one placemark per
// airport and one per route. Routes share a line style per airline colour.
func KML(m Model) ([]byte, error) {
	doc := kmlDocument{
		Name:        "Flight routes",
		Description: fmt.Sprintf("%d routes, %d airports", len(m.Routes), len(m.Markers)),
		Styles: []kmlStyle{{
			ID: "airportStyle",
			IconStyle: &kmlIconStyle{
				Scale: 0.9,
				Icon:  kmlIcon{Href: "http://maps.google.com/mapfiles/kml/shapes/airports.png"},
			},
		}},
	}

	for _, mk := range m.Markers {
		doc.Placemarks = append(doc.Placemarks, kmlPlacemark{
			Name:        mk.Code,
			Description: mk.Label,
			StyleURL:    "#airportStyle",
			Point:       &kmlPoint{Coordinates: fmt.Sprintf("%.6f,%.6f,0", mk.Position.Lon, mk.Position.Lat)},
		})
	}

	styled := make(map[string]bool)
	for _, r := range m.Routes {
		id := "route" + strings.TrimPrefix(r.Color, "#")
		if !styled[id] {
			styled[id] = true
			doc.Styles = append(doc.Styles, kmlStyle{
				ID:        id,
				LineStyle: &kmlLineStyle{Color: kmlColor(r.Color), Width: 2},
			})
		}

		p := r.Popup
		doc.Placemarks = append(doc.Placemarks, kmlPlacemark{
			Name:        r.Tooltip,
			Description: fmt.Sprintf("From: %s (%s)\nTo: %s\nDeparture: %s\nArrival: %s\nStatus: %s\nAircraft: %s", p.Origin, p.ICAOCode, p.Destination, p.Departure, p.Arrival, p.Status, p.Aircraft),
			StyleURL:    "#" + id,
			LineString: &kmlLineString{
				Tessellate: 1,
				Coords: fmt.Sprintf("%.6f,%.6f,0 %.6f,%.6f,0",
					r.From.Lon, r.From.Lat, r.To.Lon, r.To.Lat),
			},
			ExtendedData: &kmlExtendedData{Data: []kmlData{
				{Name: "flight_number", Value: p.FlightNumber},
				{Name: "airline", Value: p.Airline},
				{Name: "origin", Value: p.Origin},
				{Name: "destination", Value: p.Destination},
			}},
		})
	}

	out, err := xml.MarshalIndent(kmlRoot{Namespace: "http://www.opengis.net/kml/2.2", Document: doc}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal kml: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// kmlColor converts "#rrggbb" to KML's opaque "ffbbggrr".
func kmlColor(hex string) string {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return "ff0000ff"
	}
	return "ff" + h[4:6] + h[2:4] + h[0:2]
}
