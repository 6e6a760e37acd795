package mapview

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var routeHeader = []string{
	"flight_number", "airline", "origin", "destination", "departure", "arrival",
	"status", "aircraft", "color", "from_lat", "from_lon", "to_lat", "to_lon",
}

// WriteRoutesCSV writes one CSV row per route, with a header.
func WriteRoutesCSV(w io.Writer, m Model) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(routeHeader); err != nil {
		return err
	}
	for _, r := range m.Routes {
		p := r.Popup
		row := []string{
			p.FlightNumber, p.Airline, p.Origin, p.Destination, p.Departure, p.Arrival,
			p.Status, p.Aircraft, r.Color,
			formatFloat(r.From.Lat), formatFloat(r.From.Lon),
			formatFloat(r.To.Lat), formatFloat(r.To.Lon),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write route %s: %w", p.FlightNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteMissing writes the unresolved airport codes, one per line.
func WriteMissing(path string, codes []string) error {
	if err := os.WriteFile(path, []byte(strings.Join(codes, "\n")), 0o644); err != nil {
		return fmt.Errorf("write missing airports: %w", err)
	}
	return nil
}

