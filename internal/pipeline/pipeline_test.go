package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight_tracker/internal/events"
	"flight_tracker/internal/flight"
	"flight_tracker/internal/fr24"
	"flight_tracker/internal/geocode"
	"flight_tracker/internal/ingest"
	"flight_tracker/internal/logger"
	"flight_tracker/internal/mapview"
	"flight_tracker/internal/storage"
	"flight_tracker/internal/summary"
)

// fakeFetcher serves canned schedules per airport.
type fakeFetcher struct {
	data map[string][]any
	errs map[string]error
}

func (f *fakeFetcher) Arrivals(_ context.Context, airport string) ([]any, error) {
	if err := f.errs[airport]; err != nil {
		return nil, err
	}
	if d, ok := f.data[airport]; ok {
		return d, nil
	}
	return nil, fr24.ErrNoSchedule
}

type recordingArchiver struct {
	runIDs   []string
	airports []string
	err      error
}

func (r *recordingArchiver) ArchiveFlights(_ context.Context, runID, airport string, _ []flight.Flight) error {
	r.runIDs = append(r.runIDs, runID)
	r.airports = append(r.airports, airport)
	return r.err
}

type recordingNotifier struct {
	events []events.BatchIngested
}

func (r *recordingNotifier) Publish(e events.BatchIngested) error {
	r.events = append(r.events, e)
	return errors.New("no responders")
}

func entry(number, airline, model, origin string, arrival int64) any {
	return map[string]any{
		"flight": map[string]any{
			"identification": map[string]any{"number": map[string]any{"default": number}},
			"airline":        map[string]any{"name": airline},
			"aircraft":       map[string]any{"model": map[string]any{"text": model}},
			"status":         map[string]any{"text": "Scheduled"},
			"airport": map[string]any{
				"origin": map[string]any{"code": map[string]any{"iata": origin, "icao": "U" + origin}},
			},
			"time": map[string]any{
				"scheduled": map[string]any{
					"arrival":   float64(arrival),
					"departure": float64(arrival - 7200),
				},
			},
		},
	}
}

// 2024-05-01 14:00:00 UTC
const base = int64(1714572000)

type harness struct {
	store    storage.Store
	driver   *Driver
	archiver *recordingArchiver
	notifier *recordingNotifier
}

func newHarness(t *testing.T, fetch *fakeFetcher, airports []string) *harness {
	t.Helper()
	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Config{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := logger.Discard()
	cache := geocode.NewCache("", nil, geocode.WithLogger(log))
	h := &harness{store: store, archiver: &recordingArchiver{}, notifier: &recordingNotifier{}}
	h.driver = New(Deps{
		Fetcher:   fetch,
		Persister: ingest.New(store, log),
		Daily:     summary.NewDaily(store, airports, log),
		Hourly:    summary.NewHourly(store, airports, log),
		Flights:   store,
		Map:       mapview.NewBuilder(cache, log),
		Archiver:  h.archiver,
		Notifier:  h.notifier,
	}, Options{
		Airports: airports,
		Logger:   log,
		Now:      func() time.Time { return time.Unix(base, 0).Add(time.Hour) },
	})
	return h
}

func TestProcessAirport(t *testing.T) {
	fetch := &fakeFetcher{
		data: map[string][]any{
			"AER": {entry("SU1120", "Aeroflot", "Airbus A320", "SVO", base)},
		},
		errs: map[string]error{"SIP": errors.New("connection reset")},
	}
	h := newHarness(t, fetch, []string{"AER"})
	ctx := context.Background()

	assert.True(t, h.driver.ProcessAirport(ctx, "AER"))
	assert.False(t, h.driver.ProcessAirport(ctx, "AAQ"), "no schedule")
	assert.False(t, h.driver.ProcessAirport(ctx, "SIP"), "request failure")

	got, err := h.store.RecentFlights(ctx, time.Unix(0, 0), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SU1120", got[0].FlightNumber)
	assert.Equal(t, "AER", got[0].Destination)
	assert.Equal(t, "USVO", got[0].ICAOCode)
	assert.Equal(t, []string{"AER"}, h.archiver.airports)
}

func TestProcessAirport_OnlyMalformedRecords(t *testing.T) {
	fetch := &fakeFetcher{data: map[string][]any{
		"GDZ": {map[string]any{"flight": map[string]any{"time": map[string]any{"scheduled": map[string]any{"arrival": "soon"}}}}},
	}}
	h := newHarness(t, fetch, []string{"GDZ"})

	assert.False(t, h.driver.ProcessAirport(context.Background(), "GDZ"))
	assert.Empty(t, h.archiver.airports)
}

func TestRun(t *testing.T) {
	fetch := &fakeFetcher{data: map[string][]any{
		"AER": {
			entry("SU1120", "Aeroflot", "Airbus A320", "SVO", base),
			entry("SU1122", "Aeroflot", "Airbus A320", "SVO", base+1800),
			entry("DP101", "Pobeda", "Boeing 737-800", "VKO", base+600),
		},
		"KUT": {
			entry("A4201", "Azimuth", "Sukhoi Superjet 100", "MRV", base+86400),
		},
	}}
	airports := []string{"AER", "GDZ", "KUT"}
	h := newHarness(t, fetch, airports)
	ctx := context.Background()

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rep, err := h.driver.Run(ctx, Window{From: day, To: day.AddDate(0, 0, 2), Hour: 14})
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 4, rep.FlightsStored)
	assert.Equal(t, 2, rep.Succeeded())
	assert.Equal(t, []AirportResult{
		{Airport: "AER", OK: true, Stored: 3},
		{Airport: "GDZ", OK: false},
		{Airport: "KUT", OK: true, Stored: 1},
	}, rep.Airports)

	require.Len(t, rep.DailyRows, 3)
	assert.Equal(t, summary.Row{Bucket: day, Airline: "Aeroflot", AircraftModel: "Airbus A320", TotalFlights: 2}, rep.DailyRows[0])

	assert.Equal(t, []summary.Row{
		{Bucket: day.Add(14 * time.Hour), Airline: "Aeroflot", AircraftModel: "Airbus A320", TotalFlights: 2},
		{Bucket: day.Add(38 * time.Hour), Airline: "Azimuth", AircraftModel: "Sukhoi Superjet 100", TotalFlights: 1},
		{Bucket: day.Add(14 * time.Hour), Airline: "Pobeda", AircraftModel: "Boeing 737-800", TotalFlights: 1},
	}, rep.HourlyRows)

	stored, err := h.store.ListDailySummary(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	stored, err = h.store.ListHourlySummary(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	// Side channels see the run's ID; their failures do not fail the airport.
	assert.Equal(t, []string{rep.RunID, rep.RunID}, h.archiver.runIDs)
	require.Len(t, h.notifier.events, 2)
	assert.Equal(t, "KUT", h.notifier.events[1].Airport)
	assert.Equal(t, 1, h.notifier.events[1].Flights)
}

func TestRun_InvalidHour(t *testing.T) {
	h := newHarness(t, &fakeFetcher{}, []string{"AER"})
	_, err := h.driver.Run(context.Background(), Window{Hour: 24})
	assert.EqualError(t, err, "hour must be between 0 and 23")
}

func TestRun_ArchiveFailureIsNotFatal(t *testing.T) {
	fetch := &fakeFetcher{data: map[string][]any{"AER": {entry("SU1", "Aeroflot", "A320", "SVO", base)}}}
	h := newHarness(t, fetch, []string{"AER"})
	h.archiver.err = errors.New("clickhouse down")

	rep, err := h.driver.Run(context.Background(), Window{Hour: 14})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Succeeded())
}

func TestBuildMap(t *testing.T) {
	fetch := &fakeFetcher{data: map[string][]any{
		"AER": {
			entry("SU1120", "Aeroflot", "Airbus A320", "SVO", base),
			entry("ZZ1", "Nowhere Air", "An-24", "QQQ", base-60),
		},
	}}
	h := newHarness(t, fetch, []string{"AER"})
	ctx := context.Background()
	require.True(t, h.driver.ProcessAirport(ctx, "AER"))

	m, err := h.driver.BuildMap(ctx)
	require.NoError(t, err)
	require.Len(t, m.Routes, 1)
	assert.Equal(t, "SU1120 (Aeroflot)", m.Routes[0].Tooltip)
	assert.Equal(t, []string{"QQQ"}, m.Missing)
	assert.Equal(t, geocode.Seed["SVO"], m.Center)
}

type brokenLoader struct{}

func (brokenLoader) RecentFlights(context.Context, time.Time, int) ([]flight.Flight, error) {
	return nil, errors.New("relation \"flights\" does not exist")
}

func TestBuildMap_LoadFailure(t *testing.T) {
	d := New(Deps{Flights: brokenLoader{}}, Options{Logger: logger.Discard()})
	_, err := d.BuildMap(context.Background())
	assert.Error(t, err)
}
