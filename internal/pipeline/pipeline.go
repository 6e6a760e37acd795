// Package pipeline drives a full run: fetch and store arrivals for every
// tracked airport, then roll them up into daily and hourly summaries. It
// also loads recent flights for the route map.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"flight_tracker/internal/events"
	"flight_tracker/internal/flight"
	"flight_tracker/internal/fr24"
	"flight_tracker/internal/logger"
	"flight_tracker/internal/mapview"
	"flight_tracker/internal/summary"
)

// Fetcher returns raw schedule entries for an airport.
type Fetcher interface {
	Arrivals(ctx context.Context, airport string) ([]any, error)
}

// Persister stores one normalized batch and reports success.
type Persister interface {
	Persist(ctx context.Context, flights []flight.Flight) bool
}

// DailyAggregator computes and stores daily rollups.
type DailyAggregator interface {
	Summarize(ctx context.Context, from, to time.Time) []summary.Row
	Persist(ctx context.Context, rows []summary.Row)
}

// HourlyAggregator computes and stores hourly rollups.
type HourlyAggregator interface {
	Summarize(ctx context.Context, hour int) []summary.Row
	Persist(ctx context.Context, rows []summary.Row)
}

// FlightLoader reads stored flights, newest first.
type FlightLoader interface {
	RecentFlights(ctx context.Context, since time.Time, limit int) ([]flight.Flight, error)
}

// MapBuilder turns flights into a map model.
type MapBuilder interface {
	Build(ctx context.Context, flights []flight.Flight) mapview.Model
}

// Archiver keeps an append-only copy of each stored batch.
type Archiver interface {
	ArchiveFlights(ctx context.Context, runID, airport string, flights []flight.Flight) error
}

// Notifier announces stored batches.
type Notifier interface {
	Publish(e events.BatchIngested) error
}

// Deps are the collaborators of a Driver. Archiver and Notifier are optional.
type Deps struct {
	Fetcher   Fetcher
	Persister Persister
	Daily     DailyAggregator
	Hourly    HourlyAggregator
	Flights   FlightLoader
	Map       MapBuilder
	Archiver  Archiver
	Notifier  Notifier
}

// Options tune a Driver.
type Options struct {
	Airports      []string
	MapLookback   time.Duration
	MapMaxFlights int
	Logger        *slog.Logger
	Now           func() time.Time
}

// Window selects what a run aggregates: the days [From, To] and one hour of day.
type Window struct {
	From time.Time
	To   time.Time
	Hour int
}

// Validate checks the hour of day.
func (w Window) Validate() error {
	if w.Hour < 0 || w.Hour > 23 {
		return errors.New("hour must be between 0 and 23")
	}
	return nil
}

// AirportResult is the outcome for one airport.
type AirportResult struct {
	Airport string `json:"airport"`
	OK      bool   `json:"ok"`
	Stored  int    `json:"stored"`
}

// Report summarises a run.
type Report struct {
	RunID         string          `json:"run_id"`
	StartedAt     time.Time       `json:"started_at"`
	Airports      []AirportResult `json:"airports"`
	FlightsStored int             `json:"flights_stored"`
	DailyRows     []summary.Row   `json:"daily_rows"`
	HourlyRows    []summary.Row   `json:"hourly_rows"`
}

// Succeeded returns the number of airports whose batch was stored.
func (r Report) Succeeded() int {
	n := 0
	for _, a := range r.Airports {
		if a.OK {
			n++
		}
	}
	return n
}

// Driver runs the pipeline. Airports are processed one after another.
type Driver struct {
	deps Deps
	opts Options
	log  *slog.Logger
}

// New returns a Driver.
func New(deps Deps, opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = logger.Logger
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MapLookback <= 0 {
		opts.MapLookback = 7 * 24 * time.Hour
	}
	if opts.MapMaxFlights <= 0 {
		opts.MapMaxFlights = 1000
	}
	return &Driver{deps: deps, opts: opts, log: opts.Logger}
}

// ProcessAirport fetches, normalizes and stores the arrivals of one airport.
// It returns false when there was nothing to store or storing failed.
func (d *Driver) ProcessAirport(ctx context.Context, airport string) bool {
	_, ok := d.processAirport(ctx, uuid.NewString(), airport)
	return ok
}

func (d *Driver) processAirport(ctx context.Context, runID, airport string) (int, bool) {
	log := d.log.With("airport", airport)
	log.Info("processing airport")

	raw, err := d.deps.Fetcher.Arrivals(ctx, airport)
	switch {
	case errors.Is(err, fr24.ErrNoSchedule):
		log.Warn("no flights data")
		return 0, false
	case err != nil:
		log.Error("request failed", "error", err)
		return 0, false
	}

	flights := make([]flight.Flight, 0, len(raw))
	for _, r := range raw {
		f, err := flight.Normalize(r, airport)
		if err != nil {
			log.Error("flight parsing error", "error", err)
			continue
		}
		flights = append(flights, f)
	}
	if len(flights) == 0 {
		log.Warn("no valid flights found")
		return 0, false
	}

	if !d.deps.Persister.Persist(ctx, flights) {
		return 0, false
	}

	d.sideChannels(ctx, runID, airport, flights)
	return len(flights), true
}

// sideChannels archives and announces a stored batch. Failures are logged only.
func (d *Driver) sideChannels(ctx context.Context, runID, airport string, flights []flight.Flight) {
	if d.deps.Archiver != nil {
		if err := d.deps.Archiver.ArchiveFlights(ctx, runID, airport, flights); err != nil {
			d.log.Warn("archive batch failed", "airport", airport, "error", err)
		}
	}
	if d.deps.Notifier != nil {
		e := events.BatchIngested{
			RunID:      runID,
			Airport:    airport,
			Flights:    len(flights),
			IngestedAt: d.opts.Now().UTC(),
		}
		if err := d.deps.Notifier.Publish(e); err != nil {
			d.log.Warn("publish event failed", "airport", airport, "error", err)
		}
	}
}

// Run processes every airport, then computes and stores both rollups.
func (d *Driver) Run(ctx context.Context, w Window) (Report, error) {
	if err := w.Validate(); err != nil {
		return Report{}, err
	}

	rep := Report{RunID: uuid.NewString(), StartedAt: d.opts.Now().UTC()}
	log := d.log.With("run_id", rep.RunID)
	log.Info("starting run", "airports", len(d.opts.Airports), "from", w.From, "to", w.To, "hour", w.Hour)

	for _, code := range d.opts.Airports {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		n, ok := d.processAirport(ctx, rep.RunID, code)
		rep.Airports = append(rep.Airports, AirportResult{Airport: code, OK: ok, Stored: n})
		rep.FlightsStored += n
	}

	rep.DailyRows = d.deps.Daily.Summarize(ctx, w.From, w.To)
	rep.HourlyRows = d.deps.Hourly.Summarize(ctx, w.Hour)
	d.deps.Daily.Persist(ctx, rep.DailyRows)
	d.deps.Hourly.Persist(ctx, rep.HourlyRows)

	log.Info("run finished", "stored", rep.FlightsStored,
		"succeeded", rep.Succeeded(), "daily_rows", len(rep.DailyRows), "hourly_rows", len(rep.HourlyRows))
	return rep, nil
}

// BuildMap loads flights scheduled within the lookback window and builds the
// route map from them. A load failure is returned to the caller.
func (d *Driver) BuildMap(ctx context.Context) (mapview.Model, error) {
	since := d.opts.Now().Add(-d.opts.MapLookback)
	flights, err := d.deps.Flights.RecentFlights(ctx, since, d.opts.MapMaxFlights)
	if err != nil {
		d.log.Error("database error", "error", err)
		return mapview.Model{}, fmt.Errorf("load flights: %w", err)
	}
	return d.deps.Map.Build(ctx, flights), nil
}
