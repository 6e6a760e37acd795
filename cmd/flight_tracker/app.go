package main

import (
	"context"
	"fmt"
	"time"

	"flight_tracker/internal/config"
	"flight_tracker/internal/events"
	"flight_tracker/internal/fr24"
	"flight_tracker/internal/geocode"
	"flight_tracker/internal/ingest"
	"flight_tracker/internal/logger"
	"flight_tracker/internal/mapview"
	"flight_tracker/internal/pipeline"
	"flight_tracker/internal/storage"
	"flight_tracker/internal/summary"
)

const dateLayout = "2006-01-02"

// app holds the wired collaborators of one command invocation.
type app struct {
	cfg     *config.Config
	store   storage.Store
	archive *storage.ClickHouseDB
	events  *events.Publisher
	driver  *pipeline.Driver
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	return storage.Open(ctx, storage.Config{
		Driver: cfg.StoreDriver,
		Postgres: storage.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
		},
		SQLitePath: cfg.SQLitePath,
	})
}

func openArchive(ctx context.Context, cfg *config.Config) *storage.ClickHouseDB {
	if cfg.ClickHouseAddr == "" {
		return nil
	}
	ch, err := storage.OpenClickHouse(ctx, storage.ClickHouseConfig{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		User:     cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
	})
	if err != nil {
		logger.Warn("flight archive disabled", "error", err)
		return nil
	}
	if err := ch.CreateSchema(ctx); err != nil {
		logger.Warn("flight archive disabled", "error", err)
		_ = ch.Close()
		return nil
	}
	return ch
}

func newCache(cfg *config.Config) *geocode.Cache {
	nominatim := geocode.NewNominatim(cfg.GeocodeUserAgent, cfg.GeocodeTimeout)
	geo := geocode.NewRateLimited(nominatim, cfg.GeocodeMinDelay, cfg.GeocodeMaxRetries, cfg.GeocodeErrorWait)
	return geocode.NewCache(cfg.CoordsCacheFile, geo)
}

// newApp opens the store and optional side channels and wires the driver.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{cfg: cfg, store: store, archive: openArchive(ctx, cfg)}
	if cfg.NATSURL != "" {
		if a.events, err = events.Connect(cfg.NATSURL); err != nil {
			logger.Warn("ingestion events disabled", "error", err)
		}
	}

	log := logger.Logger
	deps := pipeline.Deps{
		Fetcher:   fr24.NewClient(cfg.FR24Limit, cfg.FR24Timeout),
		Persister: ingest.New(store, log),
		Daily:     summary.NewDaily(store, cfg.Airports, log),
		Hourly:    summary.NewHourly(store, cfg.Airports, log),
		Flights:   store,
		Map:       mapview.NewBuilder(newCache(cfg), log),
	}
	if a.archive != nil {
		deps.Archiver = a.archive
	}
	if a.events != nil {
		deps.Notifier = a.events
	}

	a.driver = pipeline.New(deps, pipeline.Options{
		Airports:      cfg.Airports,
		MapLookback:   cfg.MapLookback,
		MapMaxFlights: cfg.MapMaxFlights,
		Logger:        log,
	})
	return a, nil
}

func (a *app) Close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			logger.Warn("close nats", "error", err)
		}
	}
	if a.archive != nil {
		_ = a.archive.Close()
	}
	_ = a.store.Close()
}

func parseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// window validates ingest arguments the same way for flags and the menu.
func window(from, to string, hour int) (pipeline.Window, error) {
	w := pipeline.Window{Hour: hour}
	if err := w.Validate(); err != nil {
		return w, err
	}
	var err error
	if w.From, err = parseDay(from); err != nil {
		return w, err
	}
	if w.To, err = parseDay(to); err != nil {
		return w, err
	}
	if w.To.Before(w.From) {
		return w, fmt.Errorf("end date %s is before start date %s", to, from)
	}
	// The end day is inclusive; the store compares with BETWEEN.
	w.To = w.To.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return w, nil
}
