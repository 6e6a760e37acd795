// Package summary computes daily and hourly arrival rollups and stores them.
//
// Daily rollups are historical snapshots: a row that already exists for a
// (day, airline, model) key is left untouched. Hourly rollups are a live view:
// a new count replaces the stored one.
package summary

import (
	"context"
	"log/slog"
	"time"

	"flight_tracker/internal/logger"
)

// Placeholders substituted for blank airline and aircraft model values.
const (
	UnknownAirline = "Unknown Airline"
	UnknownModel   = "Unknown Model"
)

// Row is one (bucket, airline, aircraft model) count.
type Row struct {
	Bucket        time.Time `json:"bucket"`
	Airline       string    `json:"airline"`
	AircraftModel string    `json:"aircraft_model"`
	TotalFlights  int64     `json:"total_flights"`
}

// DailyStore is the storage side of the daily rollup.
type DailyStore interface {
	DailySummary(ctx context.Context, airports []string, from, to time.Time) ([]Row, error)
	InsertDailySummary(ctx context.Context, rows []Row) error
}

// HourlyStore is the storage side of the hourly rollup.
type HourlyStore interface {
	HourlySummary(ctx context.Context, airports []string, hour int) ([]Row, error)
	UpsertHourlySummary(ctx context.Context, rows []Row) error
}

// Daily groups flights by calendar day (UTC).
type Daily struct {
	store    DailyStore
	airports []string
	log      *slog.Logger
}

// NewDaily returns a daily aggregator over flights touching airports.
func NewDaily(store DailyStore, airports []string, log *slog.Logger) *Daily {
	if log == nil {
		log = logger.Logger
	}
	return &Daily{store: store, airports: airports, log: log}
}

// Summarize counts flights with a scheduled arrival in [from, to], ordered by
// count descending, then day, airline and model ascending. Failures are logged
// and yield no rows.
func (d *Daily) Summarize(ctx context.Context, from, to time.Time) []Row {
	rows, err := d.store.DailySummary(ctx, d.airports, from, to)
	if err != nil {
		d.log.Error("daily summary query failed", "error", err)
		return nil
	}
	d.log.Info("retrieved daily summary", "rows", len(rows))
	return rows
}

// Persist inserts rows, skipping keys that are already stored.
func (d *Daily) Persist(ctx context.Context, rows []Row) {
	if len(rows) == 0 {
		return
	}
	if err := d.store.InsertDailySummary(ctx, rows); err != nil {
		d.log.Error("daily summary insert failed", "error", err)
		return
	}
	d.log.Info("inserted rows into daily_flight_summary", "rows", len(rows))
}

// Hourly groups flights by hour for one hour of the day (UTC).
type Hourly struct {
	store    HourlyStore
	airports []string
	log      *slog.Logger
}

// NewHourly returns an hourly aggregator over flights touching airports.
func NewHourly(store HourlyStore, airports []string, log *slog.Logger) *Hourly {
	if log == nil {
		log = logger.Logger
	}
	return &Hourly{store: store, airports: airports, log: log}
}

// Summarize counts flights whose scheduled arrival falls in the given hour of
// day, ordered by count descending, then airline ascending. Failures are
// logged and yield no rows.
func (h *Hourly) Summarize(ctx context.Context, hour int) []Row {
	rows, err := h.store.HourlySummary(ctx, h.airports, hour)
	if err != nil {
		h.log.Error("hourly summary query failed", "hour", hour, "error", err)
		return nil
	}
	h.log.Info("retrieved hourly summary", "hour", hour, "rows", len(rows))
	return rows
}

// Persist inserts rows, replacing the count of keys that are already stored.
func (h *Hourly) Persist(ctx context.Context, rows []Row) {
	if len(rows) == 0 {
		return
	}
	if err := h.store.UpsertHourlySummary(ctx, rows); err != nil {
		h.log.Error("failed to save hourly data", "error", err)
		return
	}
	h.log.Info("saved hourly records", "rows", len(rows))
}
