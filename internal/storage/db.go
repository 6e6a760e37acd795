// Package storage persists flights and their rollups.
//
// PostgreSQL is the primary relational store; SQLite serves single-machine
// runs and tests. ClickHouse optionally keeps an append-only flight archive.
package storage

import (
	"context"
	"fmt"
	"time"

	"flight_tracker/internal/flight"
	"flight_tracker/internal/summary"
)

// Timestamp layout used for text columns and summary buckets.
const timeLayout = "2006-01-02 15:04:05"

// Store is the relational store used by ingestion, aggregation and the map.
type Store interface {
	CreateSchema(ctx context.Context) error

	// SaveFlights deletes rows matching the first flight's key, then inserts
	// the batch, all in one transaction.
	SaveFlights(ctx context.Context, flights []flight.Flight) error
	// RecentFlights returns flights scheduled after since, newest first.
	RecentFlights(ctx context.Context, since time.Time, limit int) ([]flight.Flight, error)

	DailySummary(ctx context.Context, airports []string, from, to time.Time) ([]summary.Row, error)
	HourlySummary(ctx context.Context, airports []string, hour int) ([]summary.Row, error)
	InsertDailySummary(ctx context.Context, rows []summary.Row) error
	UpsertHourlySummary(ctx context.Context, rows []summary.Row) error
	ListDailySummary(ctx context.Context) ([]summary.Row, error)
	ListHourlySummary(ctx context.Context) ([]summary.Row, error)

	Close() error
}

// Config selects and configures the relational store.
type Config struct {
	Driver     string // "postgres" or "sqlite".
	Postgres   PostgresConfig
	SQLitePath string
}

// Open opens the configured store and makes sure its schema exists.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "postgres", "":
		s, err = OpenPostgres(ctx, cfg.Postgres)
	case "sqlite":
		s, err = OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.CreateSchema(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}
