package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"flight_tracker/internal/flight"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Addr     string // host:port
	Database string
	User     string
	Password string
}

// ClickHouseDB keeps an append-only history of every ingested flight batch.
// Unlike the relational store it never deletes, so repeated runs are visible.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the archive table.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	err := d.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS flight_history (
			run_id              String,
			airport             LowCardinality(String),
			flight_number       String,
			airline             LowCardinality(String),
			origin              LowCardinality(String),
			destination         LowCardinality(String),
			scheduled_time      DateTime('UTC'),
			scheduled_departure Nullable(DateTime('UTC')),
			status              LowCardinality(String),
			aircraft_model      LowCardinality(String),
			icao_code           LowCardinality(String),
			recorded_at         DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(scheduled_time)
		ORDER BY (destination, scheduled_time, flight_number)`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// ArchiveFlights appends one ingested batch under the given run ID.
func (d *ClickHouseDB) ArchiveFlights(ctx context.Context, runID, airport string, flights []flight.Flight) error {
	if len(flights) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO flight_history (run_id, airport, flight_number, airline, origin, destination,
			scheduled_time, scheduled_departure, status, aircraft_model, icao_code)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, f := range flights {
		err := batch.Append(runID, airport, f.FlightNumber, f.Airline, f.Origin, f.Destination,
			f.ScheduledTime, f.ScheduledDeparture, f.Status, f.AircraftModel, f.ICAOCode)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// CountByDestination returns archived flight counts grouped by destination.
func (d *ClickHouseDB) CountByDestination(ctx context.Context) (map[string]uint64, error) {
	counts := make(map[string]uint64)
	rows, err := d.conn.Query(ctx, "SELECT destination, count() FROM flight_history GROUP BY destination")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var dest string
		var count uint64
		if err := rows.Scan(&dest, &count); err != nil {
			return nil, fmt.Errorf("scan count by destination: %w", err)
		}
		counts[dest] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count by destination: %w", err)
	}
	return counts, nil
}
