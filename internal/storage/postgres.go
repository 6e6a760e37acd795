package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flight_tracker/internal/flight"
	"flight_tracker/internal/summary"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB wraps a PostgreSQL connection pool.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	-- Raw scheduled arrivals
	CREATE TABLE IF NOT EXISTS flights (
		id                  BIGSERIAL PRIMARY KEY,
		flight_number       TEXT,
		airline             TEXT,
		origin              TEXT,
		destination         TEXT,
		scheduled_time      TIMESTAMPTZ NOT NULL,
		scheduled_departure TIMESTAMPTZ,
		status              TEXT,
		aircraft_model      TEXT,
		icao_code           TEXT,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_flights_key ON flights(flight_number, scheduled_time);
	CREATE INDEX IF NOT EXISTS idx_flights_scheduled ON flights(scheduled_time);

	-- Daily rollup, insert-only
	CREATE TABLE IF NOT EXISTS daily_flight_summary (
		flight_day      TIMESTAMP NOT NULL,
		airline         TEXT NOT NULL,
		aircraft_model  TEXT NOT NULL,
		total_flights   INTEGER NOT NULL,
		UNIQUE (flight_day, airline, aircraft_model)
	);

	-- Hourly rollup, upserted
	CREATE TABLE IF NOT EXISTS hourly_flight_summary (
		flight_hour     TIMESTAMP NOT NULL,
		airline         TEXT NOT NULL,
		aircraft_model  TEXT NOT NULL,
		total_flights   INTEGER NOT NULL,
		UNIQUE (flight_hour, airline, aircraft_model)
	);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

var flightColumns = []string{
	"flight_number", "airline", "origin", "destination", "scheduled_time",
	"scheduled_departure", "status", "aircraft_model", "icao_code",
}

// SaveFlights implements Store.
func (d *PostgresDB) SaveFlights(ctx context.Context, flights []flight.Flight) error {
	if len(flights) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	first := flights[0]
	if _, err := tx.Exec(ctx, `
		DELETE FROM flights
		WHERE flight_number = $1
		AND scheduled_time = $2
	`, first.FlightNumber, first.ScheduledTime); err != nil {
		return fmt.Errorf("delete previous batch: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"flights"}, flightColumns,
		pgx.CopyFromSlice(len(flights), func(i int) ([]any, error) {
			f := flights[i]
			return []any{
				f.FlightNumber, f.Airline, f.Origin, f.Destination, f.ScheduledTime,
				f.ScheduledDeparture, f.Status, f.AircraftModel, f.ICAOCode,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("insert flights: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecentFlights implements Store.
func (d *PostgresDB) RecentFlights(ctx context.Context, since time.Time, limit int) ([]flight.Flight, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT flight_number, airline, origin, destination, aircraft_model,
			scheduled_time, scheduled_departure, status, icao_code
		FROM flights
		WHERE scheduled_time > $1
		ORDER BY scheduled_time DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	var flights []flight.Flight
	for rows.Next() {
		var f flight.Flight
		var number, airline, origin, dest, model, status, icao *string
		if err := rows.Scan(&number, &airline, &origin, &dest, &model,
			&f.ScheduledTime, &f.ScheduledDeparture, &status, &icao); err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		f.FlightNumber = deref(number)
		f.Airline = deref(airline)
		f.Origin = deref(origin)
		f.Destination = deref(dest)
		f.AircraftModel = deref(model)
		f.Status = deref(status)
		f.ICAOCode = deref(icao)
		f.ScheduledTime = f.ScheduledTime.UTC()
		if f.ScheduledDeparture != nil {
			t := f.ScheduledDeparture.UTC()
			f.ScheduledDeparture = &t
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

// DailySummary implements Store.
func (d *PostgresDB) DailySummary(ctx context.Context, airports []string, from, to time.Time) ([]summary.Row, error) {
	if len(airports) == 0 {
		return nil, nil
	}
	return d.querySummary(ctx, `
		SELECT
			date_trunc('day', scheduled_time AT TIME ZONE 'UTC') AS flight_day,
			COALESCE(NULLIF(TRIM(airline), ''), 'Unknown Airline') AS airline_name,
			COALESCE(NULLIF(TRIM(aircraft_model), ''), 'Unknown Model') AS model_name,
			COUNT(*) AS total_flights
		FROM flights
		WHERE (origin = ANY($1) OR destination = ANY($1))
			AND scheduled_time BETWEEN $2 AND $3
		GROUP BY 1, 2, 3
		ORDER BY total_flights DESC, flight_day, airline_name, model_name
	`, airports, from, to)
}

// HourlySummary implements Store.
func (d *PostgresDB) HourlySummary(ctx context.Context, airports []string, hour int) ([]summary.Row, error) {
	if len(airports) == 0 {
		return nil, nil
	}
	return d.querySummary(ctx, `
		SELECT
			date_trunc('hour', scheduled_time AT TIME ZONE 'UTC') AS flight_hour,
			COALESCE(NULLIF(TRIM(airline), ''), 'Unknown Airline') AS airline_name,
			COALESCE(NULLIF(TRIM(aircraft_model), ''), 'Unknown Model') AS model_name,
			COUNT(*) AS total_flights
		FROM flights
		WHERE (origin = ANY($1) OR destination = ANY($1))
			AND EXTRACT(HOUR FROM scheduled_time AT TIME ZONE 'UTC') = $2::int
		GROUP BY 1, 2, 3
		ORDER BY total_flights DESC, airline_name, flight_hour, model_name
	`, airports, hour)
}

func (d *PostgresDB) querySummary(ctx context.Context, query string, args ...any) ([]summary.Row, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []summary.Row
	for rows.Next() {
		var r summary.Row
		if err := rows.Scan(&r.Bucket, &r.Airline, &r.AircraftModel, &r.TotalFlights); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertDailySummary implements Store. Existing keys are left alone.
func (d *PostgresDB) InsertDailySummary(ctx context.Context, rows []summary.Row) error {
	return d.execSummary(ctx, `
		INSERT INTO daily_flight_summary (flight_day, airline, aircraft_model, total_flights)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, rows)
}

// UpsertHourlySummary implements Store. Existing keys get the new count.
func (d *PostgresDB) UpsertHourlySummary(ctx context.Context, rows []summary.Row) error {
	return d.execSummary(ctx, `
		INSERT INTO hourly_flight_summary (flight_hour, airline, aircraft_model, total_flights)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (flight_hour, airline, aircraft_model)
		DO UPDATE SET total_flights = EXCLUDED.total_flights
	`, rows)
}

func (d *PostgresDB) execSummary(ctx context.Context, stmt string, rows []summary.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(stmt, r.Bucket.UTC(), r.Airline, r.AircraftModel, r.TotalFlights)
	}
	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return tx.Commit(ctx)
}

// ListDailySummary implements Store.
func (d *PostgresDB) ListDailySummary(ctx context.Context) ([]summary.Row, error) {
	return d.querySummary(ctx, `
		SELECT flight_day, airline, aircraft_model, total_flights
		FROM daily_flight_summary
		ORDER BY flight_day, airline, aircraft_model
	`)
}

// ListHourlySummary implements Store.
func (d *PostgresDB) ListHourlySummary(ctx context.Context) ([]summary.Row, error) {
	return d.querySummary(ctx, `
		SELECT flight_hour, airline, aircraft_model, total_flights
		FROM hourly_flight_summary
		ORDER BY flight_hour, airline, aircraft_model
	`)
}

// Pool returns the underlying connection pool for advanced operations.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
