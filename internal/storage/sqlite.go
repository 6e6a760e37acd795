package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"flight_tracker/internal/flight"
	"flight_tracker/internal/summary"
)

// SQLiteDB wraps a SQLite database connection.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// CreateSchema creates the database tables and indices.
func (d *SQLiteDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS flights (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		flight_number TEXT,
		airline TEXT,
		origin TEXT,
		destination TEXT,
		scheduled_time TEXT NOT NULL,
		scheduled_departure TEXT,
		status TEXT,
		aircraft_model TEXT,
		icao_code TEXT,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_flights_key ON flights(flight_number, scheduled_time);
	CREATE INDEX IF NOT EXISTS idx_flights_scheduled ON flights(scheduled_time);

	CREATE TABLE IF NOT EXISTS daily_flight_summary (
		flight_day TEXT NOT NULL,
		airline TEXT NOT NULL,
		aircraft_model TEXT NOT NULL,
		total_flights INTEGER NOT NULL,
		UNIQUE (flight_day, airline, aircraft_model)
	);

	CREATE TABLE IF NOT EXISTS hourly_flight_summary (
		flight_hour TEXT NOT NULL,
		airline TEXT NOT NULL,
		aircraft_model TEXT NOT NULL,
		total_flights INTEGER NOT NULL,
		UNIQUE (flight_hour, airline, aircraft_model)
	);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveFlights implements Store.
func (d *SQLiteDB) SaveFlights(ctx context.Context, flights []flight.Flight) error {
	if len(flights) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	first := flights[0]
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM flights
		WHERE flight_number = ?
		AND scheduled_time = ?
	`, first.FlightNumber, formatTime(first.ScheduledTime)); err != nil {
		return fmt.Errorf("delete previous batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO flights (flight_number, airline, origin, destination, scheduled_time,
			scheduled_departure, status, aircraft_model, icao_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range flights {
		var departure any
		if f.ScheduledDeparture != nil {
			departure = formatTime(*f.ScheduledDeparture)
		}
		if _, err := stmt.ExecContext(ctx, f.FlightNumber, f.Airline, f.Origin, f.Destination,
			formatTime(f.ScheduledTime), departure, f.Status, f.AircraftModel, f.ICAOCode); err != nil {
			return fmt.Errorf("insert flight %s: %w", f.FlightNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecentFlights implements Store.
func (d *SQLiteDB) RecentFlights(ctx context.Context, since time.Time, limit int) ([]flight.Flight, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT flight_number, airline, origin, destination, aircraft_model,
			scheduled_time, scheduled_departure, status, icao_code
		FROM flights
		WHERE scheduled_time > ?
		ORDER BY scheduled_time DESC, id
		LIMIT ?
	`, formatTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	var flights []flight.Flight
	for rows.Next() {
		var f flight.Flight
		var number, airline, origin, dest, model, status, icao, departure sql.NullString
		var scheduled string
		if err := rows.Scan(&number, &airline, &origin, &dest, &model,
			&scheduled, &departure, &status, &icao); err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		f.FlightNumber = number.String
		f.Airline = airline.String
		f.Origin = origin.String
		f.Destination = dest.String
		f.AircraftModel = model.String
		f.Status = status.String
		f.ICAOCode = icao.String
		if f.ScheduledTime, err = parseTime(scheduled); err != nil {
			return nil, err
		}
		if departure.Valid {
			t, err := parseTime(departure.String)
			if err != nil {
				return nil, err
			}
			f.ScheduledDeparture = &t
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

// DailySummary implements Store.
func (d *SQLiteDB) DailySummary(ctx context.Context, airports []string, from, to time.Time) ([]summary.Row, error) {
	if len(airports) == 0 {
		return nil, nil
	}
	in := placeholders(len(airports))
	query := fmt.Sprintf(`
		SELECT
			strftime('%%Y-%%m-%%d 00:00:00', scheduled_time) AS flight_day,
			COALESCE(NULLIF(TRIM(airline), ''), 'Unknown Airline') AS airline_name,
			COALESCE(NULLIF(TRIM(aircraft_model), ''), 'Unknown Model') AS model_name,
			COUNT(*) AS total_flights
		FROM flights
		WHERE (origin IN (%s) OR destination IN (%s))
			AND scheduled_time BETWEEN ? AND ?
		GROUP BY 1, 2, 3
		ORDER BY total_flights DESC, flight_day, airline_name, model_name
	`, in, in)

	args := append(stringArgs(airports), stringArgs(airports)...)
	args = append(args, formatTime(from), formatTime(to))
	return d.querySummary(ctx, query, args...)
}

// HourlySummary implements Store.
func (d *SQLiteDB) HourlySummary(ctx context.Context, airports []string, hour int) ([]summary.Row, error) {
	if len(airports) == 0 {
		return nil, nil
	}
	in := placeholders(len(airports))
	query := fmt.Sprintf(`
		SELECT
			strftime('%%Y-%%m-%%d %%H:00:00', scheduled_time) AS flight_hour,
			COALESCE(NULLIF(TRIM(airline), ''), 'Unknown Airline') AS airline_name,
			COALESCE(NULLIF(TRIM(aircraft_model), ''), 'Unknown Model') AS model_name,
			COUNT(*) AS total_flights
		FROM flights
		WHERE (origin IN (%s) OR destination IN (%s))
			AND CAST(strftime('%%H', scheduled_time) AS INTEGER) = ?
		GROUP BY 1, 2, 3
		ORDER BY total_flights DESC, airline_name, flight_hour, model_name
	`, in, in)

	args := append(stringArgs(airports), stringArgs(airports)...)
	args = append(args, hour)
	return d.querySummary(ctx, query, args...)
}

func (d *SQLiteDB) querySummary(ctx context.Context, query string, args ...any) ([]summary.Row, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []summary.Row
	for rows.Next() {
		var r summary.Row
		var bucket string
		if err := rows.Scan(&bucket, &r.Airline, &r.AircraftModel, &r.TotalFlights); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if r.Bucket, err = parseTime(bucket); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertDailySummary implements Store. Existing keys are left alone.
func (d *SQLiteDB) InsertDailySummary(ctx context.Context, rows []summary.Row) error {
	return d.execSummary(ctx, `
		INSERT INTO daily_flight_summary (flight_day, airline, aircraft_model, total_flights)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, rows)
}

// UpsertHourlySummary implements Store. Existing keys get the new count.
func (d *SQLiteDB) UpsertHourlySummary(ctx context.Context, rows []summary.Row) error {
	return d.execSummary(ctx, `
		INSERT INTO hourly_flight_summary (flight_hour, airline, aircraft_model, total_flights)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (flight_hour, airline, aircraft_model)
		DO UPDATE SET total_flights = excluded.total_flights
	`, rows)
}

func (d *SQLiteDB) execSummary(ctx context.Context, stmt string, rows []summary.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("prepare summary: %w", err)
	}
	defer prepared.Close()

	for _, r := range rows {
		if _, err := prepared.ExecContext(ctx, formatTime(r.Bucket), r.Airline, r.AircraftModel, r.TotalFlights); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return tx.Commit()
}

// ListDailySummary implements Store.
func (d *SQLiteDB) ListDailySummary(ctx context.Context) ([]summary.Row, error) {
	return d.querySummary(ctx, `
		SELECT flight_day, airline, aircraft_model, total_flights
		FROM daily_flight_summary
		ORDER BY flight_day, airline, aircraft_model
	`)
}

// ListHourlySummary implements Store.
func (d *SQLiteDB) ListHourlySummary(ctx context.Context) ([]summary.Row, error) {
	return d.querySummary(ctx, `
		SELECT flight_hour, airline, aircraft_model, total_flights
		FROM hourly_flight_summary
		ORDER BY flight_hour, airline, aircraft_model
	`)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
