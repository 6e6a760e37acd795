// Package ingest persists normalized arrival batches.
package ingest

import (
	"context"
	"errors"
	"log/slog"

	"flight_tracker/internal/flight"
	"flight_tracker/internal/logger"
)

// ErrEmptyBatch is returned for a batch with no flights.
var ErrEmptyBatch = errors.New("no flights data to save")

// FlightWriter stores one batch atomically. Rows matching the first flight's
// key are replaced; the rest of the batch is appended.
type FlightWriter interface {
	SaveFlights(ctx context.Context, flights []flight.Flight) error
}

// Ingestor writes batches and reports the outcome as a boolean.
type Ingestor struct {
	w   FlightWriter
	log *slog.Logger
}

// New returns an Ingestor backed by w.
func New(w FlightWriter, log *slog.Logger) *Ingestor {
	if log == nil {
		log = logger.Logger
	}
	return &Ingestor{w: w, log: log}
}

// Save writes the batch and returns the failure reason, if any.
func (i *Ingestor) Save(ctx context.Context, flights []flight.Flight) error {
	if len(flights) == 0 {
		return ErrEmptyBatch
	}
	return i.w.SaveFlights(ctx, flights)
}

// Persist writes the batch. It returns false, after logging, when the batch
// is empty or the write was rolled back.
func (i *Ingestor) Persist(ctx context.Context, flights []flight.Flight) bool {
	if err := i.Save(ctx, flights); err != nil {
		if errors.Is(err, ErrEmptyBatch) {
			i.log.Warn("no flights data to save")
		} else {
			i.log.Error("database error", "error", err)
		}
		return false
	}
	i.log.Info("saved flights", "count", len(flights))
	return true
}
