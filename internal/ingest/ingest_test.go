package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight_tracker/internal/flight"
	"flight_tracker/internal/logger"
	"flight_tracker/internal/storage"
)

type failingWriter struct{ calls int }

func (f *failingWriter) SaveFlights(context.Context, []flight.Flight) error {
	f.calls++
	return errors.New("constraint violation")
}

func batch() []flight.Flight {
	return []flight.Flight{
		{FlightNumber: "SU6", Airline: "Aeroflot", Origin: "SVO", Destination: "LED",
			ScheduledTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), Status: "Scheduled",
			AircraftModel: "Airbus A320", ICAOCode: "AFL"},
		{FlightNumber: "S7 1", Airline: "S7 Airlines", Origin: "OVB", Destination: "LED",
			ScheduledTime: time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), Status: "Scheduled",
			AircraftModel: "Airbus A320", ICAOCode: "SBI"},
	}
}

func TestPersist_EmptyBatchRejected(t *testing.T) {
	w := &failingWriter{}
	ing := New(w, logger.Discard())

	assert.False(t, ing.Persist(context.Background(), nil))
	assert.ErrorIs(t, ing.Save(context.Background(), []flight.Flight{}), ErrEmptyBatch)
	assert.Zero(t, w.calls, "empty batch never reaches the store")
}

func TestPersist_WriteFailure(t *testing.T) {
	w := &failingWriter{}
	ing := New(w, logger.Discard())

	assert.False(t, ing.Persist(context.Background(), batch()))
	assert.Equal(t, 1, w.calls)
}

func TestPersist_SameBatchTwice(t *testing.T) {
	ctx := context.Background()
	s, err := storage.Open(ctx, storage.Config{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	defer s.Close()

	ing := New(s, logger.Discard())
	single := batch()[:1]
	require.True(t, ing.Persist(ctx, single))
	require.True(t, ing.Persist(ctx, single))

	got, err := s.RecentFlights(ctx, time.Time{}, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, single[0], got[0])
}
