package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight_tracker/internal/flight"
	"flight_tracker/internal/summary"
)

var tracked = []string{"LED", "SVO"}

func at(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func arrival(number, airline, model, sched string) flight.Flight {
	dep := at(sched).Add(-2 * time.Hour)
	return flight.Flight{
		FlightNumber:       number,
		Airline:            airline,
		Origin:             "KZN",
		Destination:        "LED",
		ScheduledTime:      at(sched),
		ScheduledDeparture: &dep,
		Status:             "Scheduled",
		AircraftModel:      model,
		ICAOCode:           "AFL",
	}
}

func repeat(n int, f flight.Flight) []flight.Flight {
	out := make([]flight.Flight, n)
	for i := range out {
		out[i] = f
	}
	return out
}

// testStore runs the behaviour every Store must share.
func testStore(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()
	epoch := at("2000-01-01 00:00:00")

	t.Run("SaveFlightsRoundTrip", func(t *testing.T) {
		s := open(t)
		f := arrival("SU100", "Aeroflot", "Airbus A320", "2024-05-01 10:30:00")
		f.ScheduledDeparture = nil
		g := arrival("SU200", "Aeroflot", "Airbus A321", "2024-05-01 12:00:00")

		require.NoError(t, s.SaveFlights(ctx, []flight.Flight{f, g}))

		got, err := s.RecentFlights(ctx, epoch, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, g, got[0], "newest first")
		assert.Equal(t, f, got[1])
		assert.Nil(t, got[1].ScheduledDeparture)
	})

	t.Run("SaveFlightsTwiceKeepsOneSet", func(t *testing.T) {
		s := open(t)
		batch := []flight.Flight{arrival("SU100", "Aeroflot", "Airbus A320", "2024-05-01 10:30:00")}

		require.NoError(t, s.SaveFlights(ctx, batch))
		require.NoError(t, s.SaveFlights(ctx, batch))

		got, err := s.RecentFlights(ctx, epoch, 10)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("SaveFlightsOnlyClearsLeadingKey", func(t *testing.T) {
		s := open(t)
		a := arrival("SU100", "Aeroflot", "Airbus A320", "2024-05-01 10:30:00")
		b := arrival("SU200", "Aeroflot", "Airbus A321", "2024-05-01 11:30:00")

		require.NoError(t, s.SaveFlights(ctx, []flight.Flight{a, b}))
		require.NoError(t, s.SaveFlights(ctx, []flight.Flight{a, b}))

		got, err := s.RecentFlights(ctx, epoch, 10)
		require.NoError(t, err)
		// a is replaced, b is not.
		assert.Len(t, got, 3)

		// A batch led by another record leaves the earlier rows in place.
		c := arrival("SU300", "Aeroflot", "Airbus A321", "2024-05-01 12:30:00")
		require.NoError(t, s.SaveFlights(ctx, []flight.Flight{c, a}))
		got, err = s.RecentFlights(ctx, epoch, 10)
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})

	t.Run("SaveFlightsEmpty", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SaveFlights(ctx, nil))
		got, err := s.RecentFlights(ctx, epoch, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("RecentFlightsWindowAndLimit", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SaveFlights(ctx, []flight.Flight{
			arrival("A1", "X", "M", "2024-05-01 08:00:00"),
			arrival("A2", "X", "M", "2024-05-02 08:00:00"),
			arrival("A3", "X", "M", "2024-05-03 08:00:00"),
		}))

		got, err := s.RecentFlights(ctx, at("2024-05-01 12:00:00"), 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "A3", got[0].FlightNumber)

		got, err = s.RecentFlights(ctx, epoch, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "A3", got[0].FlightNumber)
	})

	t.Run("DailySummaryOrdering", func(t *testing.T) {
		s := open(t)
		var batch []flight.Flight
		batch = append(batch, repeat(3, arrival("DP1", "Pobeda", "Boeing 737-800", "2024-05-01 09:00:00"))...)
		batch = append(batch, repeat(5, arrival("S71", "S7 Airlines", "Airbus A320", "2024-05-01 10:00:00"))...)
		batch = append(batch, repeat(5, arrival("SU1", "Aeroflot", "Airbus A320", "2024-05-01 11:00:00"))...)
		require.NoError(t, s.SaveFlights(ctx, batch))

		rows, err := s.DailySummary(ctx, tracked, at("2024-05-01 00:00:00"), at("2024-05-02 00:00:00"))
		require.NoError(t, err)
		day := at("2024-05-01 00:00:00")
		assert.Equal(t, []summary.Row{
			{Bucket: day, Airline: "Aeroflot", AircraftModel: "Airbus A320", TotalFlights: 5},
			{Bucket: day, Airline: "S7 Airlines", AircraftModel: "Airbus A320", TotalFlights: 5},
			{Bucket: day, Airline: "Pobeda", AircraftModel: "Boeing 737-800", TotalFlights: 3},
		}, rows)
	})

	t.Run("DailySummaryFilters", func(t *testing.T) {
		s := open(t)
		inside := arrival("SU1", "Aeroflot", "Airbus A320", "2024-05-01 11:00:00")
		late := arrival("SU2", "Aeroflot", "Airbus A320", "2024-05-03 11:00:00")
		elsewhere := arrival("SU3", "Aeroflot", "Airbus A320", "2024-05-01 12:00:00")
		elsewhere.Origin, elsewhere.Destination = "AER", "KZN"
		fromTracked := arrival("SU4", "Aeroflot", "Airbus A320", "2024-05-01 13:00:00")
		fromTracked.Origin, fromTracked.Destination = "SVO", "AER"
		require.NoError(t, s.SaveFlights(ctx, []flight.Flight{inside, late, elsewhere, fromTracked}))

		rows, err := s.DailySummary(ctx, tracked, at("2024-05-01 00:00:00"), at("2024-05-02 00:00:00"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(2), rows[0].TotalFlights)

		rows, err = s.DailySummary(ctx, nil, at("2024-05-01 00:00:00"), at("2024-05-02 00:00:00"))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("SummaryPlaceholders", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SaveFlights(ctx, []flight.Flight{
			arrival("X1", "", "", "2024-05-01 10:00:00"),
			arrival("X2", "   ", "  ", "2024-05-01 10:15:00"),
		}))

		rows, err := s.DailySummary(ctx, tracked, at("2024-05-01 00:00:00"), at("2024-05-02 00:00:00"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, summary.UnknownAirline, rows[0].Airline)
		assert.Equal(t, summary.UnknownModel, rows[0].AircraftModel)
		assert.Equal(t, int64(2), rows[0].TotalFlights)

		hourly, err := s.HourlySummary(ctx, tracked, 10)
		require.NoError(t, err)
		require.Len(t, hourly, 1)
		assert.Equal(t, at("2024-05-01 10:00:00"), hourly[0].Bucket)
		assert.Equal(t, summary.UnknownAirline, hourly[0].Airline)
	})

	t.Run("SummaryPlaceholdersTrimSpacesOnly", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SaveFlights(ctx, []flight.Flight{
			arrival("X3", "\t", "Airbus A320", "2024-05-01 11:00:00"),
		}))

		rows, err := s.DailySummary(ctx, tracked, at("2024-05-01 00:00:00"), at("2024-05-02 00:00:00"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "\t", rows[0].Airline)
	})

	t.Run("HourlySummaryMatchesHourOfDay", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SaveFlights(ctx, []flight.Flight{
			arrival("A1", "Aeroflot", "Airbus A320", "2024-05-01 14:05:00"),
			arrival("A2", "Aeroflot", "Airbus A320", "2024-05-01 14:55:00"),
			arrival("A3", "Aeroflot", "Airbus A320", "2024-05-02 14:10:00"),
			arrival("A4", "Aeroflot", "Airbus A320", "2024-05-01 15:00:00"),
			arrival("B1", "Rossiya", "Sukhoi Superjet 100", "2024-05-01 14:20:00"),
		}))

		rows, err := s.HourlySummary(ctx, tracked, 14)
		require.NoError(t, err)
		assert.Equal(t, []summary.Row{
			{Bucket: at("2024-05-01 14:00:00"), Airline: "Aeroflot", AircraftModel: "Airbus A320", TotalFlights: 2},
			{Bucket: at("2024-05-02 14:00:00"), Airline: "Aeroflot", AircraftModel: "Airbus A320", TotalFlights: 1},
			{Bucket: at("2024-05-01 14:00:00"), Airline: "Rossiya", AircraftModel: "Sukhoi Superjet 100", TotalFlights: 1},
		}, rows)
	})

	t.Run("HourlyUpsertReplacesCount", func(t *testing.T) {
		s := open(t)
		bucket := at("2024-05-01 14:00:00")
		require.NoError(t, s.UpsertHourlySummary(ctx, []summary.Row{{Bucket: bucket, Airline: "Aeroflot", AircraftModel: "A320", TotalFlights: 3}}))
		require.NoError(t, s.UpsertHourlySummary(ctx, []summary.Row{{Bucket: bucket, Airline: "Aeroflot", AircraftModel: "A320", TotalFlights: 7}}))

		rows, err := s.ListHourlySummary(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(7), rows[0].TotalFlights)
		assert.Equal(t, bucket, rows[0].Bucket)
	})

	t.Run("DailyInsertSkipsDuplicates", func(t *testing.T) {
		s := open(t)
		day := at("2024-05-01 00:00:00")
		require.NoError(t, s.InsertDailySummary(ctx, []summary.Row{{Bucket: day, Airline: "Aeroflot", AircraftModel: "A320", TotalFlights: 3}}))
		require.NoError(t, s.InsertDailySummary(ctx, []summary.Row{
			{Bucket: day, Airline: "Aeroflot", AircraftModel: "A320", TotalFlights: 7},
			{Bucket: day, Airline: "Pobeda", AircraftModel: "B738", TotalFlights: 1},
		}))

		rows, err := s.ListDailySummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, []summary.Row{
			{Bucket: day, Airline: "Aeroflot", AircraftModel: "A320", TotalFlights: 3},
			{Bucket: day, Airline: "Pobeda", AircraftModel: "B738", TotalFlights: 1},
		}, rows)
	})

	t.Run("SummaryWritesEmpty", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.InsertDailySummary(ctx, nil))
		require.NoError(t, s.UpsertHourlySummary(ctx, nil))
	})
}
