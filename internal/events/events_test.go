package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "flights.ingested.LED", Subject("LED"))
}

func TestEncode(t *testing.T) {
	data, err := Encode(BatchIngested{
		RunID:      "3f1c2a9e-0000-4000-8000-000000000000",
		Airport:    "SVO",
		Flights:    12,
		IngestedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"run_id": "3f1c2a9e-0000-4000-8000-000000000000",
		"airport": "SVO",
		"flights": 12,
		"ingested_at": "2024-05-01T10:00:00Z"
	}`, string(data))
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1")
	assert.Error(t, err)
}
