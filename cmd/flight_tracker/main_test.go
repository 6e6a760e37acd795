package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	w, err := window("2024-05-01", "2024-05-07", 14)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2024, 5, 7, 23, 59, 59, 999999999, time.UTC), w.To)
	assert.Equal(t, 14, w.Hour)

	// A single day covers flights after midnight.
	w, err = window("2024-05-01", "2024-05-01", 0)
	require.NoError(t, err)
	assert.True(t, w.To.After(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, w.To.Before(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)))

	_, err = window("2024-05-01", "2024-05-07", 24)
	assert.EqualError(t, err, "hour must be between 0 and 23")

	_, err = window("01.05.2024", "2024-05-07", 1)
	assert.Error(t, err)

	_, err = window("2024-05-07", "2024-05-01", 1)
	assert.Error(t, err)
}

func TestPromptMenu_Ingest(t *testing.T) {
	var out bytes.Buffer
	choice, w, err := promptMenu(strings.NewReader("1\n2024-05-01\n2024-05-02\n7\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "1", choice)
	assert.Equal(t, 7, w.Hour)
	assert.Equal(t, time.Date(2024, 5, 2, 23, 59, 59, 999999999, time.UTC), w.To)
	assert.Contains(t, out.String(), "Hour (0-23): ")
}

func TestPromptMenu_BadHour(t *testing.T) {
	var out bytes.Buffer
	_, _, err := promptMenu(strings.NewReader("1\n2024-05-01\n2024-05-02\n25\n"), &out)
	assert.EqualError(t, err, "hour must be between 0 and 23")

	_, _, err = promptMenu(strings.NewReader("1\n2024-05-01\n2024-05-02\nnoon\n"), &out)
	assert.Error(t, err)
}

func TestPromptMenu_Other(t *testing.T) {
	var out bytes.Buffer
	choice, _, err := promptMenu(strings.NewReader("2\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "2", choice)

	out.Reset()
	choice, _, err = promptMenu(strings.NewReader("9\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "9", choice)
	assert.Contains(t, out.String(), "Invalid choice")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Аэрофл…", truncate("Аэрофлот", 7))
}
