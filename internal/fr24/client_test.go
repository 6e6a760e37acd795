package fr24

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scheduleBody = `{
  "result": {"response": {"airport": {"pluginData": {"schedule": {"arrivals": {"data": [
    {"flight": {"identification": {"number": {"default": "TK411"}}}},
    {"flight": {"identification": {"number": {"default": "SU1120"}}}}
  ]}}}}}}
}`

func TestArrivals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "AER", q.Get("code"))
		assert.Equal(t, "schedule", q.Get("plugin[]"))
		assert.Equal(t, "arrivals", q.Get("plugin-setting[schedule][mode]"))
		assert.Equal(t, "20", q.Get("limit"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		_, _ = w.Write([]byte(scheduleBody))
	}))
	defer srv.Close()

	c := NewClient(20, time.Second)
	c.BaseURL = srv.URL

	data, err := c.Arrivals(context.Background(), "AER")
	require.NoError(t, err)
	assert.Len(t, data, 2)
}

func TestArrivals_NoSchedule(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"result": {"response": {"airport": {"pluginData": {}}}}}`,
		`{"result": {"response": {"airport": {"pluginData": {"schedule": {"arrivals": {"data": []}}}}}}}`,
		`{"result": {"response": {"airport": {"pluginData": {"schedule": {"arrivals": {"data": null}}}}}}}`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c := NewClient(0, 0)
			c.BaseURL = srv.URL

			_, err := c.Arrivals(context.Background(), "NLV")
			assert.True(t, errors.Is(err, ErrNoSchedule), "got %v", err)
		})
	}
}

func TestArrivals_HTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") == "BAD" {
			_, _ = w.Write([]byte(`{not json`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(20, time.Second)
	c.BaseURL = srv.URL

	_, err := c.Arrivals(context.Background(), "ODS")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSchedule))

	_, err = c.Arrivals(context.Background(), "BAD")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSchedule))
}

func TestScheduleURL(t *testing.T) {
	c := NewClient(5, time.Second)
	u := c.ScheduleURL("IST")
	assert.Contains(t, u, "code=IST")
	assert.Contains(t, u, "limit=5")
	assert.Contains(t, u, "api.flightradar24.com")
}
