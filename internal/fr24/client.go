// Package fr24 fetches airport arrival schedules from the Flightradar24
// airport endpoint.
package fr24

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"flight_tracker/internal/flight"
)

const (
	defaultBaseURL = "https://api.flightradar24.com/common/v1/airport.json"
	defaultLimit   = 20
	defaultTimeout = 15 * time.Second
)

// ErrNoSchedule means the response carried no arrivals for the airport.
// It is a normal outcome, not a transport failure.
var ErrNoSchedule = errors.New("no schedule data")

var pathArrivals = []string{"result", "response", "airport", "pluginData", "schedule", "arrivals", "data"}

// Client fetches arrival schedules.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Limit   int
}

// NewClient returns a Client with a fixed request timeout and result limit.
func NewClient(limit int, timeout time.Duration) *Client {
	if limit <= 0 {
		limit = defaultLimit
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: defaultBaseURL,
		Limit:   limit,
	}
}

// ScheduleURL returns the arrivals schedule URL for an airport.
func (c *Client) ScheduleURL(airport string) string {
	params := url.Values{}
	params.Set("code", airport)
	params.Set("plugin[]", "schedule")
	params.Set("plugin-setting[schedule][mode]", "arrivals")
	params.Set("limit", strconv.Itoa(c.Limit))
	return c.BaseURL + "?" + params.Encode()
}

// Arrivals returns the raw schedule entries for an airport. Each entry is a
// decoded JSON object meant for flight.Normalize.
func (c *Client) Arrivals(ctx context.Context, airport string) ([]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ScheduleURL(airport), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", airport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: bad status: %s", airport, resp.Status)
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", airport, err)
	}

	data := flight.List(doc, pathArrivals...)
	if len(data) == 0 {
		return nil, ErrNoSchedule
	}
	return data, nil
}
