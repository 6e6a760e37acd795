package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim queries the OpenStreetMap search endpoint.
type Nominatim struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewNominatim creates a client. Nominatim requires an identifying user agent.
func NewNominatim(userAgent string, timeout time.Duration) *Nominatim {
	return &Nominatim{
		client:    &http.Client{Timeout: timeout},
		baseURL:   defaultNominatimURL,
		userAgent: userAgent,
	}
}

// WithBaseURL points the client at another server (tests, self-hosted instances).
func (n *Nominatim) WithBaseURL(u string) *Nominatim {
	n.baseURL = u
	return n
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode implements Geocoder and returns the best match only.
func (n *Nominatim) Geocode(ctx context.Context, query string) (Coordinate, bool, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Coordinate{}, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return Coordinate{}, false, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinate{}, false, fmt.Errorf("nominatim: bad status: %s", resp.Status)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Coordinate{}, false, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(places) == 0 {
		return Coordinate{}, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Coordinate{}, false, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Coordinate{}, false, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}
	return Coordinate{Lat: lat, Lon: lon}, true, nil
}

// RateLimited spaces calls to the wrapped Geocoder by at least minDelay and
// retries failed calls up to maxRetries times, waiting errorWait in between.
// The limiter is shared by every caller of the same RateLimited value.
type RateLimited struct {
	next       Geocoder
	limiter    *rate.Limiter
	maxRetries int
	errorWait  time.Duration
}

// NewRateLimited wraps next.
func NewRateLimited(next Geocoder, minDelay time.Duration, maxRetries int, errorWait time.Duration) *RateLimited {
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	return &RateLimited{
		next:       next,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: maxRetries,
		errorWait:  errorWait,
	}
}

// Geocode implements Geocoder.
func (r *RateLimited) Geocode(ctx context.Context, query string) (Coordinate, bool, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 && r.errorWait > 0 {
			t := time.NewTimer(r.errorWait)
			select {
			case <-ctx.Done():
				t.Stop()
				return Coordinate{}, false, ctx.Err()
			case <-t.C:
			}
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return Coordinate{}, false, err
		}

		c, ok, err := r.next.Geocode(ctx, query)
		if err == nil {
			return c, ok, nil
		}
		if ctx.Err() != nil {
			return Coordinate{}, false, err
		}
		lastErr = err
	}
	return Coordinate{}, false, fmt.Errorf("after %d attempts: %w", r.maxRetries+1, lastErr)
}
