package geo

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/sling"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/metrics"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/"
	UserAgent           = "theatre-alerts/1.0 (github.com/pfrederiksen/theatre-alerts)"
	Timeout             = 10 * time.Second
)

// Geocoder resolves a free-text location. A location with no match returns
// a *errs.GeocodeError with a nil cause.
type Geocoder interface {
	Geocode(ctx context.Context, location string) (*production.Coordinates, error)
}

// Nominatim geocodes through the OpenStreetMap Nominatim search API
type Nominatim struct {
	base    *sling.Sling
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

type searchParams struct {
	Query  string `url:"q"`
	Format string `url:"format"`
	Limit  int    `url:"limit"`
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type apiError struct {
	Error string `json:"error"`
}

// NewNominatim creates a geocoder against baseURL (DefaultNominatimURL when
// empty). ratePerSec caps lookups per second; Nominatim's public policy is 1.
func NewNominatim(baseURL string, ratePerSec float64, httpClient *http.Client, m *metrics.Metrics) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: Timeout}
	}
	if ratePerSec <= 0 {
		ratePerSec = 1
	}

	return &Nominatim{
		base:    sling.New().Client(httpClient).Base(baseURL).Set("User-Agent", UserAgent),
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		metrics: m,
	}
}

// Geocode returns the best match for location
func (n *Nominatim) Geocode(ctx context.Context, location string) (*production.Coordinates, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, &errs.GeocodeError{Location: location}
	}

	if err := n.limiter.Wait(ctx); err != nil {
		n.metrics.ObserveGeocode(metrics.GeocodeError)
		return nil, &errs.GeocodeError{Location: location, Err: err}
	}

	req, err := n.base.New().Get("search").QueryStruct(searchParams{Query: location, Format: "json", Limit: 1}).Request()
	if err != nil {
		n.metrics.ObserveGeocode(metrics.GeocodeError)
		return nil, &errs.GeocodeError{Location: location, Err: eris.Wrap(err, "building request")}
	}

	var results []searchResult
	var apiErr apiError
	resp, err := n.base.Do(req.WithContext(ctx), &results, &apiErr)
	if err != nil {
		n.metrics.ObserveGeocode(metrics.GeocodeError)
		return nil, &errs.GeocodeError{Location: location, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.metrics.ObserveGeocode(metrics.GeocodeError)
		return nil, &errs.GeocodeError{Location: location, Err: &errs.FetchError{
			Source:     "geocoder",
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Err:        eris.New(apiErr.Error),
		}}
	}

	if len(results) == 0 {
		n.metrics.ObserveGeocode(metrics.GeocodeMiss)
		return nil, &errs.GeocodeError{Location: location}
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		n.metrics.ObserveGeocode(metrics.GeocodeError)
		return nil, &errs.GeocodeError{Location: location, Err: &errs.ParseError{
			Source: "geocoder",
			Field:  "lat/lon",
			Err:    eris.Errorf("lat=%q lon=%q", results[0].Lat, results[0].Lon),
		}}
	}

	n.metrics.ObserveGeocode(metrics.GeocodeHit)
	return &production.Coordinates{Lat: lat, Lon: lon}, nil
}
