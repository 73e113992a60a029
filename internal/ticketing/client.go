package ticketing

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/sling"
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
	"github.com/pfrederiksen/theatre-alerts/internal/metrics"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

const (
	DefaultBaseURL  = "https://app.ticketmaster.com/discovery/v2/"
	DefaultPageSize = 50
	Timeout         = 30 * time.Second
)

const source = string(production.SourceTicketing)

// Client is a client for the Discovery API event search
type Client struct {
	apiKey      string
	baseURL     string
	countryCode string
	pageSize    int
	httpClient  *http.Client
	metrics     *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API root
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCountryCode restricts results to one ISO country, e.g. "GB"
func WithCountryCode(cc string) Option {
	return func(c *Client) { c.countryCode = strings.ToUpper(strings.TrimSpace(cc)) }
}

// WithMetrics records fetch outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a Discovery API client
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		pageSize:   DefaultPageSize,
		httpClient: &http.Client{Timeout: Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchParams struct {
	Keyword     string `url:"keyword"`
	APIKey      string `url:"apikey"`
	CountryCode string `url:"countryCode,omitempty"`
	Size        int    `url:"size,omitempty"`
}

type apiFault struct {
	Fault struct {
		FaultString string `json:"faultstring"`
	} `json:"fault"`
}

// Search runs one keyword search and returns the raw response body
func (c *Client) Search(ctx context.Context, keyword string) (body json.RawMessage, err error) {
	defer func() { c.metrics.ObserveFetch(source, err) }()

	s := sling.New().Client(c.httpClient).Base(c.baseURL).Get("events.json").
		QueryStruct(searchParams{
			Keyword:     keyword,
			APIKey:      c.apiKey,
			CountryCode: c.countryCode,
			Size:        c.pageSize,
		})

	req, err := s.Request()
	if err != nil {
		return nil, &errs.FetchError{Source: source, URL: c.baseURL, Err: eris.Wrap(err, "building request")}
	}
	// keep the key out of logged URLs
	safeURL := errs.RedactSecret(req.URL.String(), c.apiKey)

	var fault apiFault
	resp, err := s.Do(req.WithContext(ctx), &body, &fault)
	if err != nil {
		return nil, &errs.FetchError{Source: source, URL: safeURL, Err: errs.RedactURLError(err, c.apiKey)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var cause error
		if fault.Fault.FaultString != "" {
			cause = eris.New(fault.Fault.FaultString)
		}
		return nil, &errs.FetchError{Source: source, URL: safeURL, StatusCode: resp.StatusCode, Err: cause}
	}
	return body, nil
}

// SearchShow searches for show and normalizes every matching event
func (c *Client) SearchShow(ctx context.Context, show string) ([]*production.Record, error) {
	body, err := c.Search(ctx, show)
	if err != nil {
		return nil, err
	}

	records, skipped := ParseEvents(body, show)
	logger.Info("Ticketing search complete", logger.Fields{
		"source":  source,
		"show":    show,
		"total":   gjson.GetBytes(body, "page.totalElements").Int(),
		"records": len(records),
		"skipped": skipped,
	})
	c.metrics.AddRecords(source, metrics.StageNormalized, len(records))
	c.metrics.AddRecords(source, metrics.StageSkipped, skipped)
	return records, nil
}
