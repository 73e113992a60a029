package calendar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/metrics"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

// Widget endpoint and the browser-like request identity it expects
const (
	DefaultEndpoint = "https://inffuse.eventscalendar.co/js/v0.1/calendar/data"
	WidgetOrigin    = "https://plugin.eventscalendar.co"
	WidgetURL       = "https://plugin.eventscalendar.co/widget.html?pageId=hh2t2&compId=comp-m7kbpz0j"
	SiteReferrer    = "https://www.sondheimsociety.com/"
	UserAgent       = "Mozilla/5.0"
	Timeout         = 15 * time.Second
)

const source = string(production.SourceCalendarWidget)

// Source yields the raw event objects of one calendar
type Source interface {
	Events(ctx context.Context) ([]json.RawMessage, error)
}

// Client posts to the calendar widget's data endpoint
type Client struct {
	client   *http.Client
	endpoint string
	metrics  *metrics.Metrics
}

// NewClient creates a Client. An empty endpoint means DefaultEndpoint and a
// nil httpClient gets a 15s timeout.
func NewClient(endpoint string, httpClient *http.Client, m *metrics.Metrics) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: Timeout}
	}
	return &Client{client: httpClient, endpoint: endpoint, metrics: m}
}

// Fetch returns the raw widget payload. Any failure is a *errs.FetchError.
func (c *Client) Fetch(ctx context.Context) (body string, err error) {
	defer func() { c.metrics.ObserveFetch(source, err) }()

	form := url.Values{
		"_referrer": {SiteReferrer},
		"_origin":   {WidgetURL},
		"app":       {"calendar"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &errs.FetchError{Source: source, URL: c.endpoint, Err: err}
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", WidgetOrigin)
	req.Header.Set("Referer", WidgetURL)
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &errs.FetchError{Source: source, URL: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &errs.FetchError{Source: source, URL: c.endpoint, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &errs.FetchError{Source: source, URL: c.endpoint, Err: eris.Wrap(err, "reading body")}
	}
	return string(data), nil
}

// WidgetSource adapts Client to Source by extracting the embedded event list
type WidgetSource struct {
	Client *Client
}

// Events fetches the widget payload and extracts its events
func (w WidgetSource) Events(ctx context.Context) ([]json.RawMessage, error) {
	text, err := w.Client.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ExtractEvents(text)
}
