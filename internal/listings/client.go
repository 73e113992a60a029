package listings

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
	"github.com/pfrederiksen/theatre-alerts/internal/metrics"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

const (
	DefaultBaseURL = "https://www.whatsonstage.com"
	UserAgent      = "theatre-alerts/1.0 (github.com/pfrederiksen/theatre-alerts)"
	Timeout        = 30 * time.Second
)

const source = string(production.SourceListingsSite)

// Client fetches search and info pages from the listings site
type Client struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at a different host, e.g. an httptest server
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default 30s-timeout HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLimiter spaces out requests to the site
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithMetrics records fetch outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client
func New(opts ...Option) *Client {
	c := &Client{
		client:  &http.Client{Timeout: Timeout},
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchURL returns the site search URL for a show title
func (c *Client) SearchURL(show string) string {
	return c.baseURL + "/?s=" + url.QueryEscape(show)
}

// SearchPage fetches the search results page for show
func (c *Client) SearchPage(ctx context.Context, show string) (string, error) {
	return c.get(ctx, c.SearchURL(show))
}

// InfoPage fetches a production's info page. Relative hrefs are resolved
// against the site. Any failure is logged and yields "", which callers treat
// as no data.
func (c *Client) InfoPage(ctx context.Context, href string) string {
	target, err := c.resolve(href)
	if err != nil {
		logger.Warn("Invalid info page link", logger.Fields{"source": source, "url": href, "error": err.Error()})
		return ""
	}

	body, err := c.get(ctx, target)
	if err != nil {
		logger.Warn("Info page fetch failed", logger.Fields{"source": source, "url": target, "error": err.Error()})
		return ""
	}
	return body
}

// ShowResult is what one show title produced on the listings site
type ShowResult struct {
	Show    string
	Details []*Detail
	Notices []string // per-link failures, already worded for the report
	Log     string
}

// SearchShow runs the whole listings flow for one title: search, link
// extraction, and one info page per link. Only a failed search is returned
// as an error; info page problems become notices.
func (c *Client) SearchShow(ctx context.Context, show string) (*ShowResult, error) {
	page, err := c.SearchPage(ctx, show)
	if err != nil {
		return nil, err
	}

	links, log := ExtractInfoLinks(page, show)
	logger.Info("Extracted info links", logger.Fields{"source": source, "show": show, "links": len(links)})

	result := &ShowResult{Show: show, Log: log}
	for _, link := range links {
		html := c.InfoPage(ctx, link)
		if html == "" {
			result.Notices = append(result.Notices, fmt.Sprintf("error fetching %s", link))
			continue
		}

		detail, err := ExtractDetails(show, html)
		if err != nil {
			logger.Warn("Detail extraction failed", logger.Fields{"source": source, "show": show, "url": link, "error": err.Error()})
			result.Notices = append(result.Notices, fmt.Sprintf("could not read %s", link))
			continue
		}
		result.Details = append(result.Details, detail)
	}

	c.metrics.AddRecords(source, metrics.StageNormalized, len(result.Details))
	return result, nil
}

func (c *Client) resolve(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", eris.Wrapf(err, "parsing %q", href)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", eris.Wrapf(err, "parsing base URL %q", c.baseURL)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) get(ctx context.Context, target string) (body string, err error) {
	defer func() { c.metrics.ObserveFetch(source, err) }()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &errs.FetchError{Source: source, URL: target, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &errs.FetchError{Source: source, URL: target, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &errs.FetchError{Source: source, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &errs.FetchError{Source: source, URL: target, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &errs.FetchError{Source: source, URL: target, Err: eris.Wrap(err, "reading body")}
	}
	return string(data), nil
}
