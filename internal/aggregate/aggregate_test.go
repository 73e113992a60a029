package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/metrics"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

// stubSource returns canned findings per show, failing or panicking on demand
type stubSource struct {
	records map[string][]*production.Record
	fail    map[string]error
	panics  map[string]bool
	jitter  bool
}

func (s *stubSource) Name() production.Source { return production.SourceListingsSite }

func (s *stubSource) Search(_ context.Context, show string) (*Findings, error) {
	if s.jitter {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	}
	if s.panics[show] {
		panic("extractor exploded")
	}
	if err, ok := s.fail[show]; ok {
		return nil, err
	}
	return FromRecords(s.records[show]), nil
}

type tableGeocoder map[string]production.Coordinates

func (g tableGeocoder) Geocode(_ context.Context, location string) (*production.Coordinates, error) {
	c, ok := g[location]
	if !ok {
		return nil, &errs.GeocodeError{Location: location}
	}
	return &c, nil
}

func mk(t *testing.T, title, venue, location string) *production.Record {
	t.Helper()
	r, err := production.Normalize(production.Draft{
		Title:     title,
		VenueName: venue,
		Location:  location,
		Source:    production.SourceListingsSite,
	})
	require.NoError(t, err)
	return r
}

func titlesOf(records []*production.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Title)
	}
	return out
}

func TestSearchShows_FaultIsolation(t *testing.T) {
	src := &stubSource{
		records: map[string][]*production.Record{
			"A": {mk(t, "A", "Venue A", "London")},
			"B": {mk(t, "B", "Venue B", "Leeds")},
		},
		fail: map[string]error{
			"X": &errs.FetchError{Source: "listings_site", URL: "https://example.com/?s=X", StatusCode: 500},
		},
	}

	rep, err := New(src, Options{}).SearchShows(context.Background(), []string{"A", "X", "B"})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, titlesOf(rep.Records))
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "X", rep.Errors[0].Show)

	lines := strings.Split(rep.Text, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "A |"))
	assert.Contains(t, lines[1], "[X] error fetching X")
	assert.True(t, strings.HasPrefix(lines[2], "B |"))

	assert.Contains(t, rep.HTML, "Venue A")
	assert.Contains(t, rep.HTML, "X:</strong> error fetching X")
	assert.Contains(t, rep.HTML, "Venue B")
	assert.Less(t, strings.Index(rep.HTML, "Venue A"), strings.Index(rep.HTML, "error fetching X"))
	assert.Less(t, strings.Index(rep.HTML, "error fetching X"), strings.Index(rep.HTML, "Venue B"))
	assert.NotEmpty(t, rep.RunID)
}

func TestSearchShows_PanicIsIsolated(t *testing.T) {
	src := &stubSource{
		records: map[string][]*production.Record{"A": {mk(t, "A", "", "")}},
		panics:  map[string]bool{"X": true},
	}

	rep, err := New(src, Options{}).SearchShows(context.Background(), []string{"X", "A"})
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, titlesOf(rep.Records))
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0].Err.Error(), "extractor exploded")
}

func TestSearchShows_OrderIndependentOfCompletion(t *testing.T) {
	records := map[string][]*production.Record{}
	var shows []string
	for i := 0; i < 20; i++ {
		show := fmt.Sprintf("Show %02d", i)
		shows = append(shows, show)
		records[show] = []*production.Record{mk(t, show, "Venue", fmt.Sprintf("Town %d", i))}
	}
	src := &stubSource{records: records, jitter: true}

	rep, err := New(src, Options{Concurrency: 8}).SearchShows(context.Background(), shows)
	require.NoError(t, err)

	assert.Equal(t, shows, titlesOf(rep.Records))
}

func TestSearchShows_Dedup(t *testing.T) {
	src := &stubSource{records: map[string][]*production.Record{
		"Company": {
			mk(t, "Company", "Gielgud Theatre", "London"),
			mk(t, "COMPANY", "Gielgud", "london"),
		},
		"Here We Are": {mk(t, "Here We Are", "National Theatre", "London")},
	}}

	rep, err := New(src, Options{}).SearchShows(context.Background(), []string{"Company", "Here We Are", "Here We Are"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Company", "Here We Are"}, titlesOf(rep.Records))
	assert.Equal(t, 1, strings.Count(rep.HTML, "National Theatre"))
	assert.Len(t, strings.Split(rep.Text, "\n"), 2)
	assert.NotContains(t, rep.Text, "[")
}

func TestSearchShows_GeoAndMaxVenues(t *testing.T) {
	src := &stubSource{records: map[string][]*production.Record{
		"Follies":   {mk(t, "Follies", "Palace", "Manchester")},
		"Company":   {mk(t, "Company", "Gielgud", "Westminster")},
		"Passion":   {mk(t, "Passion", "Theatre Royal", "Brighton")},
		"Assassins": {mk(t, "Assassins", "Somewhere", "Atlantis")},
	}}
	g := tableGeocoder{
		"London, UK":  {Lat: 51.5074, Lon: -0.1278},
		"Westminster": {Lat: 51.4975, Lon: -0.1357},
		"Brighton":    {Lat: 50.8225, Lon: -0.1372},
		"Manchester":  {Lat: 53.4808, Lon: -2.2426},
	}
	m := metrics.New(nil)

	opts := Options{
		Geocoder:     g,
		UserLocation: "London, UK",
		RadiusMiles:  100,
		Metrics:      m,
	}
	shows := []string{"Follies", "Company", "Passion", "Assassins"}

	rep, err := New(src, opts).SearchShows(context.Background(), shows)
	require.NoError(t, err)
	assert.Equal(t, []string{"Company", "Passion"}, titlesOf(rep.Records))
	for _, r := range rep.Records {
		require.NotNil(t, r.DistanceMiles)
		assert.LessOrEqual(t, *r.DistanceMiles, 100.0)
	}
	assert.NotContains(t, rep.HTML, "Palace", "filtered records are not rendered")
	assert.InDelta(t, 4, testutil.ToFloat64(m.Records.WithLabelValues("listings_site", metrics.StageDeduped)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Records.WithLabelValues("listings_site", metrics.StageFiltered)), 0)

	opts.MaxVenues = 1
	rep, err = New(src, opts).SearchShows(context.Background(), shows)
	require.NoError(t, err)
	assert.Equal(t, []string{"Company"}, titlesOf(rep.Records))
}

func TestSearchShows_UsesClock(t *testing.T) {
	at := time.Date(2025, 7, 4, 9, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(at)

	rep, err := New(&stubSource{}, Options{Clock: clock}).SearchShows(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, at, rep.GeneratedAt)
	assert.Empty(t, rep.Records)
	assert.Contains(t, rep.HTML, "<title>")
}

type stubCalendar struct {
	events []json.RawMessage
	err    error
}

func (s stubCalendar) Events(context.Context) ([]json.RawMessage, error) {
	return s.events, s.err
}

func TestRunCalendar(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC))
	src := stubCalendar{events: []json.RawMessage{
		json.RawMessage(`{"title":"Follies","start":"2025-06-01T00:00:00Z","end":"2025-08-31T00:00:00Z","location":{"venue":"National Theatre","coordinates":[51.5069,-0.1145]}}`),
		json.RawMessage(`{"title":"Passion","start":"2025-09-01T00:00:00Z","end":"2025-09-30T00:00:00Z"}`),
		json.RawMessage(`{"title":"Gypsy","start":"2025-01-01T00:00:00Z","end":"2025-02-01T00:00:00Z"}`),
		json.RawMessage(`{"start":"2025-01-01T00:00:00Z"}`),
	}}

	rep, err := RunCalendar(context.Background(), src, CalendarOptions{
		Author:    "Sondheim",
		Reference: production.Coordinates{Lat: 51.53166, Lon: -0.09592},
		Clock:     clock,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Follies"}, titlesOf(rep.Current))
	assert.Equal(t, []string{"Passion"}, titlesOf(rep.Upcoming))
	assert.Equal(t, 1, rep.Ended)
	assert.Equal(t, 1, rep.Skipped)
	assert.Contains(t, rep.Text, "- Follies @ National Theatre (2025-06-01 to 2025-08-31)")
	assert.Contains(t, rep.Text, "- Passion @ Unknown Venue (2025-09-01 to 2025-09-30)")
}

func TestRunCalendar_FatalErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"fetch", &errs.FetchError{Source: "calendar_widget", URL: "https://example.com", StatusCode: 503}},
		{"parse", &errs.ParseError{Source: "calendar_widget", Field: "items", Err: errors.New("unexpected end of JSON input")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RunCalendar(context.Background(), stubCalendar{err: tt.err}, CalendarOptions{Author: "Sondheim"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}
