package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

var reference = production.Coordinates{Lat: 51.53166, Lon: -0.09592}

func loadPayload(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/calendar_response.txt")
	require.NoError(t, err, "failed to load test fixture")
	return string(data)
}

func titles(records []*production.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Title)
	}
	return out
}

func TestExtractEvents(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		wantErr bool
	}{
		{name: "fixture payload", text: loadPayload(t), want: 8},
		{name: "no items key", text: `{"settings":{},"total":0}`, want: 0},
		{name: "empty text", text: "", want: 0},
		{name: "empty items", text: `{"items":[] , "total":0}`, want: 0},
		{name: "malformed items", text: `{"items":[{"title":"Company",}],"total":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractEvents(tt.text)
			if tt.wantErr {
				var pe *errs.ParseError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, "items", pe.Field)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestCategorize(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC))
	events, err := ExtractEvents(loadPayload(t))
	require.NoError(t, err)

	split := Categorize(events, clock.Now(), reference)

	assert.Equal(t, []string{"Follies", "Sweeney Todd", "Company"}, titles(split.Current))
	assert.Equal(t, []string{"Assassins", "Into the Woods"}, titles(split.Upcoming))
	assert.Equal(t, 1, split.Ended)
	assert.Equal(t, 2, split.Skipped)

	follies := split.Current[0]
	assert.Equal(t, "National Theatre", follies.VenueName)
	assert.Equal(t, production.SourceCalendarWidget, follies.Source)
	require.NotNil(t, follies.Coordinates)
	assert.InDelta(t, 51.5069, follies.Coordinates.Lat, 1e-9)
	assert.Equal(t, "https://www.nationaltheatre.org.uk/productions/follies", follies.InfoURL)

	company := split.Current[2]
	assert.Equal(t, production.UnknownVenue, company.VenueName)
	assert.Nil(t, company.Coordinates)

	woods := split.Upcoming[1]
	assert.Nil(t, woods.Coordinates, "malformed coordinates are dropped")
	assert.Equal(t, "Theatre Royal Bath", woods.VenueName)
}

func TestCategorize_Partition(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mk := func(title string, startDays, endDays int) json.RawMessage {
		raw, err := json.Marshal(map[string]string{
			"title": title,
			"start": base.AddDate(0, 0, startDays).Format(time.RFC3339),
			"end":   base.AddDate(0, 0, endDays).Format(time.RFC3339),
		})
		require.NoError(t, err)
		return raw
	}

	events := []json.RawMessage{
		mk("starts now", 0, 10),
		mk("ends now", -10, 0),
		mk("future", 1, 10),
		mk("past", -10, -1),
		mk("inverted future", 5, 2),
	}

	split := Categorize(events, base, reference)

	assert.Equal(t, len(events), len(split.Current)+len(split.Upcoming)+split.Ended+split.Skipped)
	assert.ElementsMatch(t, []string{"starts now", "ends now"}, titles(split.Current))
	assert.Equal(t, []string{"future", "inverted future"}, titles(split.Upcoming))
	assert.Equal(t, 1, split.Ended)

	seen := map[string]bool{}
	for _, r := range append(append([]*production.Record{}, split.Current...), split.Upcoming...) {
		assert.False(t, seen[r.Title], "%s in both lists", r.Title)
		seen[r.Title] = true
	}
}

func TestCategorize_UTCSuffix(t *testing.T) {
	events := []json.RawMessage{
		json.RawMessage(`{"title":"Gypsy","start":"2025-07-01T00:00:00Z","end":"2025-07-31T00:00:00.000Z"}`),
		json.RawMessage(`{"title":"Candide","start":"2025-07-01","end":"2025-07-31"}`),
	}

	split := Categorize(events, time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC), reference)

	require.Len(t, split.Current, 2)
	assert.Equal(t, time.UTC, split.Current[0].StartDate.Location())
}

func TestClient_Fetch(t *testing.T) {
	payload := loadPayload(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, WidgetOrigin, r.Header.Get("Origin"))
		assert.Equal(t, WidgetURL, r.Header.Get("Referer"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		form, err := url.ParseQuery(string(body))
		require.NoError(t, err)
		assert.Equal(t, "calendar", form.Get("app"))
		assert.Equal(t, SiteReferrer, form.Get("_referrer"))
		assert.Equal(t, WidgetURL, form.Get("_origin"))

		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	src := WidgetSource{Client: NewClient(server.URL, nil, nil)}
	events, err := src.Events(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 8)
}

func TestClient_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil, nil).Fetch(context.Background())

	var fe *errs.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusForbidden, fe.StatusCode)
	assert.Equal(t, source, fe.Source)
}
