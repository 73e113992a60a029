package ticketing

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

// ParseEvents turns a search response into records for show. Events whose
// name does not contain show (ignoring case) are not productions of it and
// are left out; events that cannot be normalized are counted as skipped.
// Records carry show as their title so they dedupe against other sources.
func ParseEvents(body []byte, show string) ([]*production.Record, int) {
	var (
		records []*production.Record
		skipped int
	)

	gjson.GetBytes(body, "_embedded.events").ForEach(func(_, ev gjson.Result) bool {
		if !MatchesTitle(ev.Get("name").String(), show) {
			return true
		}

		rec, err := production.Normalize(toDraft(ev, show))
		if err != nil {
			skipped++
			return true
		}
		records = append(records, rec)
		return true
	})

	return records, skipped
}

// MatchesTitle reports whether an event name refers to show
func MatchesTitle(name, show string) bool {
	show = strings.TrimSpace(show)
	if show == "" {
		return false
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(show))
}

func toDraft(ev gjson.Result, show string) production.Draft {
	venue := ev.Get("_embedded.venues.0")

	d := production.Draft{
		Title:        show,
		VenueName:    venue.Get("name").String(),
		VenueURL:     venue.Get("url").String(),
		Location:     location(venue),
		Coordinates:  coordinates(venue.Get("location")),
		FirstPreview: ev.Get("dates.start.localDate").String(),
		ClosingNight: ev.Get("dates.end.localDate").String(),
		InfoURL:      ev.Get("url").String(),
		Source:       production.SourceTicketing,
	}
	d.StartDate = instant(ev.Get("dates.start"))
	d.EndDate = instant(ev.Get("dates.end"))
	return d
}

func location(venue gjson.Result) string {
	parts := make([]string, 0, 2)
	for _, path := range []string{"city.name", "country.name"} {
		if s := strings.TrimSpace(venue.Get(path).String()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// coordinates reads the venue location; the API sends numbers as strings
func coordinates(loc gjson.Result) *production.Coordinates {
	lat, latErr := strconv.ParseFloat(loc.Get("latitude").String(), 64)
	lon, lonErr := strconv.ParseFloat(loc.Get("longitude").String(), 64)
	if latErr != nil || lonErr != nil {
		return nil
	}
	return &production.Coordinates{Lat: lat, Lon: lon}
}

// instant prefers the full dateTime and falls back to localDate at midnight UTC
func instant(dates gjson.Result) *time.Time {
	if t, err := time.Parse(time.RFC3339, dates.Get("dateTime").String()); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", dates.Get("localDate").String()); err == nil {
		return &t
	}
	return nil
}
