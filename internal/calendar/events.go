package calendar

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/geo"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

var (
	errInvalidItem = errors.New("item is not valid JSON")
	errNotString   = errors.New("value is not a string")
)

// itemsPattern finds the shortest JSON array between "items": and "total"
var itemsPattern = regexp.MustCompile(`(?s)"items":(\[.*?\])\s*,\s*"total"`)

// ExtractEvents pulls the embedded event array out of a widget payload.
// A payload without the array yields an empty list; an array that is
// present but not valid JSON is a *errs.ParseError.
func ExtractEvents(text string) ([]json.RawMessage, error) {
	m := itemsPattern.FindStringSubmatch(text)
	if m == nil {
		return []json.RawMessage{}, nil
	}

	var events []json.RawMessage
	if err := json.Unmarshal([]byte(m[1]), &events); err != nil {
		return nil, &errs.ParseError{Source: source, Field: "items", Err: err}
	}
	return events, nil
}

// Split is the result of categorizing calendar events
type Split struct {
	Current  []*production.Record // running at the reference time, nearest first
	Upcoming []*production.Record // starting later, soonest first
	Ended    int                  // finished before the reference time
	Skipped  int                  // unparseable items
}

// Categorize turns raw events into records and splits them around now.
// An event is current when start <= now <= end and upcoming when
// start > now; events that have already ended are dropped. Items without a
// title or with an unparseable start or end are skipped whole.
func Categorize(events []json.RawMessage, now time.Time, ref production.Coordinates) Split {
	var split Split

	for i, raw := range events {
		rec, err := toRecord(raw)
		if err != nil {
			split.Skipped++
			logger.Debug("Skipping calendar item", logger.Fields{
				"source": source,
				"index":  i,
				"error":  err.Error(),
			})
			continue
		}

		switch {
		case !rec.StartDate.After(now) && !rec.EndDate.Before(now):
			split.Current = append(split.Current, rec)
		case rec.StartDate.After(now):
			split.Upcoming = append(split.Upcoming, rec)
		default:
			split.Ended++
		}
	}

	geo.SortByDistance(split.Current, ref)
	geo.SortByStart(split.Upcoming)
	return split
}

func toRecord(raw json.RawMessage) (*production.Record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &errs.ParseError{Source: source, Err: errInvalidItem}
	}
	item := gjson.ParseBytes(raw)

	title := item.Get("title")
	if title.Type != gjson.String || strings.TrimSpace(title.String()) == "" {
		return nil, &errs.ParseError{Source: source, Field: "title", Err: production.ErrMissingTitle}
	}

	start, err := parseInstant(item.Get("start"))
	if err != nil {
		return nil, &errs.ParseError{Source: source, Field: "start", Err: err}
	}
	end, err := parseInstant(item.Get("end"))
	if err != nil {
		return nil, &errs.ParseError{Source: source, Field: "end", Err: err}
	}

	venue := item.Get("location.venue")
	venueName := production.UnknownVenue
	if venue.Type == gjson.String {
		venueName = venue.String()
	}

	return production.Normalize(production.Draft{
		Title:       title.String(),
		VenueName:   venueName,
		Location:    item.Get("location.address").String(),
		Coordinates: coordinates(item.Get("location.coordinates")),
		StartDate:   &start,
		EndDate:     &end,
		InfoURL:     item.Get("url").String(),
		Source:      production.SourceCalendarWidget,
	})
}

// instantLayouts are tried in order; zone-less forms are read as UTC
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseInstant(v gjson.Result) (time.Time, error) {
	if v.Type != gjson.String {
		return time.Time{}, errNotString
	}
	s := strings.TrimSpace(v.String())
	var lastErr error
	for _, layout := range instantLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// coordinates reads a [lat, lon] pair, returning nil for anything else
func coordinates(v gjson.Result) *production.Coordinates {
	if !v.IsArray() {
		return nil
	}
	pair := v.Array()
	if len(pair) != 2 || pair[0].Type != gjson.Number || pair[1].Type != gjson.Number {
		return nil
	}
	lat, lon := pair[0].Float(), pair[1].Float()
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil
	}
	return &production.Coordinates{Lat: lat, Lon: lon}
}
