package production

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel defaults substituted for fields a source could not supply.
const (
	NotAvailable    = "N/A"
	UnknownVenue    = "Unknown Venue"
	UnknownLocation = "Unknown Location"
)

// Source identifies which upstream produced a record
type Source string

const (
	SourceTicketing      Source = "ticketing"
	SourceListingsSite   Source = "listings_site"
	SourceCalendarWidget Source = "calendar_widget"
)

// Coordinates is a WGS84 latitude/longitude pair in degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Record is one theatrical production's run at one venue.
//
// Optional values that the source did not provide are either a sentinel
// string (see NotAvailable, UnknownVenue, UnknownLocation) or nil.
type Record struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	VenueName     string       `json:"venue_name"`
	VenueURL      string       `json:"venue_url,omitempty"`
	Location      string       `json:"location"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	FirstPreview  string       `json:"first_preview"`
	OpeningNight  string       `json:"opening_night"`
	ClosingNight  string       `json:"closing_night"`
	StartDate     *time.Time   `json:"start_date,omitempty"`
	EndDate       *time.Time   `json:"end_date,omitempty"`
	InfoURL       string       `json:"info_url"`
	DistanceMiles *float64     `json:"distance_miles,omitempty"`
	Source        Source       `json:"source"`
}

// Draft carries whatever fields a source adapter managed to extract.
// Empty strings and nil pointers mean "not supplied".
type Draft struct {
	Title        string
	VenueName    string
	VenueURL     string
	Location     string
	Coordinates  *Coordinates
	FirstPreview string
	OpeningNight string
	ClosingNight string
	StartDate    *time.Time
	EndDate      *time.Time
	InfoURL      string
	Source       Source
}

var (
	// ErrMissingTitle is returned for drafts without a usable title.
	ErrMissingTitle = errors.New("production has no title")

	// ErrMissingDates is returned for calendar-widget drafts lacking start or end.
	ErrMissingDates = errors.New("calendar production has no start or end date")
)

// Normalize converts a draft into a Record, filling every missing optional
// field with its sentinel. Drafts that cannot become a valid record are
// rejected rather than emitted with a placeholder title.
func Normalize(d Draft) (*Record, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}
	if d.Source == SourceCalendarWidget && (d.StartDate == nil || d.EndDate == nil) {
		return nil, ErrMissingDates
	}

	rec := &Record{
		Title:        title,
		VenueName:    orDefault(d.VenueName, UnknownVenue),
		VenueURL:     strings.TrimSpace(d.VenueURL),
		Location:     orDefault(d.Location, UnknownLocation),
		Coordinates:  d.Coordinates,
		FirstPreview: orDefault(d.FirstPreview, NotAvailable),
		OpeningNight: orDefault(d.OpeningNight, NotAvailable),
		ClosingNight: orDefault(d.ClosingNight, NotAvailable),
		StartDate:    d.StartDate,
		EndDate:      d.EndDate,
		InfoURL:      orDefault(d.InfoURL, NotAvailable),
		Source:       d.Source,
	}
	rec.ID = GenerateID(rec.Source, rec.Title, rec.VenueName, rec.Location)

	return rec, nil
}

// GenerateID creates a deterministic ID from the fields that identify a run
func GenerateID(source Source, title, venue, location string) string {
	h := sha1.New()
	h.Write([]byte(string(source) + "|" + title + "|" + venue + "|" + location))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// HasLocation reports whether the record carries a real, geocodable location
func (r *Record) HasLocation() bool {
	return r.Location != "" && r.Location != UnknownLocation
}

// WithDistance returns a copy of the record annotated with its distance
func (r *Record) WithDistance(miles float64) *Record {
	cp := *r
	cp.DistanceMiles = &miles
	return &cp
}

func orDefault(s, sentinel string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return sentinel
	}
	return s
}
