package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone    SortOrder = ""
	SortByDate  SortOrder = "date"
	SortByVenue SortOrder = "venue"
	SortByTitle SortOrder = "title"
)

// ParseSortOrder validates a --sort value
func ParseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortNone, SortByDate, SortByVenue, SortByTitle:
		return order, nil
	default:
		return SortNone, fmt.Errorf("invalid sort: %s (must be 'title', 'venue' or 'date')", s)
	}
}

// sortRecords sorts records in place; SortNone keeps the pipeline order
func sortRecords(records []*production.Record, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByDate(records[i], records[j])
		})
	case SortByVenue:
		sort.SliceStable(records, func(i, j int) bool {
			vi, vj := strings.ToLower(records[i].VenueName), strings.ToLower(records[j].VenueName)
			if vi != vj {
				return vi < vj
			}
			// If venues are equal, sort by date
			return compareByDate(records[i], records[j])
		})
	case SortByTitle:
		sort.SliceStable(records, func(i, j int) bool {
			ti, tj := strings.ToLower(records[i].Title), strings.ToLower(records[j].Title)
			if ti != tj {
				return ti < tj
			}
			// If titles are equal, sort by date
			return compareByDate(records[i], records[j])
		})
	}
}

// compareByDate compares two records by their start date
// Returns true if record i should come before record j
func compareByDate(i, j *production.Record) bool {
	// If both dates are known, compare them
	if i.StartDate != nil && j.StartDate != nil {
		return i.StartDate.Before(*j.StartDate)
	}

	// If only one date is known, put the known one first
	if i.StartDate != nil {
		return true
	}
	if j.StartDate != nil {
		return false
	}

	// If neither has a date, sort by title then venue
	ti, tj := strings.ToLower(i.Title), strings.ToLower(j.Title)
	if ti != tj {
		return ti < tj
	}
	return strings.ToLower(i.VenueName) < strings.ToLower(j.VenueName)
}
