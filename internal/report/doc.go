// Package report renders production records for people.
//
// It owns every user-facing format: the per-production HTML fragment and
// text line used by the weekly listings report, the page that wraps those
// fragments, the calendar current/upcoming digest, and the venue digest
// email. Functions here are pure; they never fetch or send anything.
package report
