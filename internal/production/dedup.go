package production

import "strings"

// DedupKey returns the identity two records must share to be considered the
// same production: lowercased title plus location, or plus venue name when
// the location is unknown.
func DedupKey(r *Record) string {
	place := r.Location
	if !r.HasLocation() {
		place = r.VenueName
	}
	return strings.ToLower(strings.TrimSpace(r.Title)) + "|" + strings.ToLower(strings.TrimSpace(place))
}

// Deduplicate keeps the first record seen for each DedupKey, preserving
// input order among the records it retains.
func Deduplicate(records []*Record) []*Record {
	seen := make(map[string]bool, len(records))
	unique := make([]*Record, 0, len(records))
	for _, rec := range records {
		key := DedupKey(rec)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, rec)
	}
	return unique
}
