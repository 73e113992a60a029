// Package production defines the canonical record every source adapter
// normalizes into, and the deduplication applied before geographic filtering.
//
// Normalize is the only place sentinel defaults ("N/A", "Unknown Venue",
// "Unknown Location") are introduced. Deduplicate collapses records sharing a
// case-insensitive (title, location) key, keeping the first one seen.
package production
