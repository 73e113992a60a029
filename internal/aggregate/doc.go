// Package aggregate drives a source across a list of show titles and turns
// what comes back into one report.
//
// Titles are searched concurrently up to a limit, but results are always
// assembled in input order. A title whose search fails contributes an
// inline notice instead of records and never stops the others. Collected
// records are then deduplicated, optionally filtered by distance from the
// user, and truncated to the configured maximum.
package aggregate
