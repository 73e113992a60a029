// Package listings scrapes the theatre listings site for productions.
//
// A run issues one search per show title, keeps only result cards typed as a
// show whose title exactly matches the query (ignoring case), then fetches
// each card's "More Info" page and extracts preview, opening and closing
// dates plus the venue. Every detail field is extracted independently and
// reported as a FieldOutcome, so one broken section never costs the others.
package listings
