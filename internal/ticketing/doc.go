// Package ticketing queries the Ticketmaster Discovery API for productions.
//
// Each show title is a keyword search. Result events are read leniently:
// an event missing its venue or dates still becomes a record with sentinel
// values, and a malformed event is skipped without failing the page.
package ticketing
