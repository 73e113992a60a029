// Package cli implements the command-line interface for theatre-alerts.
//
// The cli package provides the Cobra-based CLI: run (weekly listings report),
// venues (productions near a location), calendar, ticketing and serve. It
// loads configuration once, wires the sources through the handler package,
// and formats records as text or JSON with optional sorting by title, venue
// or date.
package cli
