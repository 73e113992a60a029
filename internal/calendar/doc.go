// Package calendar reads productions from the society's events calendar
// widget.
//
// The widget has no JSON API; its data endpoint answers a form POST with a
// script payload that embeds the event list. WidgetSource hides that behind
// the Source interface so the rest of the pipeline only sees raw event
// objects. Categorize splits events into running and upcoming productions
// relative to a reference time.
package calendar
