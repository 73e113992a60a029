// Package geo resolves locations to coordinates and ranks productions by
// distance.
//
// FilterAndSort is the geo stage of the pipeline: it keeps records within a
// radius of the user's location, nearest first. SortByDistance and
// SortByStart order the calendar's current and upcoming lists. Geocoding
// goes through the Geocoder interface; Nominatim is the production
// implementation and Cache memoizes any Geocoder.
package geo
