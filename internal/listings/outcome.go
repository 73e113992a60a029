package listings

import (
	"fmt"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
)

// Reason classifies how a single detail field was obtained
type Reason string

const (
	ReasonOK           Reason = "ok"
	ReasonMissing      Reason = "missing"
	ReasonParseFailure Reason = "parse-failure"
)

// Detail page field names, used as keys in Detail.Fields and in logs
const (
	FieldInfoURL      = "info_url"
	FieldFirstPreview = "first_preview"
	FieldOpeningNight = "opening_night"
	FieldClosingNight = "closing_night"
	FieldVenueName    = "venue_name"
	FieldVenueURL     = "venue_url"
	FieldLocation     = "location"
)

// FieldOutcome is the result of extracting one field: a value, or the
// reason there is none.
type FieldOutcome struct {
	Value  string
	Reason Reason
	Err    error
}

// OK reports whether the field produced a value
func (o FieldOutcome) OK() bool {
	return o.Reason == ReasonOK
}

// extractField runs fn in isolation. An empty value is a miss; an error or a
// panic inside fn is a parse failure.
func extractField(field string, fn func() (string, error)) (out FieldOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = FieldOutcome{
				Reason: ReasonParseFailure,
				Err:    &errs.ParseError{Source: source, Field: field, Err: fmt.Errorf("panic: %v", r)},
			}
		}
	}()

	value, err := fn()
	switch {
	case err != nil:
		return FieldOutcome{Reason: ReasonParseFailure, Err: &errs.ParseError{Source: source, Field: field, Err: err}}
	case value == "":
		return FieldOutcome{Reason: ReasonMissing}
	default:
		return FieldOutcome{Value: value, Reason: ReasonOK}
	}
}
