// Package errs defines the failure taxonomy shared by the source adapters,
// the geo stage and configuration loading.
//
// Each type carries enough context to be logged on its own and unwraps to
// the underlying cause, so callers match with errors.As and still see the
// underlying transport or decoding error.
package errs

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Redacted replaces secrets in URLs that reach logs
const Redacted = "REDACTED"

// FetchError reports a network failure, timeout, or non-2xx response on an
// outbound request.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: fetching %s: unexpected status code %d", e.Source, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: fetching %s: %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports malformed data found where a value was expected.
// Field is empty when the whole payload failed to parse.
type ParseError struct {
	Source string
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: parsing payload: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s: parsing %s: %v", e.Source, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigError reports a required setting that is absent at startup.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required environment variable: %s", e.Setting)
}

// GeocodeError reports a location string that could not be resolved.
// It is never fatal to a run.
type GeocodeError struct {
	Location string
	Err      error
}

func (e *GeocodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("geocoding %q: no match", e.Location)
	}
	return fmt.Sprintf("geocoding %q: %v", e.Location, e.Err)
}

func (e *GeocodeError) Unwrap() error { return e.Err }

// RedactSecret removes secret, raw or query-escaped, from s.
func RedactSecret(s, secret string) string {
	if secret == "" {
		return s
	}
	s = strings.ReplaceAll(s, secret, Redacted)
	return strings.ReplaceAll(s, url.QueryEscape(secret), Redacted)
}

// RedactURLError scrubs secret from the URL of a *url.Error anywhere in
// err's chain, so transport failures can be logged whole. err is returned.
func RedactURLError(err error, secret string) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = RedactSecret(ue.URL, secret)
	}
	return err
}
