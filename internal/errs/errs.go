// Package errs defines the error taxonomy for the LCZ pipeline. Acquisition
// failures are typed so callers can present kind-specific remediation without
// parsing message strings. Validation findings are never expressed as errors;
// they are returned as data (see internal/validate).
package errs

import (
	"errors"
	"fmt"
)

// Category identifies the failure kind carried by a pipeline error.
type Category string

const (
	CategoryGeocode    Category = "geocode"
	CategoryConnection Category = "connection"
	CategoryData       Category = "data"
)

// GeocodeError reports that a place name could not be resolved to a boundary
// after all query reformulations and retries were exhausted.
type GeocodeError struct {
	Query       string
	Attempts    int
	Suggestions []string
	Err         error
}

func (e *GeocodeError) Error() string {
	return fmt.Sprintf("geocode: could not resolve %q after %d attempts: %v", e.Query, e.Attempts, e.Err)
}

func (e *GeocodeError) Unwrap() error { return e.Err }

// Category implements Categorized.
func (e *GeocodeError) Category() Category { return CategoryGeocode }

// NewGeocodeError builds a GeocodeError with the standard remediation hints.
func NewGeocodeError(query string, attempts int, cause error) *GeocodeError {
	return &GeocodeError{
		Query:    query,
		Attempts: attempts,
		Err:      cause,
		Suggestions: []string{
			"try the full official place name",
			"add the country, e.g. \"" + query + ", Brazil\"",
			"check the spelling",
		},
	}
}

// ConnectionError reports that the remote raster source stayed unreachable
// through the whole retry budget.
type ConnectionError struct {
	URL    string
	Causes []string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection: %s unreachable after retries: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Category implements Categorized.
func (e *ConnectionError) Category() Category { return CategoryConnection }

// NewConnectionError builds a ConnectionError listing the likely causes.
func NewConnectionError(url string, cause error) *ConnectionError {
	return &ConnectionError{
		URL: url,
		Err: cause,
		Causes: []string{
			"unstable internet connection",
			"raster service outage",
			"firewall or proxy blocking range requests",
		},
	}
}

// DataProcessingError reports structurally or semantically invalid raster or
// vector data. It is also the wrapper for unexpected failures in stages that
// have no external I/O and therefore no retry.
type DataProcessingError struct {
	Stage string
	Err   error
}

func (e *DataProcessingError) Error() string {
	return fmt.Sprintf("data processing: %s: %v", e.Stage, e.Err)
}

func (e *DataProcessingError) Unwrap() error { return e.Err }

// Category implements Categorized.
func (e *DataProcessingError) Category() Category { return CategoryData }

// NewDataError wraps cause as a DataProcessingError for the named stage.
func NewDataError(stage string, cause error) *DataProcessingError {
	return &DataProcessingError{Stage: stage, Err: cause}
}

// Categorized is implemented by all taxonomy errors.
type Categorized interface {
	error
	Category() Category
}

// CategoryOf returns the category of err if it (or anything in its chain) is a
// taxonomy error, or "" otherwise.
func CategoryOf(err error) Category {
	var c Categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	return ""
}
