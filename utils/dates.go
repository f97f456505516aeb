package utils

import (
	"strings"
	"time"
)

const (
	isoDateLayout     = "2006-01-02"
	backendDateLayout = "02-01-2006"
	usDateLayout      = "01/02/2006"
)

// ToBackendDate converts a date to the DD-MM-YYYY form the backend
// expects. Input already in that form passes through unchanged; ISO
// YYYY-MM-DD and MM/DD/YYYY inputs are converted. Empty input yields
// empty output; anything that fails to parse yields "".
func ToBackendDate(value string) string {
	if value == "" {
		return ""
	}
	if _, err := time.Parse(backendDateLayout, value); err == nil {
		return value
	}
	for _, layout := range []string{isoDateLayout, usDateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(backendDateLayout)
		}
	}
	return ""
}

// ToISODate converts a backend date (DD-MM-YYYY) to ISO YYYY-MM-DD.
// Empty input yields empty output; anything that fails to parse
// yields "".
func ToISODate(backend string) string {
	if backend == "" {
		return ""
	}
	t, err := time.Parse(backendDateLayout, backend)
	if err != nil {
		return ""
	}
	return t.Format(isoDateLayout)
}

// NormalizeWireDate accepts dates as they arrive from upstream systems
// in DD-MM-YYYY, YYYY-MM-DD or MM/DD/YYYY form, optionally followed by
// a time component, and normalizes them to ISO YYYY-MM-DD. Empty input
// yields empty output; anything unparseable yields "".
func NormalizeWireDate(value string) string {
	if value == "" {
		return ""
	}
	if i := strings.IndexByte(value, ' '); i >= 0 {
		return NormalizeWireDate(value[:i])
	}
	for _, layout := range []string{backendDateLayout, isoDateLayout, usDateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(isoDateLayout)
		}
	}
	return ""
}

// Today returns the current date in backend DD-MM-YYYY form.
func Today() string {
	return time.Now().Format(backendDateLayout)
}
