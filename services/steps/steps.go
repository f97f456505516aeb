// Package steps holds the transport-independent controllers behind
// each screen of the onboarding flow. Each controller loads prior
// persisted values on entry, applies enrichment auto-fill, validates
// input, and persists on advance.
package steps

import (
	"errors"
	"sync"

	"github.com/carepay/onboarding/services/wizard"
)

// ValidationError marks input rejected before any request was made.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErr(msg string) error {
	return &ValidationError{msg: msg}
}

// IsValidation reports whether err is a client-side validation
// failure, surfaced inline with the step state unchanged.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// debouncers keys one debouncer per session for a single concern, so
// bursts from the same session coalesce without sessions sharing a
// quiet window.
type debouncers struct {
	mu     sync.Mutex
	window func() *wizard.Debouncer
	bySess map[string]*wizard.Debouncer
}

func newDebouncers(factory func() *wizard.Debouncer) *debouncers {
	return &debouncers{
		window: factory,
		bySess: make(map[string]*wizard.Debouncer),
	}
}

func (d *debouncers) forSession(sessionID string) *wizard.Debouncer {
	d.mu.Lock()
	defer d.mu.Unlock()
	if deb, ok := d.bySess[sessionID]; ok {
		return deb
	}
	deb := d.window()
	d.bySess[sessionID] = deb
	return deb
}

// stop tears down the session's debouncer, cancelling any pending run.
func (d *debouncers) stop(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if deb, ok := d.bySess[sessionID]; ok {
		deb.Stop()
		delete(d.bySess, sessionID)
	}
}
