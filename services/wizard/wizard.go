// Package wizard holds the step machine that drives the onboarding
// flow and the small amount of cross-step state that goes with it.
package wizard

import (
	"errors"
	"sync"
)

// Step identifies one screen of the onboarding flow. The zero value is
// the phone entry step.
type Step int

const (
	StepPhone Step = iota
	StepOTP
	StepPersonal
	StepPractice
	StepAddress
	StepBank
	StepContract

	stepCount
)

func (s Step) String() string {
	switch s {
	case StepPhone:
		return "phone"
	case StepOTP:
		return "otp"
	case StepPersonal:
		return "personal"
	case StepPractice:
		return "practice"
	case StepAddress:
		return "address"
	case StepBank:
		return "bank"
	case StepContract:
		return "contract"
	default:
		return "unknown"
	}
}

// RequiresSubject reports whether the step needs a subject identifier
// to address the backend record.
func (s Step) RequiresSubject() bool {
	return s >= StepPersonal
}

// ErrNoSubject is reported when a step that needs the subject
// identifier runs before verification produced one.
var ErrNoSubject = errors.New("no subject identifier, complete phone verification first")

// RequireSubject guards operations that address the backend record.
func RequireSubject(subjectID string) error {
	if subjectID == "" {
		return ErrNoSubject
	}
	return nil
}

// Wizard tracks the active step, the outputs collected from completed
// steps, and the single dismissible error banner. Steps reload their
// own data from the backend; collected outputs exist for the values
// that flow forward directly, like the phone number.
type Wizard struct {
	mu        sync.Mutex
	step      Step
	collected map[Step]interface{}
	lastErr   string
}

// New creates a wizard positioned on the phone step.
func New() *Wizard {
	return &Wizard{
		collected: make(map[Step]interface{}),
	}
}

// Step returns the active step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// GoTo moves to step n, clamped to the valid range, and returns the
// resulting step.
func (w *Wizard) GoTo(n int) Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case n < 0:
		w.step = 0
	case n >= int(stepCount):
		w.step = stepCount - 1
	default:
		w.step = Step(n)
	}
	return w.step
}

// Advance records the just-completed step's output and moves forward.
func (w *Wizard) Advance(output interface{}) Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.collected[w.step] = output
	if w.step < stepCount-1 {
		w.step++
	}
	return w.step
}

// Retreat moves one step back. Nothing is validated or persisted on
// the way out; steps reload their values on entry.
func (w *Wizard) Retreat() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > 0 {
		w.step--
	}
	return w.step
}

// Collected returns the recorded output of a completed step, or nil.
func (w *Wizard) Collected(step Step) interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collected[step]
}

// SetError sets the banner message for the active screen.
func (w *Wizard) SetError(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = msg
}

// Error returns the banner message, "" when dismissed.
func (w *Wizard) Error() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// ClearError dismisses the banner. Only the display state is cleared,
// step data is untouched.
func (w *Wizard) ClearError() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = ""
}
