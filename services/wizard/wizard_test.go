package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWizardNavigation(t *testing.T) {
	t.Run("starts on phone step", func(t *testing.T) {
		w := New()
		assert.Equal(t, StepPhone, w.Step())
	})

	t.Run("goTo clamps to valid range", func(t *testing.T) {
		w := New()
		assert.Equal(t, StepContract, w.GoTo(99))
		assert.Equal(t, StepPhone, w.GoTo(-5))
		assert.Equal(t, StepAddress, w.GoTo(4))
	})

	t.Run("advance records output and moves forward", func(t *testing.T) {
		w := New()
		w.Advance("9898989898")
		assert.Equal(t, StepOTP, w.Step())
		assert.Equal(t, "9898989898", w.Collected(StepPhone))
	})

	t.Run("advance stops at the last step", func(t *testing.T) {
		w := New()
		w.GoTo(int(StepContract))
		assert.Equal(t, StepContract, w.Advance(nil))
	})

	t.Run("retreat moves back and stops at zero", func(t *testing.T) {
		w := New()
		w.GoTo(int(StepOTP))
		assert.Equal(t, StepPhone, w.Retreat())
		assert.Equal(t, StepPhone, w.Retreat())
	})

	t.Run("retreat keeps collected outputs", func(t *testing.T) {
		w := New()
		w.Advance("9898989898")
		w.Retreat()
		assert.Equal(t, "9898989898", w.Collected(StepPhone))
	})
}

func TestWizardErrorBanner(t *testing.T) {
	w := New()
	assert.Empty(t, w.Error())

	w.SetError("check your connection")
	assert.Equal(t, "check your connection", w.Error())

	w.Advance("output")
	w.ClearError()
	assert.Empty(t, w.Error())
	assert.Equal(t, "output", w.Collected(StepPhone))
}

func TestRequireSubject(t *testing.T) {
	assert.ErrorIs(t, RequireSubject(""), ErrNoSubject)
	assert.NoError(t, RequireSubject("DOC123"))
}

func TestStepRequiresSubject(t *testing.T) {
	assert.False(t, StepPhone.RequiresSubject())
	assert.False(t, StepOTP.RequiresSubject())
	assert.True(t, StepPersonal.RequiresSubject())
	assert.True(t, StepContract.RequiresSubject())
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "phone", StepPhone.String())
	assert.Equal(t, "contract", StepContract.String())
	assert.Equal(t, "unknown", Step(42).String())
}
