package steps

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepay/onboarding/services"
)

func TestOTPGrid(t *testing.T) {
	t.Run("one digit per cell advances focus", func(t *testing.T) {
		g := NewOTPGrid()
		assert.Equal(t, 0, g.Focus())

		assert.True(t, g.EnterDigit('1'))
		assert.Equal(t, 1, g.Focus())
		assert.True(t, g.EnterDigit('2'))
		assert.True(t, g.EnterDigit('3'))
		assert.True(t, g.EnterDigit('4'))

		// focus stays on the final cell
		assert.Equal(t, 3, g.Focus())
		assert.Equal(t, "1234", g.Code())
	})

	t.Run("non-digits are ignored", func(t *testing.T) {
		g := NewOTPGrid()
		assert.False(t, g.EnterDigit('a'))
		assert.Equal(t, 0, g.Focus())
		assert.Empty(t, g.Code())
	})

	t.Run("backspace clears then retreats", func(t *testing.T) {
		g := NewOTPGrid()
		g.EnterDigit('1')
		g.EnterDigit('2')

		// focus sits on the empty third cell, so it moves back
		g.Backspace()
		assert.Equal(t, 1, g.Focus())
		assert.Equal(t, "12", g.Code())

		// the focused cell holds a digit, so it clears in place
		g.Backspace()
		assert.Equal(t, 1, g.Focus())
		assert.Equal(t, "1", g.Code())

		g.Backspace()
		assert.Equal(t, 0, g.Focus())
	})
}

func TestOTPStepVerify(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	ctx := context.Background()

	t.Run("malformed codes are rejected without a request", func(t *testing.T) {
		store, sessionID := testSessions(t)
		step := NewOTPStep(services.NewCarePayService(), store)

		httpmock.Reset()
		for _, code := range []string{"", "123", "12345", "12a4"} {
			_, err := step.Verify(ctx, sessionID, "9898989898", code)
			assert.True(t, IsValidation(err), "code %q", code)
		}
		assert.Zero(t, httpmock.GetTotalCallCount())
	})

	t.Run("rejected code does not advance", func(t *testing.T) {
		store, sessionID := testSessions(t)
		step := NewOTPStep(services.NewCarePayService(), store)

		httpmock.Reset()
		httpmock.RegisterResponder("GET", coreURL+"/getOtp",
			httpmock.NewStringResponder(200, `{"status":400,"data":null,"message":"Invalid OTP"}`))

		_, err := step.Verify(ctx, sessionID, "9898989898", "1234")
		assert.True(t, IsValidation(err))
	})

	t.Run("backend verdict decides, not a local compare", func(t *testing.T) {
		store, sessionID := testSessions(t)
		step := NewOTPStep(services.NewCarePayService(), store)

		// The verification endpoint answers with an opaque data string,
		// never the issued code. A 200 envelope is the only signal.
		httpmock.Reset()
		httpmock.RegisterResponder("GET", coreURL+"/getOtp",
			httpmock.NewStringResponder(200, `{"status":200,"data":"BANK","message":"OTP verified"}`))
		httpmock.RegisterResponder("POST", coreURL+"/saveOrUpdateDoctorDetails",
			httpmock.NewStringResponder(200, `{"status":200,"data":{"doctorId":"DOC1"},"message":""}`))

		subjectID, err := step.Verify(ctx, sessionID, "9898989898", "1234")
		require.NoError(t, err)
		assert.Equal(t, "DOC1", subjectID)

		info := httpmock.GetCallCountInfo()
		assert.Equal(t, 1, info["GET "+coreURL+"/getOtp"])
	})

	t.Run("success creates the subject and stores its identifier", func(t *testing.T) {
		store, sessionID := testSessions(t)
		step := NewOTPStep(services.NewCarePayService(), store)

		httpmock.Reset()
		httpmock.RegisterResponder("GET", coreURL+"/getOtp",
			httpmock.NewStringResponder(200, `{"status":200,"data":"BANK","message":""}`))
		httpmock.RegisterResponder("POST", coreURL+"/saveOrUpdateDoctorDetails",
			httpmock.NewStringResponder(200, `{"status":200,"data":{"doctorId":"DOC1"},"message":""}`))

		subjectID, err := step.Verify(ctx, sessionID, "9898989898", "1234")
		require.NoError(t, err)
		assert.Equal(t, "DOC1", subjectID)

		stored, err := store.SubjectID(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "DOC1", stored)

		phone, err := store.SavedPhone(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "9898989898", phone)
	})

	t.Run("already exists falls back to a fetch by phone", func(t *testing.T) {
		store, sessionID := testSessions(t)
		step := NewOTPStep(services.NewCarePayService(), store)

		httpmock.Reset()
		httpmock.RegisterResponder("GET", coreURL+"/getOtp",
			httpmock.NewStringResponder(200, `{"status":200,"data":"BANK","message":""}`))
		httpmock.RegisterResponder("POST", coreURL+"/saveOrUpdateDoctorDetails",
			httpmock.NewStringResponder(200, `{"status":403,"data":null,"message":"already exists"}`))
		httpmock.RegisterResponder("GET", coreURL+"/getDoctorDetailsByPhoneNumber",
			httpmock.NewStringResponder(200, `{"status":200,"data":{"doctorId":"DOC2","phoneNumber":"9898989898"},"message":""}`))

		subjectID, err := step.Verify(ctx, sessionID, "9898989898", "1234")
		require.NoError(t, err)
		assert.Equal(t, "DOC2", subjectID)
	})

	t.Run("unrecoverable identifier still advances", func(t *testing.T) {
		store, sessionID := testSessions(t)
		step := NewOTPStep(services.NewCarePayService(), store)

		httpmock.Reset()
		httpmock.RegisterResponder("GET", coreURL+"/getOtp",
			httpmock.NewStringResponder(200, `{"status":200,"data":"BANK","message":""}`))
		httpmock.RegisterResponder("POST", coreURL+"/saveOrUpdateDoctorDetails",
			httpmock.NewStringResponder(200, `{"status":403,"data":null,"message":"already exists"}`))
		httpmock.RegisterResponder("GET", coreURL+"/getDoctorDetailsByPhoneNumber",
			httpmock.NewStringResponder(200, `{"status":404,"data":null,"message":"not found"}`))

		subjectID, err := step.Verify(ctx, sessionID, "9898989898", "1234")
		assert.NoError(t, err)
		assert.Empty(t, subjectID)
	})
}
