package steps

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/carepay/onboarding/services"
)

func TestPhoneStepSendOTP(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	step := NewPhoneStep(services.NewCarePayService())

	t.Run("invalid numbers are rejected without a request", func(t *testing.T) {
		for _, number := range []string{"", "12345", "5876543210", "98765432101", "98765a3210"} {
			err := step.SendOTP(context.Background(), number)
			assert.True(t, IsValidation(err), "number %q", number)
		}
		assert.Zero(t, httpmock.GetTotalCallCount())
	})

	t.Run("valid number sends the code", func(t *testing.T) {
		httpmock.RegisterResponder("GET", coreURL+"/sendOtp",
			httpmock.NewStringResponder(200, `{"status":200,"data":null,"message":"sent"}`))

		assert.NoError(t, step.SendOTP(context.Background(), "9898989898"))
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
	})

	t.Run("backend failure surfaces an error", func(t *testing.T) {
		httpmock.RegisterResponder("GET", coreURL+"/sendOtp",
			httpmock.NewStringResponder(200, `{"status":500,"data":null,"message":"try later"}`))

		err := step.SendOTP(context.Background(), "9898989898")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "try later")
	})
}
