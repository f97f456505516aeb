package steps

import (
	"context"

	"github.com/carepay/onboarding/services"
	"github.com/carepay/onboarding/utils"
)

// PhoneStep collects and verifies the phone number that anchors the
// whole flow.
type PhoneStep struct {
	carepay *services.CarePayService
}

// NewPhoneStep creates the phone entry controller.
func NewPhoneStep(carepay *services.CarePayService) *PhoneStep {
	return &PhoneStep{carepay: carepay}
}

// SendOTP validates the number and asks the backend to send a code.
// An invalid number is rejected without any request going out.
func (s *PhoneStep) SendOTP(ctx context.Context, mobileNumber string) error {
	if !utils.IsValidMobileNumber(mobileNumber) {
		return validationErr("please enter a valid 10 digit mobile number")
	}
	return s.carepay.SendOTP(ctx, mobileNumber)
}
