package steps

import (
	"context"
	"encoding/json"
	"unicode"

	"github.com/carepay/onboarding/services"
	"github.com/carepay/onboarding/storage"
	"github.com/carepay/onboarding/types"
	"github.com/carepay/onboarding/utils"
	"github.com/carepay/onboarding/utils/logger"
)

const otpCells = 4

// OTPGrid models the four-cell code input: one digit per cell, focus
// advances on digit entry and retreats on backspace over an empty
// cell.
type OTPGrid struct {
	cells [otpCells]string
	focus int
}

// NewOTPGrid returns an empty grid focused on the first cell.
func NewOTPGrid() *OTPGrid {
	return &OTPGrid{}
}

// Focus returns the index of the focused cell.
func (g *OTPGrid) Focus() int { return g.focus }

// EnterDigit places a digit in the focused cell and advances focus
// unless the cell is the last one. Non-digits are ignored.
func (g *OTPGrid) EnterDigit(r rune) bool {
	if !unicode.IsDigit(r) {
		return false
	}
	g.cells[g.focus] = string(r)
	if g.focus < otpCells-1 {
		g.focus++
	}
	return true
}

// Backspace clears the focused cell, or moves focus back when the
// focused cell is already empty.
func (g *OTPGrid) Backspace() {
	if g.cells[g.focus] == "" {
		if g.focus > 0 {
			g.focus--
		}
		return
	}
	g.cells[g.focus] = ""
}

// Code joins the cells into the submitted code.
func (g *OTPGrid) Code() string {
	var code string
	for _, c := range g.cells {
		code += c
	}
	return code
}

// OTPStep verifies the one-time code and creates or recovers the
// subject record.
type OTPStep struct {
	carepay  *services.CarePayService
	sessions *storage.SessionStore
}

// NewOTPStep creates the OTP verification controller.
func NewOTPStep(carepay *services.CarePayService, sessions *storage.SessionStore) *OTPStep {
	return &OTPStep{carepay: carepay, sessions: sessions}
}

// Verify submits the code to the backend, which holds the issued one
// and answers through the envelope status, then upserts the subject
// record with the default verified flags. An "already exists" answer
// falls back to a fetch by phone number to recover the identifier.
// The identifier is persisted to the session before the step advances;
// when neither path recovers one, the step still advances and later
// steps fail fast themselves.
func (s *OTPStep) Verify(ctx context.Context, sessionID, mobileNumber, code string) (string, error) {
	if len(code) != otpCells || !utils.IsValidOTP(code) {
		return "", validationErr("please enter the 4 digit code")
	}

	verdict, err := s.carepay.VerifyOTP(ctx, mobileNumber, code)
	if err != nil {
		return "", err
	}
	if !verdict.Success() {
		return "", validationErr("incorrect OTP, please try again")
	}

	envelope, err := s.carepay.SaveSubject(ctx, &types.SubjectRecord{
		MobileNumber:   mobileNumber,
		Verified:       "true",
		MobileVerified: "true",
		JoiningDate:    utils.Today(),
	})
	if err != nil {
		return "", err
	}

	var subjectID string
	switch {
	case envelope.Success():
		var subject types.SubjectRecord
		if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
			if err := json.Unmarshal(envelope.Data, &subject); err != nil {
				logger.Errorf("error: %v", err)
			}
		}
		subjectID = subject.SubjectID
	case envelope.AlreadyExists():
		subject, err := s.carepay.GetSubjectByPhone(ctx, mobileNumber)
		if err != nil {
			logger.Errorf("error: %v", err)
		} else if subject != nil {
			subjectID = subject.SubjectID
		}
	default:
		return "", validationErr("verification failed: " + envelope.Message)
	}

	if err := s.sessions.SetSavedPhone(ctx, sessionID, mobileNumber); err != nil {
		logger.Errorf("error: %v", err)
	}
	if subjectID != "" {
		if err := s.sessions.SetSubjectID(ctx, sessionID, subjectID); err != nil {
			logger.Errorf("error: %v", err)
		}
	} else {
		logger.Warnf("no subject identifier recovered for %s, later steps will fail fast", mobileNumber)
	}

	return subjectID, nil
}
