package steps

import (
	"context"
	"strings"

	"github.com/carepay/onboarding/config"
	"github.com/carepay/onboarding/services"
	"github.com/carepay/onboarding/services/wizard"
	"github.com/carepay/onboarding/storage"
	"github.com/carepay/onboarding/types"
	"github.com/carepay/onboarding/utils"
	"github.com/carepay/onboarding/utils/logger"
)

// PersonalForm is the editable state of the personal details step.
// The birth date is kept in ISO form for the date picker.
type PersonalForm struct {
	Name         string `json:"name"`
	PAN          string `json:"panCard"`
	Email        string `json:"emailId"`
	DateOfBirth  string `json:"dateOfBirth"`
	ReferralCode string `json:"scoutCode"`
}

// PersonalView is what the step shows on entry.
type PersonalView struct {
	Form          PersonalForm         `json:"form"`
	ReferralCodes []types.ReferralCode `json:"referralCodes"`
	PANDocURL     string               `json:"panDocUrl,omitempty"`
}

// PANUploadResult reports the outcome of a tax identity document
// upload and its OCR pass.
type PANUploadResult struct {
	URL      string       `json:"url"`
	Form     PersonalForm `json:"form"`
	Message  string       `json:"message"`
	Mismatch bool         `json:"mismatch"`
}

// PersonalStep collects the subject's identity fields.
type PersonalStep struct {
	carepay  *services.CarePayService
	oculon   *services.OculonService
	sessions *storage.SessionStore
	prefill  *debouncers
}

// NewPersonalStep creates the personal details controller.
func NewPersonalStep(carepay *services.CarePayService, oculon *services.OculonService, sessions *storage.SessionStore) *PersonalStep {
	window := config.EnrichmentConfig().DebounceWindow
	return &PersonalStep{
		carepay:  carepay,
		oculon:   oculon,
		sessions: sessions,
		prefill: newDebouncers(func() *wizard.Debouncer {
			return wizard.NewDebouncer(window)
		}),
	}
}

// Load fetches the persisted subject by phone number along with the
// selectable referral codes. A failed referral code fetch is not
// fatal; the choice list just comes back empty.
func (s *PersonalStep) Load(ctx context.Context, sessionID string) (*PersonalView, error) {
	phone, err := s.sessions.SavedPhone(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &PersonalView{}

	subject, err := s.carepay.GetSubjectByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if subject != nil {
		view.Form = PersonalForm{
			Name:         subject.Name,
			PAN:          subject.PAN,
			Email:        subject.Email,
			DateOfBirth:  utils.NormalizeWireDate(subject.DateOfBirth),
			ReferralCode: subject.ReferralCode,
		}
	}

	codes, err := s.carepay.ListReferralCodes(ctx)
	if err != nil {
		logger.Warnf("referral code fetch failed: %v", err)
	} else {
		view.ReferralCodes = codes
	}

	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err == nil && subjectID != "" {
		docs, err := s.carepay.GetDocuments(ctx, subjectID)
		if err != nil {
			logger.Warnf("document fetch failed: %v", err)
		} else {
			view.PANDocURL = docs.PANCardURL
		}
	}

	return view, nil
}

// Prefill runs the phone enrichment lookup and fills the tax
// identifier, email and birth date only where currently empty.
// Operator-entered and already-loaded values are never overwritten.
func (s *PersonalStep) Prefill(ctx context.Context, form PersonalForm, mobileNumber string) (PersonalForm, bool) {
	firstName := strings.Fields(form.Name)
	if mobileNumber == "" || len(firstName) == 0 {
		return form, false
	}

	data, err := s.oculon.PhonePrefill(ctx, mobileNumber, firstName[0])
	if err != nil {
		logger.Warnf("phone prefill failed: %v", err)
		return form, false
	}

	changed := false
	if form.PAN == "" && data.PAN != "" {
		form.PAN = strings.ToUpper(data.PAN)
		changed = true
	}
	if form.Email == "" && data.Email != "" {
		form.Email = data.Email
		changed = true
	}
	if form.DateOfBirth == "" && data.DateOfBirth != "" {
		if dob := utils.NormalizeWireDate(data.DateOfBirth); dob != "" {
			form.DateOfBirth = dob
			changed = true
		}
	}
	return form, changed
}

// SchedulePrefill queues a debounced Prefill for the session. Bursts
// of calls coalesce; only the last runs. The apply callback receives
// the merged form when the lookup produced changes.
func (s *PersonalStep) SchedulePrefill(ctx context.Context, sessionID string, form PersonalForm, mobileNumber string, apply func(PersonalForm)) *wizard.Task {
	return s.prefill.forSession(sessionID).Schedule(func() {
		merged, changed := s.Prefill(ctx, form, mobileNumber)
		if changed {
			apply(merged)
		}
	})
}

// UploadPANDocument stores the tax identity document and runs OCR over
// it. A non-empty form value is compared case-insensitively against
// the extracted identifier: equal is confirmation, unequal is a
// mismatch warning with the field left untouched. An empty field takes
// the extracted value. Name and birth date fill only if empty.
func (s *PersonalStep) UploadPANDocument(ctx context.Context, sessionID, filename string, document []byte, form PersonalForm) (*PANUploadResult, error) {
	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := wizard.RequireSubject(subjectID); err != nil {
		return nil, err
	}

	url, err := s.carepay.UploadDocument(ctx, types.DocumentTagPAN, subjectID, filename, document)
	if err != nil {
		return nil, err
	}

	result := &PANUploadResult{URL: url, Form: form}

	ocr, err := s.oculon.PANCardOCR(ctx, filename, document)
	if err != nil {
		logger.Warnf("PAN OCR failed: %v", err)
		result.Message = "document uploaded"
		return result, nil
	}

	switch {
	case form.PAN == "" && ocr.PAN != "":
		result.Form.PAN = strings.ToUpper(ocr.PAN)
		result.Message = "PAN extracted from document"
	case form.PAN != "" && strings.EqualFold(form.PAN, ocr.PAN):
		result.Message = "PAN matches the uploaded document"
	case form.PAN != "" && ocr.PAN != "":
		result.Message = "uploaded document does not match the entered PAN"
		result.Mismatch = true
	default:
		result.Message = "document uploaded"
	}

	if result.Form.Name == "" && ocr.Name != "" {
		result.Form.Name = ocr.Name
	}
	if result.Form.DateOfBirth == "" && ocr.DateOfBirth != "" {
		result.Form.DateOfBirth = utils.NormalizeWireDate(ocr.DateOfBirth)
	}

	return result, nil
}

// Submit upserts the subject record with the current field values and
// caches the tax identifier and phone number for the practice step's
// enrichment cascade. An "already exists" answer counts as success.
func (s *PersonalStep) Submit(ctx context.Context, sessionID string, form PersonalForm) error {
	if form.Name == "" {
		return validationErr("please enter your name")
	}
	if form.PAN != "" && !utils.IsValidPAN(strings.ToUpper(form.PAN)) {
		return validationErr("please enter a valid PAN")
	}

	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := wizard.RequireSubject(subjectID); err != nil {
		return err
	}
	phone, err := s.sessions.SavedPhone(ctx, sessionID)
	if err != nil {
		return err
	}

	envelope, err := s.carepay.SaveSubject(ctx, &types.SubjectRecord{
		SubjectID:    subjectID,
		MobileNumber: phone,
		Name:         form.Name,
		PAN:          strings.ToUpper(form.PAN),
		Email:        form.Email,
		DateOfBirth:  utils.ToBackendDate(form.DateOfBirth),
		ReferralCode: form.ReferralCode,
	})
	if err != nil {
		return err
	}
	if !envelope.Success() && !envelope.AlreadyExists() {
		return validationErr("failed to save details: " + envelope.Message)
	}

	if form.PAN != "" {
		if err := s.sessions.SetSavedPAN(ctx, sessionID, strings.ToUpper(form.PAN)); err != nil {
			logger.Errorf("error: %v", err)
		}
	}

	s.Teardown(sessionID)
	return nil
}

// Teardown cancels any pending prefill for the session.
func (s *PersonalStep) Teardown(sessionID string) {
	s.prefill.stop(sessionID)
}
