package steps

import (
	"context"
	"encoding/json"

	"github.com/carepay/onboarding/services"
	"github.com/carepay/onboarding/services/wizard"
	"github.com/carepay/onboarding/storage"
	"github.com/carepay/onboarding/types"
	"github.com/carepay/onboarding/utils"
	"github.com/carepay/onboarding/utils/logger"
)

// AddressForm is the editable state of the address step.
type AddressForm struct {
	Building string `json:"address"`
	Locality string `json:"locality"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

// AddressStep collects the subject's practice address.
type AddressStep struct {
	carepay  *services.CarePayService
	sessions *storage.SessionStore
}

// NewAddressStep creates the address controller.
func NewAddressStep(carepay *services.CarePayService, sessions *storage.SessionStore) *AddressStep {
	return &AddressStep{carepay: carepay, sessions: sessions}
}

// Load prefers the one-shot registry-derived address cached by the
// practice step over the backend-persisted record. The cache is
// cleared on successful submission, not here.
func (s *AddressStep) Load(ctx context.Context, sessionID string) (*AddressForm, error) {
	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := wizard.RequireSubject(subjectID); err != nil {
		return nil, err
	}

	cached, err := s.sessions.RegistryAddress(ctx, sessionID)
	if err != nil {
		logger.Errorf("error: %v", err)
	}
	if cached != "" {
		var parsed types.ParsedAddress
		if err := json.Unmarshal([]byte(cached), &parsed); err != nil {
			logger.Errorf("error: %v", err)
		} else {
			return &AddressForm{
				Building: parsed.Building,
				Locality: parsed.Locality,
				City:     parsed.City,
				State:    parsed.State,
				Pincode:  parsed.Pincode,
			}, nil
		}
	}

	record, err := s.carepay.GetAddress(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &AddressForm{}, nil
	}
	return &AddressForm{
		Building: record.Building,
		Locality: record.Locality,
		City:     record.City,
		State:    record.State,
		Pincode:  record.Pincode,
	}, nil
}

// Submit validates and upserts the address. An "already exists"
// answer counts as success. The one-shot registry cache is cleared
// only after the save went through.
func (s *AddressStep) Submit(ctx context.Context, sessionID string, form AddressForm) error {
	if form.Building == "" || form.City == "" || form.State == "" {
		return validationErr("please fill in the address, city and state")
	}
	if !utils.IsValidPincode(form.Pincode) {
		return validationErr("please enter a valid 6 digit pincode")
	}

	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := wizard.RequireSubject(subjectID); err != nil {
		return err
	}

	envelope, err := s.carepay.SaveAddress(ctx, &types.AddressRecord{
		SubjectID: subjectID,
		Building:  form.Building,
		Locality:  form.Locality,
		City:      form.City,
		State:     form.State,
		Pincode:   form.Pincode,
	})
	if err != nil {
		return err
	}
	if !envelope.Success() && !envelope.AlreadyExists() {
		return validationErr("failed to save address: " + envelope.Message)
	}

	if err := s.sessions.ClearRegistryAddress(ctx, sessionID); err != nil {
		logger.Errorf("error: %v", err)
	}
	return nil
}
