package steps

import (
	"context"

	"github.com/carepay/onboarding/services"
	"github.com/carepay/onboarding/services/wizard"
	"github.com/carepay/onboarding/storage"
	"github.com/carepay/onboarding/types"
	"github.com/carepay/onboarding/utils/logger"
)

// ContractStep fetches the contract envelope and marks the flow
// complete. The step never mutates the contract; signing happens in
// the external signing context.
type ContractStep struct {
	carepay  *services.CarePayService
	email    *services.EmailService
	sessions *storage.SessionStore
}

// NewContractStep creates the contract signing controller.
func NewContractStep(carepay *services.CarePayService, email *services.EmailService, sessions *storage.SessionStore) *ContractStep {
	return &ContractStep{carepay: carepay, email: email, sessions: sessions}
}

// Load fetches the contract envelope by subject identifier. A missing
// identifier or a failed fetch is terminal for the step; the operator
// retries with a full reload or goes back.
func (s *ContractStep) Load(ctx context.Context, sessionID string) (*types.ContractEnvelope, error) {
	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := wizard.RequireSubject(subjectID); err != nil {
		return nil, err
	}
	return s.carepay.GetContract(ctx, subjectID)
}

// Complete marks the step done after the operator opened the signing
// URL. Completion is optimistic, there is no server-side confirmation
// poll. A missing signing URL blocks completion.
func (s *ContractStep) Complete(ctx context.Context, sessionID string, contract *types.ContractEnvelope) error {
	if contract == nil || contract.SigningURL == "" {
		return validationErr("contract is not ready for signing yet")
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
		logger.Errorf("error: %v", err)
	}
	if err := s.email.NotifyOnboardingComplete(subjectID, "", phone); err != nil {
		logger.Warnf("completion notification failed: %v", err)
	}

	return nil
}
