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

const ifscLength = 11

// BankForm is the editable state of the bank details step. The
// confirmation copy of the account number is always operator-typed,
// never pre-filled.
type BankForm struct {
	AccountNumber        string `json:"accountNumber"`
	ConfirmAccountNumber string `json:"confirmAccountNumber"`
	HolderName           string `json:"accountHolderName"`
	IFSC                 string `json:"ifscCode"`
	AccountType          string `json:"accountType"`
	BankName             string `json:"bankName"`
	BranchName           string `json:"branch"`
}

// BankView is what the step shows on entry.
type BankView struct {
	Form         BankForm `json:"form"`
	ChequeDocURL string   `json:"chequeDocUrl,omitempty"`
}

// ChequeUploadResult reports a cancelled cheque upload and the fields
// its OCR pass filled.
type ChequeUploadResult struct {
	URL     string   `json:"url"`
	Form    BankForm `json:"form"`
	Message string   `json:"message"`
}

// BankStep collects the subject's bank account details.
type BankStep struct {
	carepay  *services.CarePayService
	oculon   *services.OculonService
	sessions *storage.SessionStore
	code     *debouncers
}

// NewBankStep creates the bank details controller.
func NewBankStep(carepay *services.CarePayService, oculon *services.OculonService, sessions *storage.SessionStore) *BankStep {
	window := config.EnrichmentConfig().DebounceWindow
	return &BankStep{
		carepay:  carepay,
		oculon:   oculon,
		sessions: sessions,
		code: newDebouncers(func() *wizard.Debouncer {
			return wizard.NewDebouncer(window)
		}),
	}
}

// Load fetches the persisted bank record and the cheque document
// reference. The confirmation field always comes back empty.
func (s *BankStep) Load(ctx context.Context, sessionID string) (*BankView, error) {
	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := wizard.RequireSubject(subjectID); err != nil {
		return nil, err
	}

	view := &BankView{}

	record, err := s.carepay.GetBankRecord(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		view.Form = BankForm{
			AccountNumber: record.AccountNumber,
			HolderName:    record.HolderName,
			IFSC:          record.IFSC,
			AccountType:   record.AccountType,
			BankName:      record.BankName,
			BranchName:    record.BranchName,
		}
	}

	docs, err := s.carepay.GetDocuments(ctx, subjectID)
	if err != nil {
		logger.Warnf("document fetch failed: %v", err)
	} else {
		view.ChequeDocURL = docs.CancelledChequeURL
	}

	return view, nil
}

// ResolveCode looks up the routing code once it reaches its full
// length and overwrites the bank and branch names unconditionally.
// This autofill is a convenience and deliberately ignores the
// fill-only-if-empty policy the other lookups follow.
func (s *BankStep) ResolveCode(ctx context.Context, form BankForm) (BankForm, bool) {
	code := strings.ToUpper(form.IFSC)
	if len(code) != ifscLength {
		return form, false
	}

	detail, err := s.carepay.LookupBankCode(ctx, code)
	if err != nil || detail == nil {
		if err != nil {
			logger.Warnf("routing code lookup failed: %v", err)
		}
		return form, false
	}

	// The lookup labels the bank name branchName and the branch
	// branchCode; the mapping is kept as observed upstream.
	form.BankName = detail.BranchName
	form.BranchName = detail.BranchCode
	return form, true
}

// ScheduleResolveCode queues a debounced ResolveCode; bursts from
// repeated keystrokes coalesce into the last call.
func (s *BankStep) ScheduleResolveCode(ctx context.Context, sessionID string, form BankForm, apply func(BankForm)) *wizard.Task {
	return s.code.forSession(sessionID).Schedule(func() {
		merged, changed := s.ResolveCode(ctx, form)
		if changed {
			apply(merged)
		}
	})
}

// UploadCheque stores the cancelled cheque and runs OCR over it,
// filling the account number, holder name and routing code
// unconditionally on success. The confirmation copy is never filled;
// the operator retypes it as an independent check.
func (s *BankStep) UploadCheque(ctx context.Context, sessionID, filename string, document []byte, form BankForm) (*ChequeUploadResult, error) {
	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := wizard.RequireSubject(subjectID); err != nil {
		return nil, err
	}

	url, err := s.carepay.UploadDocument(ctx, types.DocumentTagCheque, subjectID, filename, document)
	if err != nil {
		return nil, err
	}

	result := &ChequeUploadResult{URL: url, Form: form}

	ocr, err := s.oculon.CancelledChequeOCR(ctx, filename, document)
	if err != nil {
		logger.Warnf("cheque OCR failed: %v", err)
		result.Message = "document uploaded"
		return result, nil
	}

	if ocr.AccountNumber != "" {
		result.Form.AccountNumber = ocr.AccountNumber
	}
	if ocr.HolderName != "" {
		result.Form.HolderName = ocr.HolderName
	}
	if ocr.IFSC != "" {
		result.Form.IFSC = strings.ToUpper(ocr.IFSC)
	}
	result.Message = "details extracted from cheque"

	return result, nil
}

// Submit validates and upserts the bank record. The account number
// must match its confirmation copy exactly; a mismatch never reaches
// the backend.
func (s *BankStep) Submit(ctx context.Context, sessionID string, form BankForm) error {
	if form.AccountNumber != form.ConfirmAccountNumber {
		return validationErr("account numbers do not match")
	}
	if form.AccountNumber == "" || form.HolderName == "" || form.IFSC == "" ||
		form.BankName == "" || form.BranchName == "" {
		return validationErr("please fill in all bank details")
	}
	if !utils.IsValidIFSC(form.IFSC) {
		return validationErr("please enter a valid 11 character IFSC code")
	}

	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := wizard.RequireSubject(subjectID); err != nil {
		return err
	}

	envelope, err := s.carepay.SaveBankRecord(ctx, &types.BankRecord{
		SubjectID:     subjectID,
		AccountNumber: form.AccountNumber,
		HolderName:    form.HolderName,
		IFSC:          strings.ToUpper(form.IFSC),
		AccountType:   form.AccountType,
		BankName:      form.BankName,
		BranchName:    form.BranchName,
	})
	if err != nil {
		return err
	}
	if !envelope.Success() && !envelope.AlreadyExists() {
		return validationErr("failed to save bank details: " + envelope.Message)
	}

	s.Teardown(sessionID)
	return nil
}

// Teardown cancels any pending routing code lookup for the session.
func (s *BankStep) Teardown(sessionID string) {
	s.code.stop(sessionID)
}
