package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/carepay/onboarding/config"
	"github.com/carepay/onboarding/services"
	"github.com/carepay/onboarding/services/steps"
	"github.com/carepay/onboarding/services/wizard"
	"github.com/carepay/onboarding/storage"
	"github.com/carepay/onboarding/types"
	u "github.com/carepay/onboarding/utils"
	"github.com/carepay/onboarding/utils/logger"
)

var serverConf = config.ServerConfig()

// Controller is the handler set for the onboarding API
type Controller struct {
	sessions *storage.SessionStore

	phoneStep    *steps.PhoneStep
	otpStep      *steps.OTPStep
	personalStep *steps.PersonalStep
	practiceStep *steps.PracticeStep
	addressStep  *steps.AddressStep
	bankStep     *steps.BankStep
	contractStep *steps.ContractStep

	mu      sync.Mutex
	wizards map[string]*wizard.Wizard
}

// NewController creates a new instance of Controller with injected services
func NewController() *Controller {
	carepay := services.NewCarePayService()
	oculon := services.NewOculonService()
	email := services.NewEmailService()
	sessions := storage.NewSessionStore(nil)

	ctrl := &Controller{
		sessions:     sessions,
		phoneStep:    steps.NewPhoneStep(carepay),
		otpStep:      steps.NewOTPStep(carepay, sessions),
		personalStep: steps.NewPersonalStep(carepay, oculon, sessions),
		practiceStep: steps.NewPracticeStep(carepay, oculon, sessions),
		addressStep:  steps.NewAddressStep(carepay, sessions),
		bankStep:     steps.NewBankStep(carepay, oculon, sessions),
		contractStep: steps.NewContractStep(carepay, email, sessions),
		wizards:      make(map[string]*wizard.Wizard),
	}
	// Pruned or explicitly ended sessions take their in-memory wizard
	// and debouncer state with them.
	storage.OnSessionDelete(ctrl.releaseSession)
	return ctrl
}

// releaseSession drops the in-memory state held for a session.
func (ctrl *Controller) releaseSession(sessionID string) {
	ctrl.mu.Lock()
	delete(ctrl.wizards, sessionID)
	ctrl.mu.Unlock()
	ctrl.personalStep.Teardown(sessionID)
	ctrl.practiceStep.Teardown(sessionID)
	ctrl.bankStep.Teardown(sessionID)
}

// wizardFor returns the step machine for a session, creating it on
// first use.
func (ctrl *Controller) wizardFor(sessionID string) *wizard.Wizard {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	w, ok := ctrl.wizards[sessionID]
	if !ok {
		w = wizard.New()
		ctrl.wizards[sessionID] = w
	}
	return w
}

func sessionID(ctx *gin.Context) string {
	return ctx.GetString("session_id")
}

// respondError maps a step error onto the response envelope.
func respondError(ctx *gin.Context, w *wizard.Wizard, err error) {
	w.SetError(err.Error())
	if steps.IsValidation(err) || err == wizard.ErrNoSubject {
		u.APIResponse(ctx, http.StatusBadRequest, "error", err.Error(), nil)
		return
	}
	u.APIResponse(ctx, http.StatusInternalServerError, "error", err.Error(), nil)
}

// CreateSession starts a new onboarding session and returns its token.
func (ctrl *Controller) CreateSession(ctx *gin.Context) {
	id, err := ctrl.sessions.Create(ctx)
	if err != nil {
		logger.Errorf("error: %v", err)
		u.APIResponse(ctx, http.StatusInternalServerError, "error", "failed to create session", nil)
		return
	}

	claims := jwt.MapClaims{
		"sid": id,
		"exp": time.Now().Add(serverConf.SessionLifespan).Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(serverConf.SessionSecret))
	if err != nil {
		logger.Errorf("error: %v", err)
		u.APIResponse(ctx, http.StatusInternalServerError, "error", "failed to create session", nil)
		return
	}

	u.APIResponse(ctx, http.StatusCreated, "success", "Session created", gin.H{
		"sessionId": id,
		"token":     token,
		"step":      wizard.StepPhone.String(),
	})
}

// GetState reports the active step and the error banner.
func (ctrl *Controller) GetState(ctx *gin.Context) {
	w := ctrl.wizardFor(sessionID(ctx))
	u.APIResponse(ctx, http.StatusOK, "success", "OK", gin.H{
		"step":     int(w.Step()),
		"stepName": w.Step().String(),
		"error":    w.Error(),
	})
}

// Navigate moves the wizard to the requested step index, clamped to
// the valid range.
func (ctrl *Controller) Navigate(ctx *gin.Context) {
	var payload struct {
		Step int `json:"step"`
	}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", "Failed to validate payload", err.Error())
		return
	}

	w := ctrl.wizardFor(sessionID(ctx))
	step := w.GoTo(payload.Step)
	u.APIResponse(ctx, http.StatusOK, "success", "OK", gin.H{
		"step":     int(step),
		"stepName": step.String(),
	})
}

// Retreat moves one step back without validating or persisting.
func (ctrl *Controller) Retreat(ctx *gin.Context) {
	w := ctrl.wizardFor(sessionID(ctx))
	step := w.Retreat()
	u.APIResponse(ctx, http.StatusOK, "success", "OK", gin.H{
		"step":     int(step),
		"stepName": step.String(),
	})
}

// ClearError dismisses the error banner. Display state only.
func (ctrl *Controller) ClearError(ctx *gin.Context) {
	ctrl.wizardFor(sessionID(ctx)).ClearError()
	u.APIResponse(ctx, http.StatusOK, "success", "OK", nil)
}

// SendOTP validates the number and sends a one-time code.
func (ctrl *Controller) SendOTP(ctx *gin.Context) {
	var payload types.SendOTPPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", "Failed to validate payload", err.Error())
		return
	}

	w := ctrl.wizardFor(sessionID(ctx))
	if err := ctrl.phoneStep.SendOTP(ctx, payload.MobileNumber); err != nil {
		respondError(ctx, w, err)
		return
	}

	w.Advance(payload.MobileNumber)
	u.APIResponse(ctx, http.StatusOK, "success", "OTP sent", nil)
}

// VerifyOTP checks the code and creates or recovers the subject.
func (ctrl *Controller) VerifyOTP(ctx *gin.Context) {
	var payload types.VerifyOTPPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", "Failed to validate payload", err.Error())
		return
	}

	w := ctrl.wizardFor(sessionID(ctx))
	subjectID, err := ctrl.otpStep.Verify(ctx, sessionID(ctx), payload.MobileNumber, payload.OTP)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	w.Advance(subjectID)
	u.APIResponse(ctx, http.StatusOK, "success", "Mobile number verified", gin.H{
		"subjectId": subjectID,
	})
}

// GetPersonalDetails loads the personal details view.
func (ctrl *Controller) GetPersonalDetails(ctx *gin.Context) {
	w := ctrl.wizardFor(sessionID(ctx))
	view, err := ctrl.personalStep.Load(ctx, sessionID(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	u.APIResponse(ctx, http.StatusOK, "success", "OK", view)
}

// PrefillPersonalDetails runs the debounced enrichment lookup over the
// submitted form snapshot. Bursts coalesce; a superseded request is
// answered without data.
func (ctrl *Controller) PrefillPersonalDetails(ctx *gin.Context) {
	var form steps.PersonalForm
	if err := ctx.ShouldBindJSON(&form); err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", "Failed to validate payload", err.Error())
		return
	}

	phone, err := ctrl.sessions.SavedPhone(ctx, sessionID(ctx))
	if err != nil {
		logger.Errorf("error: %v", err)
	}

	resultCh := make(chan steps.PersonalForm, 1)
	task := ctrl.personalStep.SchedulePrefill(ctx.Copy(), sessionID(ctx), form, phone, func(merged steps.PersonalForm) {
		resultCh <- merged
	})

	select {
	case <-task.Cancelled():
		u.APIResponse(ctx, http.StatusOK, "success", "Superseded by a newer request", nil)
	case <-task.Done():
		select {
		case merged := <-resultCh:
			u.APIResponse(ctx, http.StatusOK, "success", "OK", merged)
		default:
			u.APIResponse(ctx, http.StatusOK, "success", "No changes", form)
		}
	case <-ctx.Request.Context().Done():
		ctx.Abort()
	}
}

// UploadPANDocument accepts the tax identity document.
func (ctrl *Controller) UploadPANDocument(ctx *gin.Context) {
	w := ctrl.wizardFor(sessionID(ctx))

	filename, data, err := readUpload(ctx, config.GatewayConfig().MaxIdentityDocSize)
	if err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", err.Error(), nil)
		return
	}

	var form steps.PersonalForm
	bindFormField(ctx, &form)

	result, err := ctrl.personalStep.UploadPANDocument(ctx, sessionID(ctx), filename, data, form)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	status := "success"
	if result.Mismatch {
		status = "error"
	}
	u.APIResponse(ctx, http.StatusOK, status, result.Message, result)
}

// SavePersonalDetails upserts the subject record.
func (ctrl *Controller) SavePersonalDetails(ctx *gin.Context) {
	var payload types.PersonalDetailsPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", "Failed to validate payload", err.Error())
		return
	}

	w := ctrl.wizardFor(sessionID(ctx))
	form := steps.PersonalForm{
		Name:         payload.Name,
		PAN:          payload.PAN,
		Email:        payload.Email,
		DateOfBirth:  payload.DateOfBirth,
		ReferralCode: payload.ReferralCode,
	}
	if err := ctrl.personalStep.Submit(ctx, sessionID(ctx), form); err != nil {
		respondError(ctx, w, err)
		return
	}

	w.Advance(form)
	u.APIResponse(ctx, http.StatusOK, "success", "Details saved", nil)
}

// GetPracticeDetails loads the practice view and runs the enrichment
// cascade over it.
func (ctrl *Controller) GetPracticeDetails(ctx *gin.Context) {
	w := ctrl.wizardFor(sessionID(ctx))
	view, err := ctrl.practiceStep.Load(ctx, sessionID(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	view.Form, _ = ctrl.practiceStep.Cascade(ctx, sessionID(ctx), view.Form)
	u.APIResponse(ctx, http.StatusOK, "success", "OK", view)
}

// LookupRegistry runs the debounced registration number lookup over
// the submitted form snapshot.
func (ctrl *Controller) LookupRegistry(ctx *gin.Context) {
	var form steps.PracticeForm
	if err := ctx.ShouldBindJSON(&form); err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", "Failed to validate payload", err.Error())
		return
	}

	resultCh := make(chan steps.PracticeForm, 1)
	task := ctrl.practiceStep.ScheduleRegistryLookup(ctx.Copy(), sessionID(ctx), form, func(merged steps.PracticeForm) {
		resultCh <- merged
	})

	select {
	case <-task.Cancelled():
		u.APIResponse(ctx, http.StatusOK, "success", "Superseded by a newer request", nil)
	case <-task.Done():
		select {
		case merged := <-resultCh:
			u.APIResponse(ctx, http.StatusOK, "success", "OK", merged)
		default:
			u.APIResponse(ctx, http.StatusOK, "success", "No changes", form)
		}
	case <-ctx.Request.Context().Done():
		ctx.Abort()
	}
}

// UploadCertificate accepts the registration certificate.
func (ctrl *Controller) UploadCertificate(ctx *gin.Context) {
	w := ctrl.wizardFor(sessionID(ctx))

	filename, data, err := readUpload(ctx, config.GatewayConfig().MaxCertificateSize)
	if err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", err.Error(), nil)
		return
	}

	var form steps.PracticeForm
	bindFormField(ctx, &form)

	result, err := ctrl.practiceStep.UploadCertificate(ctx, sessionID(ctx), filename, data, form)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	u.APIResponse(ctx, http.StatusOK, "success", result.Message, result)
}

// SavePracticeDetails upserts the practice profile.
func (ctrl *Controller) SavePracticeDetails(ctx *gin.Context) {
	var payload types.PracticeDetailsPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", "Failed to validate payload", err.Error())
		return
	}

	w := ctrl.wizardFor(sessionID(ctx))
	form := steps.PracticeForm{
		LicenseNumber:     payload.LicenseNumber,
		Specialty:         payload.Specialty,
		ClinicName:        payload.ClinicName,
		BusinessEntity:    payload.BusinessEntity,
		EntityType:        payload.EntityType,
		EstablishmentDate: payload.EstablishmentDate,
		CIN:               payload.CIN,
		GSTIN:             payload.GSTIN,
		MonthlyPotential:  payload.MonthlyPotential,
	}
	if err := ctrl.practiceStep.Submit(ctx, sessionID(ctx), form); err != nil {
		respondError(ctx, w, err)
		return
	}

	w.Advance(form)
	u.APIResponse(ctx, http.StatusOK, "success", "Practice details saved", nil)
}

// GetAddress loads the address form, preferring the one-shot
// registry-derived prefill.
func (ctrl *Controller) GetAddress(ctx *gin.Context) {
	w := ctrl.wizardFor(sessionID(ctx))
	form, err := ctrl.addressStep.Load(ctx, sessionID(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	u.APIResponse(ctx, http.StatusOK, "success", "OK", form)
}

// SaveAddress upserts the address record.
func (ctrl *Controller) SaveAddress(ctx *gin.Context) {
	var payload types.AddressPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", "Failed to validate payload", err.Error())
		return
	}

	w := ctrl.wizardFor(sessionID(ctx))
	form := steps.AddressForm{
		Building: payload.Building,
		Locality: payload.Locality,
		City:     payload.City,
		State:    payload.State,
		Pincode:  payload.Pincode,
	}
	if err := ctrl.addressStep.Submit(ctx, sessionID(ctx), form); err != nil {
		respondError(ctx, w, err)
		return
	}

	w.Advance(form)
	u.APIResponse(ctx, http.StatusOK, "success", "Address saved", nil)
}

// GetBankDetails loads the bank view.
func (ctrl *Controller) GetBankDetails(ctx *gin.Context) {
	w := ctrl.wizardFor(sessionID(ctx))
	view, err := ctrl.bankStep.Load(ctx, sessionID(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	u.APIResponse(ctx, http.StatusOK, "success", "OK", view)
}

// ResolveIFSC runs the debounced routing code lookup over the
// submitted form snapshot.
func (ctrl *Controller) ResolveIFSC(ctx *gin.Context) {
	var form steps.BankForm
	if err := ctx.ShouldBindJSON(&form); err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", "Failed to validate payload", err.Error())
		return
	}

	resultCh := make(chan steps.BankForm, 1)
	task := ctrl.bankStep.ScheduleResolveCode(ctx.Copy(), sessionID(ctx), form, func(merged steps.BankForm) {
		resultCh <- merged
	})

	select {
	case <-task.Cancelled():
		u.APIResponse(ctx, http.StatusOK, "success", "Superseded by a newer request", nil)
	case <-task.Done():
		select {
		case merged := <-resultCh:
			u.APIResponse(ctx, http.StatusOK, "success", "OK", merged)
		default:
			u.APIResponse(ctx, http.StatusOK, "success", "No changes", form)
		}
	case <-ctx.Request.Context().Done():
		ctx.Abort()
	}
}

// UploadCheque accepts the cancelled cheque document.
func (ctrl *Controller) UploadCheque(ctx *gin.Context) {
	w := ctrl.wizardFor(sessionID(ctx))

	filename, data, err := readUpload(ctx, config.GatewayConfig().MaxChequeSize)
	if err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", err.Error(), nil)
		return
	}

	var form steps.BankForm
	bindFormField(ctx, &form)

	result, err := ctrl.bankStep.UploadCheque(ctx, sessionID(ctx), filename, data, form)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	u.APIResponse(ctx, http.StatusOK, "success", result.Message, result)
}

// SaveBankDetails upserts the bank record.
func (ctrl *Controller) SaveBankDetails(ctx *gin.Context) {
	var payload types.BankDetailsPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", "Failed to validate payload", err.Error())
		return
	}

	w := ctrl.wizardFor(sessionID(ctx))
	form := steps.BankForm{
		AccountNumber:        payload.AccountNumber,
		ConfirmAccountNumber: payload.ConfirmAccountNumber,
		HolderName:           payload.HolderName,
		IFSC:                 payload.IFSC,
		AccountType:          payload.AccountType,
		BankName:             payload.BankName,
		BranchName:           payload.BranchName,
	}
	if err := ctrl.bankStep.Submit(ctx, sessionID(ctx), form); err != nil {
		respondError(ctx, w, err)
		return
	}

	w.Advance(form)
	u.APIResponse(ctx, http.StatusOK, "success", "Bank details saved", nil)
}

// GetContract fetches the contract envelope.
func (ctrl *Controller) GetContract(ctx *gin.Context) {
	w := ctrl.wizardFor(sessionID(ctx))
	contract, err := ctrl.contractStep.Load(ctx, sessionID(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	u.APIResponse(ctx, http.StatusOK, "success", "OK", contract)
}

// CompleteContract marks the flow done after the operator opened the
// signing URL.
func (ctrl *Controller) CompleteContract(ctx *gin.Context) {
	var contract types.ContractEnvelope
	if err := ctx.ShouldBindJSON(&contract); err != nil {
		u.APIResponse(ctx, http.StatusBadRequest, "error", "Failed to validate payload", err.Error())
		return
	}

	w := ctrl.wizardFor(sessionID(ctx))
	if err := ctrl.contractStep.Complete(ctx, sessionID(ctx), &contract); err != nil {
		respondError(ctx, w, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "Onboarding complete", nil)
}

// readUpload pulls the document out of the multipart form, enforcing
// the size bound and the image/PDF type restriction.
func readUpload(ctx *gin.Context, maxSize int64) (string, []byte, error) {
	header, err := ctx.FormFile("document")
	if err != nil {
		return "", nil, fmt.Errorf("no document in request: %w", err)
	}
	if header.Size > maxSize {
		return "", nil, fmt.Errorf("document exceeds the %d MB size limit", maxSize/(1<<20))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".pdf":
	default:
		return "", nil, fmt.Errorf("unsupported document type %q", ext)
	}

	file, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read document: %w", err)
	}
	return header.Filename, data, nil
}

// bindFormField decodes the optional "form" multipart field carrying
// the current form snapshot alongside an upload.
func bindFormField(ctx *gin.Context, out interface{}) {
	raw := ctx.PostForm("form")
	if raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		logger.Warnf("failed to decode form snapshot: %v", err)
	}
}
