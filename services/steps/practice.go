package steps

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/carepay/onboarding/config"
	"github.com/carepay/onboarding/services"
	"github.com/carepay/onboarding/services/wizard"
	"github.com/carepay/onboarding/storage"
	"github.com/carepay/onboarding/types"
	"github.com/carepay/onboarding/utils"
	"github.com/carepay/onboarding/utils/logger"
)

// PracticeForm is the editable state of the practice details step.
// Dates are kept in ISO form.
type PracticeForm struct {
	LicenseNumber     string          `json:"registrationNumber"`
	Specialty         string          `json:"specialty"`
	ClinicName        string          `json:"clinicName"`
	BusinessEntity    string          `json:"businessEntityName"`
	EntityType        string          `json:"entityType"`
	EstablishmentDate string          `json:"establishmentDate"`
	CIN               string          `json:"cin"`
	GSTIN             string          `json:"gstin"`
	MonthlyPotential  decimal.Decimal `json:"monthlyPotential"`
}

// PracticeView is what the step shows on entry.
type PracticeView struct {
	Form      PracticeForm `json:"form"`
	GSTDocURL string       `json:"gstDocUrl,omitempty"`
}

// CertificateUploadResult reports a certificate upload and the fields
// its OCR pass overwrote.
type CertificateUploadResult struct {
	URL     string       `json:"url"`
	Form    PracticeForm `json:"form"`
	Message string       `json:"message"`
}

// availability is the five-flag snapshot that gates the enrichment
// cascade: an arm whose target fields are all known is skipped.
type availability struct {
	hasGSTIN             bool
	hasBusinessEntity    bool
	hasEntityType        bool
	hasEstablishmentDate bool
	hasCIN               bool
}

func snapshotAvailability(form *PracticeForm) availability {
	return availability{
		hasGSTIN:             form.GSTIN != "",
		hasBusinessEntity:    form.BusinessEntity != "",
		hasEntityType:        form.EntityType != types.EntityTypeUnselected,
		hasEstablishmentDate: form.EstablishmentDate != "",
		hasCIN:               form.CIN != "",
	}
}

// assign is one (target, value) pair produced by an enrichment source.
type assign struct {
	target *string
	value  string
}

// mergeIfEmpty applies assigns to empty targets only. Returns whether
// anything changed. First writer wins across repeated applications.
func mergeIfEmpty(assigns []assign) bool {
	changed := false
	for _, a := range assigns {
		if *a.target == "" && a.value != "" {
			*a.target = a.value
			changed = true
		}
	}
	return changed
}

// ClassifyEntityType maps a registry "constitution of business" string
// onto the fixed entity type options via substring heuristics.
func ClassifyEntityType(constitution string) string {
	c := strings.ToLower(constitution)
	switch {
	case strings.Contains(c, "private"):
		return types.EntityTypePrivateLimited
	case strings.Contains(c, "proprietor"):
		return types.EntityTypeProprietorship
	case strings.Contains(c, "llp"), strings.Contains(c, "limited liability"):
		return types.EntityTypeLLP
	case strings.Contains(c, "partnership"):
		return types.EntityTypePartnership
	case strings.Contains(c, "public"):
		return types.EntityTypePublicLimited
	case strings.Contains(c, "company"):
		return types.EntityTypePrivateLimited
	case strings.Contains(c, "firm"):
		return types.EntityTypePartnership
	default:
		return types.EntityTypeUnselected
	}
}

var pincodeTokenRegex = regexp.MustCompile(`\b\d{6}\b`)

// ParseRegistryAddress splits a registry address string on commas:
// the last 6-digit token is the postal code, the second-to-last
// segment is the state, then city, then locality, and everything
// before that joins back into the building line.
func ParseRegistryAddress(address string) types.ParsedAddress {
	parsed := types.ParsedAddress{}

	if codes := pincodeTokenRegex.FindAllString(address, -1); len(codes) > 0 {
		parsed.Pincode = codes[len(codes)-1]
	}

	parts := strings.Split(address, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	n := len(parts)
	if n >= 2 {
		parsed.State = parts[n-2]
	}
	if n >= 3 {
		parsed.City = parts[n-3]
	}
	if n >= 4 {
		parsed.Locality = parts[n-4]
		parsed.Building = strings.Join(parts[:n-4], ", ")
	}
	return parsed
}

// cascadeRule describes one enrichment arm: its name, when it can be
// skipped, and how a successful result maps onto the form. Rules are
// evaluated in table order, so precedence is auditable in one place.
type cascadeRule struct {
	name string
	skip func(av availability) bool
	run  func(ctx context.Context, s *PracticeStep, pan string, form *PracticeForm) ([]assign, string, error)
}

var cascadeRules = []cascadeRule{
	{
		name: "pan-to-gst",
		skip: func(av availability) bool {
			return av.hasGSTIN && av.hasBusinessEntity && av.hasEntityType && av.hasEstablishmentDate
		},
		run: func(ctx context.Context, s *PracticeStep, pan string, form *PracticeForm) ([]assign, string, error) {
			detail, err := s.oculon.PANToGST(ctx, pan)
			if err != nil {
				return nil, "", err
			}
			return []assign{
				{&form.GSTIN, detail.GSTIN},
				{&form.BusinessEntity, detail.LegalName},
				{&form.EntityType, ClassifyEntityType(detail.Constitution)},
				{&form.EstablishmentDate, utils.NormalizeWireDate(detail.RegistrationDate)},
			}, detail.Address, nil
		},
	},
	{
		name: "pan-to-udyam",
		skip: func(av availability) bool {
			return av.hasBusinessEntity && av.hasEntityType && av.hasEstablishmentDate
		},
		run: func(ctx context.Context, s *PracticeStep, pan string, form *PracticeForm) ([]assign, string, error) {
			detail, err := s.oculon.PANToUdyam(ctx, pan)
			if err != nil {
				return nil, "", err
			}
			return []assign{
				{&form.BusinessEntity, detail.EnterpriseName},
				{&form.EntityType, ClassifyEntityType(detail.OrganisationType)},
				{&form.EstablishmentDate, utils.NormalizeWireDate(detail.IncorporationDate)},
			}, detail.Address, nil
		},
	},
	{
		name: "pan-to-cin",
		skip: func(av availability) bool {
			return av.hasCIN && av.hasBusinessEntity && av.hasEstablishmentDate
		},
		run: func(ctx context.Context, s *PracticeStep, pan string, form *PracticeForm) ([]assign, string, error) {
			detail, err := s.oculon.PANToCIN(ctx, pan)
			if err != nil {
				return nil, "", err
			}
			return []assign{
				{&form.CIN, detail.CIN},
				{&form.BusinessEntity, detail.CompanyName},
				{&form.EstablishmentDate, utils.NormalizeWireDate(detail.IncorporationDate)},
			}, detail.Address, nil
		},
	},
}

// PracticeStep collects the subject's practice profile.
type PracticeStep struct {
	carepay  *services.CarePayService
	oculon   *services.OculonService
	sessions *storage.SessionStore
	registry *debouncers
}

// NewPracticeStep creates the practice details controller.
func NewPracticeStep(carepay *services.CarePayService, oculon *services.OculonService, sessions *storage.SessionStore) *PracticeStep {
	window := config.EnrichmentConfig().DebounceWindow
	return &PracticeStep{
		carepay:  carepay,
		oculon:   oculon,
		sessions: sessions,
		registry: newDebouncers(func() *wizard.Debouncer {
			return wizard.NewDebouncer(window)
		}),
	}
}

// Load fetches the persisted practice profile and the registration
// certificate reference, both keyed by the subject identifier.
func (s *PracticeStep) Load(ctx context.Context, sessionID string) (*PracticeView, error) {
	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := wizard.RequireSubject(subjectID); err != nil {
		return nil, err
	}

	view := &PracticeView{}

	profile, err := s.carepay.GetPracticeProfile(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		view.Form = PracticeForm{
			LicenseNumber:     profile.LicenseNumber,
			Specialty:         profile.Specialty,
			ClinicName:        profile.ClinicName,
			BusinessEntity:    profile.BusinessEntity,
			EntityType:        profile.EntityType,
			EstablishmentDate: utils.NormalizeWireDate(profile.EstablishmentDate),
			CIN:               profile.CIN,
			GSTIN:             profile.GSTIN,
			MonthlyPotential:  profile.MonthlyPotential,
		}
	}

	docs, err := s.carepay.GetDocuments(ctx, subjectID)
	if err != nil {
		logger.Warnf("document fetch failed: %v", err)
	} else {
		view.GSTDocURL = docs.GSTCertificateURL
	}

	return view, nil
}

// resolvePAN returns the tax identifier for the cascade, taking the
// session cache first and falling back to a subject lookup by phone.
func (s *PracticeStep) resolvePAN(ctx context.Context, sessionID string) string {
	pan, err := s.sessions.SavedPAN(ctx, sessionID)
	if err == nil && pan != "" {
		return pan
	}

	phone, err := s.sessions.SavedPhone(ctx, sessionID)
	if err != nil || phone == "" {
		return ""
	}
	subject, err := s.carepay.GetSubjectByPhone(ctx, phone)
	if err != nil || subject == nil || subject.PAN == "" {
		return ""
	}
	if err := s.sessions.SetSavedPAN(ctx, sessionID, subject.PAN); err != nil {
		logger.Errorf("error: %v", err)
	}
	return subject.PAN
}

// Cascade runs the enrichment arms concurrently and merges whatever
// came back into empty form fields, rule order deciding precedence.
// Each arm's outcome is applied only if that arm succeeded; a failed
// arm never blocks the others. Any registry address obtained along
// the way is parsed and cached as a one-shot prefill for the address
// step.
func (s *PracticeStep) Cascade(ctx context.Context, sessionID string, form PracticeForm) (PracticeForm, bool) {
	pan := s.resolvePAN(ctx, sessionID)
	if pan == "" {
		return form, false
	}

	av := snapshotAvailability(&form)

	type armResult struct {
		assigns []assign
		address string
		err     error
	}

	results := make([]*armResult, len(cascadeRules))
	var wg sync.WaitGroup
	for i, rule := range cascadeRules {
		if rule.skip(av) {
			continue
		}
		wg.Add(1)
		go func(i int, rule cascadeRule) {
			defer wg.Done()
			assigns, address, err := rule.run(ctx, s, pan, &form)
			results[i] = &armResult{assigns: assigns, address: address, err: err}
		}(i, rule)
	}
	wg.Wait()

	changed := false
	registryAddress := ""
	for i, res := range results {
		if res == nil {
			continue
		}
		if res.err != nil {
			logger.Warnf("%s lookup failed: %v", cascadeRules[i].name, res.err)
			continue
		}
		if mergeIfEmpty(res.assigns) {
			changed = true
		}
		if registryAddress == "" && res.address != "" {
			registryAddress = res.address
		}
	}

	if registryAddress != "" {
		s.cacheRegistryAddress(ctx, sessionID, registryAddress)
	}

	return form, changed
}

// RegistryLookup resolves the registration number once it is valid and
// the legal name or incorporation date is still missing. Results merge
// into empty fields only.
func (s *PracticeStep) RegistryLookup(ctx context.Context, sessionID string, form PracticeForm) (PracticeForm, bool) {
	if !utils.IsValidGSTIN(form.GSTIN) {
		return form, false
	}
	if form.BusinessEntity != "" && form.EstablishmentDate != "" {
		return form, false
	}

	detail, err := s.oculon.GSTInfo(ctx, form.GSTIN)
	if err != nil {
		logger.Warnf("registry lookup failed: %v", err)
		return form, false
	}

	changed := mergeIfEmpty([]assign{
		{&form.BusinessEntity, detail.LegalName},
		{&form.EntityType, ClassifyEntityType(detail.Constitution)},
		{&form.EstablishmentDate, utils.NormalizeWireDate(detail.RegistrationDate)},
	})
	if detail.Address != "" {
		s.cacheRegistryAddress(ctx, sessionID, detail.Address)
	}
	return form, changed
}

// ScheduleRegistryLookup queues a debounced RegistryLookup; bursts
// from repeated keystrokes coalesce into the last call.
func (s *PracticeStep) ScheduleRegistryLookup(ctx context.Context, sessionID string, form PracticeForm, apply func(PracticeForm)) *wizard.Task {
	return s.registry.forSession(sessionID).Schedule(func() {
		merged, changed := s.RegistryLookup(ctx, sessionID, form)
		if changed {
			apply(merged)
		}
	})
}

func (s *PracticeStep) cacheRegistryAddress(ctx context.Context, sessionID, address string) {
	parsed := ParseRegistryAddress(address)
	blob, err := json.Marshal(parsed)
	if err != nil {
		logger.Errorf("error: %v", err)
		return
	}
	if err := s.sessions.SetRegistryAddress(ctx, sessionID, string(blob)); err != nil {
		logger.Errorf("error: %v", err)
	}
}

// UploadCertificate stores the registration certificate and runs OCR
// over it. This path is operator initiated and authoritative: a
// successful extraction overwrites the registration number, legal
// name, entity type and incorporation date unconditionally.
func (s *PracticeStep) UploadCertificate(ctx context.Context, sessionID, filename string, document []byte, form PracticeForm) (*CertificateUploadResult, error) {
	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := wizard.RequireSubject(subjectID); err != nil {
		return nil, err
	}

	url, err := s.carepay.UploadDocument(ctx, types.DocumentTagGST, subjectID, filename, document)
	if err != nil {
		return nil, err
	}

	result := &CertificateUploadResult{URL: url, Form: form}

	ocr, err := s.oculon.GSTCertificateOCR(ctx, filename, document)
	if err != nil {
		logger.Warnf("certificate OCR failed: %v", err)
		result.Message = "document uploaded"
		return result, nil
	}

	if ocr.GSTIN != "" {
		result.Form.GSTIN = ocr.GSTIN
	}
	if ocr.LegalName != "" {
		result.Form.BusinessEntity = ocr.LegalName
	}
	if ocr.Constitution != "" {
		result.Form.EntityType = ClassifyEntityType(ocr.Constitution)
	}
	if ocr.RegistrationDate != "" {
		result.Form.EstablishmentDate = utils.NormalizeWireDate(ocr.RegistrationDate)
	}
	result.Message = "details extracted from certificate"

	return result, nil
}

// Submit upserts the practice profile. A non-empty corporate
// identifier must pass the positional checks first.
func (s *PracticeStep) Submit(ctx context.Context, sessionID string, form PracticeForm) error {
	if form.CIN != "" {
		if err := utils.ValidateCIN(form.CIN); err != nil {
			return validationErr(err.Error())
		}
	}
	if form.GSTIN != "" && !utils.IsValidGSTIN(form.GSTIN) {
		return validationErr("please enter a valid GSTIN")
	}

	subjectID, err := s.sessions.SubjectID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := wizard.RequireSubject(subjectID); err != nil {
		return err
	}

	envelope, err := s.carepay.SavePracticeProfile(ctx, &types.PracticeProfile{
		SubjectID:         subjectID,
		LicenseNumber:     form.LicenseNumber,
		Specialty:         form.Specialty,
		ClinicName:        form.ClinicName,
		BusinessEntity:    form.BusinessEntity,
		EntityType:        form.EntityType,
		EstablishmentDate: utils.ToBackendDate(form.EstablishmentDate),
		CIN:               form.CIN,
		GSTIN:             form.GSTIN,
		MonthlyPotential:  form.MonthlyPotential,
	})
	if err != nil {
		return err
	}
	if !envelope.Success() && !envelope.AlreadyExists() {
		return validationErr("failed to save practice details: " + envelope.Message)
	}

	s.Teardown(sessionID)
	return nil
}

// Teardown cancels any pending registry lookup for the session.
func (s *PracticeStep) Teardown(sessionID string) {
	s.registry.stop(sessionID)
}
