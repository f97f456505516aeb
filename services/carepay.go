package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	fastshot "github.com/opus-domini/fast-shot"

	"github.com/carepay/onboarding/config"
	"github.com/carepay/onboarding/types"
	"github.com/carepay/onboarding/utils"
	"github.com/carepay/onboarding/utils/logger"
)

// CarePayService talks to the core backend. Every response arrives in
// the shared gateway envelope; status 200 is success and 403 is the
// soft "already exists" success on upserts.
type CarePayService struct {
	conf *config.GatewayConfiguration
}

// NewCarePayService creates a core backend client.
func NewCarePayService() *CarePayService {
	return &CarePayService{
		conf: config.GatewayConfig(),
	}
}

func (s *CarePayService) client() fastshot.ClientHttpMethods {
	return fastshot.NewClient(s.conf.BaseURL).
		Config().SetTimeout(s.conf.Timeout).
		Build()
}

// parseEnvelope decodes a gateway response body into the shared
// envelope. Transport-level failures are the caller's concern; a
// non-200 non-403 status is reported through the envelope, not here.
func parseEnvelope(res *http.Response) (*types.GatewayEnvelope, error) {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	defer res.Body.Close()

	var envelope types.GatewayEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &envelope, nil
}

// SendOTP asks the backend to send a one-time code to the number.
func (s *CarePayService) SendOTP(ctx context.Context, mobileNumber string) error {
	res, err := s.client().GET("/sendOtp").
		Query().AddParams(map[string]string{
		"phoneNumber": mobileNumber,
	}).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return fmt.Errorf("couldn't reach the server, please check your connection")
	}

	envelope, err := parseEnvelope(res.RawResponse)
	if err != nil {
		logger.Errorf("error: %v", err)
		return err
	}
	if !envelope.Success() {
		return fmt.Errorf("failed to send OTP: %s", envelope.Message)
	}
	return nil
}

// VerifyOTP submits the operator's code for the number. The backend
// performs the comparison; the envelope status is the verdict.
func (s *CarePayService) VerifyOTP(ctx context.Context, mobileNumber, otp string) (*types.GatewayEnvelope, error) {
	res, err := s.client().GET("/getOtp").
		Query().AddParams(map[string]string{
		"phoneNumber": mobileNumber,
		"otp":         otp,
	}).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}
	return parseEnvelope(res.RawResponse)
}

// GetSubjectByPhone fetches the subject record by its phone number.
// Returns nil without error when no record exists yet.
func (s *CarePayService) GetSubjectByPhone(ctx context.Context, mobileNumber string) (*types.SubjectRecord, error) {
	res, err := s.client().GET("/getDoctorDetailsByPhoneNumber").
		Query().AddParams(map[string]string{
		"mobileNo": mobileNumber,
	}).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}

	envelope, err := parseEnvelope(res.RawResponse)
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, err
	}
	if !envelope.Success() {
		return nil, nil
	}

	var subject types.SubjectRecord
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, &subject); err != nil {
			return nil, fmt.Errorf("unexpected subject response: %w", err)
		}
		return &subject, nil
	}
	return nil, nil
}

// SaveSubject upserts the subject record. The returned envelope lets
// the caller distinguish outright success from the already-exists
// soft success.
func (s *CarePayService) SaveSubject(ctx context.Context, subject *types.SubjectRecord) (*types.GatewayEnvelope, error) {
	res, err := s.client().POST("/saveOrUpdateDoctorDetails").
		Body().AsJSON(subject).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}
	return parseEnvelope(res.RawResponse)
}

// GetPracticeProfile fetches the practice profile, nil when absent.
func (s *CarePayService) GetPracticeProfile(ctx context.Context, subjectID string) (*types.PracticeProfile, error) {
	res, err := s.client().GET("/getDoctorProfDetailsByDoctorId").
		Query().AddParams(map[string]string{
		"doctorId": subjectID,
	}).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}

	envelope, err := parseEnvelope(res.RawResponse)
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, err
	}
	if !envelope.Success() || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, nil
	}

	var profile types.PracticeProfile
	if err := json.Unmarshal(envelope.Data, &profile); err != nil {
		return nil, fmt.Errorf("unexpected practice profile response: %w", err)
	}
	return &profile, nil
}

// SavePracticeProfile upserts the practice profile.
func (s *CarePayService) SavePracticeProfile(ctx context.Context, profile *types.PracticeProfile) (*types.GatewayEnvelope, error) {
	res, err := s.client().POST("/saveOrUpdateDoctorProfessionalDetails").
		Body().AsJSON(profile).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}
	return parseEnvelope(res.RawResponse)
}

// GetAddress fetches the persisted address, nil when absent.
func (s *CarePayService) GetAddress(ctx context.Context, subjectID string) (*types.AddressRecord, error) {
	res, err := s.client().GET("/getAddressDetails").
		Query().AddParams(map[string]string{
		"doctorId": subjectID,
	}).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}

	envelope, err := parseEnvelope(res.RawResponse)
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, err
	}
	if !envelope.Success() || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, nil
	}

	var address types.AddressRecord
	if err := json.Unmarshal(envelope.Data, &address); err != nil {
		return nil, fmt.Errorf("unexpected address response: %w", err)
	}
	return &address, nil
}

// SaveAddress upserts the address record.
func (s *CarePayService) SaveAddress(ctx context.Context, address *types.AddressRecord) (*types.GatewayEnvelope, error) {
	res, err := s.client().POST("/saveOrUpdateAddressDetails").
		Body().AsJSON(address).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}
	return parseEnvelope(res.RawResponse)
}

// GetBankRecord fetches the persisted bank record, nil when absent.
func (s *CarePayService) GetBankRecord(ctx context.Context, subjectID string) (*types.BankRecord, error) {
	res, err := s.client().GET("/getBankDetailsByDoctorId").
		Query().AddParams(map[string]string{
		"doctorId": subjectID,
	}).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}

	envelope, err := parseEnvelope(res.RawResponse)
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, err
	}
	if !envelope.Success() || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, nil
	}

	var record types.BankRecord
	if err := json.Unmarshal(envelope.Data, &record); err != nil {
		return nil, fmt.Errorf("unexpected bank record response: %w", err)
	}
	return &record, nil
}

// SaveBankRecord upserts the bank record.
func (s *CarePayService) SaveBankRecord(ctx context.Context, record *types.BankRecord) (*types.GatewayEnvelope, error) {
	res, err := s.client().POST("/saveOrUpdateBankDetails").
		Body().AsJSON(record).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}
	return parseEnvelope(res.RawResponse)
}

// LookupBankCode resolves a routing code to its branch/bank detail
// pair. Unlike the rest of the gateway this endpoint answers with the
// bare detail object, not the envelope. Returns nil without error when
// the code is unknown.
func (s *CarePayService) LookupBankCode(ctx context.Context, code string) (*types.BankCodeDetail, error) {
	res, err := s.client().GET("/userDetails/codeDetail").
		Query().AddParams(map[string]string{
		"code": code,
		"type": "branch",
	}).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}

	raw := res.RawResponse
	defer raw.Body.Close()
	if raw.StatusCode != http.StatusOK {
		return nil, nil
	}

	var detail types.BankCodeDetail
	if err := json.NewDecoder(raw.Body).Decode(&detail); err != nil {
		return nil, nil
	}
	if detail.BranchName == "" && detail.BranchCode == "" {
		return nil, nil
	}
	return &detail, nil
}

// GetDocuments fetches the uploaded document references for a subject.
// Returns an empty set when none exist.
func (s *CarePayService) GetDocuments(ctx context.Context, subjectID string) (*types.DocumentRefs, error) {
	res, err := s.client().GET("/getDocumentsByDoctorId").
		Query().AddParams(map[string]string{
		"doctorId": subjectID,
	}).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}

	envelope, err := parseEnvelope(res.RawResponse)
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, err
	}

	refs := &types.DocumentRefs{}
	if envelope.Success() && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, refs); err != nil {
			return nil, fmt.Errorf("unexpected documents response: %w", err)
		}
	}
	return refs, nil
}

// GetContract fetches the contract envelope for a subject.
func (s *CarePayService) GetContract(ctx context.Context, subjectID string) (*types.ContractEnvelope, error) {
	res, err := s.client().GET("/initiateContract").
		Query().AddParams(map[string]string{
		"doctorId": subjectID,
	}).
		Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}

	envelope, err := parseEnvelope(res.RawResponse)
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, err
	}
	if !envelope.Success() {
		return nil, fmt.Errorf("failed to fetch contract: %s", envelope.Message)
	}

	var contract types.ContractEnvelope
	if err := json.Unmarshal(envelope.Data, &contract); err != nil {
		return nil, fmt.Errorf("unexpected contract response: %w", err)
	}
	return &contract, nil
}

// ListReferralCodes fetches the selectable referral codes.
func (s *CarePayService) ListReferralCodes(ctx context.Context) ([]types.ReferralCode, error) {
	res, err := s.client().GET("/getAllScoutCodes").Send()
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, fmt.Errorf("couldn't reach the server, please check your connection")
	}

	envelope, err := parseEnvelope(res.RawResponse)
	if err != nil {
		logger.Errorf("error: %v", err)
		return nil, err
	}
	if !envelope.Success() {
		return nil, fmt.Errorf("failed to fetch referral codes: %s", envelope.Message)
	}

	var codes []types.ReferralCode
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, &codes); err != nil {
			return nil, fmt.Errorf("unexpected referral codes response: %w", err)
		}
	}
	return codes, nil
}

// UploadDocument stores a document for the subject and returns its
// remote URL. The upload endpoint takes a multipart form and answers
// with a bare URL string rather than the usual envelope.
func (s *CarePayService) UploadDocument(ctx context.Context, tag, subjectID, filename string, payload []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("fileName", tag); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.WriteField("type", utils.DocumentKind(filename)); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.WriteField("userId", subjectID); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	part, err := writer.CreateFormFile("uploadfile", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.conf.BaseURL+"/uploadpdf", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := utils.GetHTTPClient().Do(req)
	if err != nil {
		logger.Errorf("error: %v", err)
		return "", fmt.Errorf("couldn't reach the server, please check your connection")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload failed with status %d", res.StatusCode)
	}

	return strings.TrimSpace(string(body)), nil
}
