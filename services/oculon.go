package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	fastshot "github.com/opus-domini/fast-shot"
	"github.com/xeipuuv/gojsonschema"

	"github.com/carepay/onboarding/config"
	"github.com/carepay/onboarding/types"
	"github.com/carepay/onboarding/utils"
	"github.com/carepay/onboarding/utils/logger"
)

// Response document schemas. The enrichment provider is a third party;
// payloads that do not match the expected shape are rejected before
// any field is merged.
const (
	prefillSchema = `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"pan": {"type": "string"},
			"email": {"type": "string"},
			"dob": {"type": "string"}
		}
	}`

	gstDetailSchema = `{
		"type": "object",
		"properties": {
			"gstin": {"type": "string"},
			"legalName": {"type": "string"},
			"tradeName": {"type": "string"},
			"constitutionOfBusiness": {"type": "string"},
			"registrationDate": {"type": "string"},
			"address": {"type": "string"}
		}
	}`

	udyamDetailSchema = `{
		"type": "object",
		"properties": {
			"enterpriseName": {"type": "string"},
			"organisationType": {"type": "string"},
			"dateOfIncorporation": {"type": "string"},
			"address": {"type": "string"}
		}
	}`

	cinDetailSchema = `{
		"type": "object",
		"properties": {
			"cin": {"type": "string"},
			"companyName": {"type": "string"},
			"dateOfIncorporation": {"type": "string"},
			"registeredAddress": {"type": "string"}
		}
	}`

	chequeOCRSchema = `{
		"type": "object",
		"properties": {
			"accountNumber": {"type": "string"},
			"accountHolderName": {"type": "string"},
			"ifscCode": {"type": "string"}
		}
	}`

	panCardOCRSchema = `{
		"type": "object",
		"properties": {
			"panNumber": {"type": "string"},
			"name": {"type": "string"},
			"dob": {"type": "string"}
		}
	}`

	gstCertificateOCRSchema = `{
		"type": "object",
		"properties": {
			"gstin": {"type": "string"},
			"legalName": {"type": "string"},
			"constitutionOfBusiness": {"type": "string"},
			"registrationDate": {"type": "string"}
		}
	}`
)

// OculonService talks to the enrichment backend for registry lookups
// and document OCR. Every call is best effort; failures are for the
// caller to log and swallow, never to surface.
type OculonService struct {
	conf *config.EnrichmentConfiguration
}

// NewOculonService creates an enrichment backend client.
func NewOculonService() *OculonService {
	return &OculonService{
		conf: config.EnrichmentConfig(),
	}
}

func (s *OculonService) client() fastshot.ClientHttpMethods {
	return fastshot.NewClient(s.conf.BaseURL).
		Config().SetTimeout(s.conf.Timeout).
		Build()
}

// decodeEnrichment unwraps the enrichment envelope, validates the data
// document against the schema and decodes it into out.
func decodeEnrichment(res *http.Response, schema string, out interface{}) error {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	defer res.Body.Close()

	var envelope types.EnrichmentEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("enrichment lookup failed: %s", envelope.Message)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("enrichment lookup returned no data")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(envelope.Data),
	)
	if err != nil {
		return fmt.Errorf("failed to validate response: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("malformed enrichment response: %v", result.Errors())
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("unexpected enrichment response: %w", err)
	}
	return nil
}

// PhonePrefill looks up demographic, tax and contact fields by phone
// number and first name.
func (s *OculonService) PhonePrefill(ctx context.Context, mobileNumber, firstName string) (*types.PrefillData, error) {
	res, err := s.client().POST("/api/phone-prefill/").
		Body().AsJSON(map[string]interface{}{
		"mobileNumber": mobileNumber,
		"firstName":    firstName,
	}).
		Send()
	if err != nil {
		return nil, fmt.Errorf("phone prefill request failed: %w", err)
	}

	var data types.PrefillData
	if err := decodeEnrichment(res.RawResponse, prefillSchema, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GSTInfo looks up registry details for a registration number.
func (s *OculonService) GSTInfo(ctx context.Context, gstin string) (*types.GSTDetail, error) {
	res, err := s.client().GET(fmt.Sprintf("/api/gst-info/%s/", gstin)).Send()
	if err != nil {
		return nil, fmt.Errorf("GST info request failed: %w", err)
	}

	var data types.GSTDetail
	if err := decodeEnrichment(res.RawResponse, gstDetailSchema, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PANToGST resolves a tax identifier to its registration details.
func (s *OculonService) PANToGST(ctx context.Context, pan string) (*types.GSTDetail, error) {
	res, err := s.client().GET(fmt.Sprintf("/api/pan-to-gst/%s/", pan)).Send()
	if err != nil {
		return nil, fmt.Errorf("PAN to GST request failed: %w", err)
	}

	var data types.GSTDetail
	if err := decodeEnrichment(res.RawResponse, gstDetailSchema, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PANToUdyam resolves a tax identifier through the small-business
// registry.
func (s *OculonService) PANToUdyam(ctx context.Context, pan string) (*types.UdyamDetail, error) {
	res, err := s.client().GET(fmt.Sprintf("/api/pan-to-udyam/%s/", pan)).Send()
	if err != nil {
		return nil, fmt.Errorf("PAN to Udyam request failed: %w", err)
	}

	var data types.UdyamDetail
	if err := decodeEnrichment(res.RawResponse, udyamDetailSchema, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PANToCIN resolves a tax identifier to a corporate identifier.
func (s *OculonService) PANToCIN(ctx context.Context, pan string) (*types.CINDetail, error) {
	res, err := s.client().GET(fmt.Sprintf("/api/pan-to-cin/%s/", pan)).Send()
	if err != nil {
		return nil, fmt.Errorf("PAN to CIN request failed: %w", err)
	}

	var data types.CINDetail
	if err := decodeEnrichment(res.RawResponse, cinDetailSchema, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ocr posts a document to an OCR endpoint and decodes the extraction.
func (s *OculonService) ocr(ctx context.Context, path, schema, filename string, document []byte, out interface{}) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("failed to build OCR form: %w", err)
	}
	if _, err := part.Write(document); err != nil {
		return fmt.Errorf("failed to build OCR form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to build OCR form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.conf.BaseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := utils.GetHTTPClient().Do(req)
	if err != nil {
		logger.Errorf("error: %v", err)
		return fmt.Errorf("OCR request failed: %w", err)
	}

	return decodeEnrichment(res, schema, out)
}

// CancelledChequeOCR extracts bank fields from a cancelled cheque.
func (s *OculonService) CancelledChequeOCR(ctx context.Context, filename string, document []byte) (*types.ChequeOCRData, error) {
	var data types.ChequeOCRData
	if err := s.ocr(ctx, "/ocr/cancel-check-ocr/", chequeOCRSchema, filename, document, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PANCardOCR extracts identity fields from a tax identity document.
func (s *OculonService) PANCardOCR(ctx context.Context, filename string, document []byte) (*types.PANCardOCRData, error) {
	var data types.PANCardOCRData
	if err := s.ocr(ctx, "/ocr/pan-card/", panCardOCRSchema, filename, document, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GSTCertificateOCR extracts registration fields from a certificate.
func (s *OculonService) GSTCertificateOCR(ctx context.Context, filename string, document []byte) (*types.GSTCertificateOCRData, error) {
	var data types.GSTCertificateOCRData
	if err := s.ocr(ctx, "/ocr/gst-certificate/", gstCertificateOCRSchema, filename, document, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
