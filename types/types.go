package types

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Response is the envelope every handler writes.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// GatewayEnvelope is the response shape shared by every core backend
// endpoint. Status 200 means success; 403 is observed as a soft
// "already exists" success on upsert calls.
type GatewayEnvelope struct {
	Status     int             `json:"status"`
	Data       json.RawMessage `json:"data"`
	Attachment interface{}     `json:"attachment"`
	Message    string          `json:"message"`
}

// Success reports whether the call succeeded outright.
func (e *GatewayEnvelope) Success() bool {
	return e.Status == 200
}

// AlreadyExists reports the soft success the backend returns when an
// upsert targets a record that is already present. At the protocol
// level this is indistinguishable from an authorization failure;
// pending backend clarification we preserve the observed behavior.
func (e *GatewayEnvelope) AlreadyExists() bool {
	return e.Status == 403
}

// EnrichmentEnvelope is the response shape shared by every enrichment
// and OCR endpoint.
type EnrichmentEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// SubjectRecord is the professional being onboarded. Created server
// side on first successful OTP verification and addressed by SubjectID
// afterwards. Dates travel in DD-MM-YYYY form.
type SubjectRecord struct {
	SubjectID      string `json:"doctorId,omitempty"`
	MobileNumber   string `json:"phoneNumber"`
	Name           string `json:"name,omitempty"`
	PAN            string `json:"pan,omitempty"`
	Email          string `json:"emailId,omitempty"`
	DateOfBirth    string `json:"dob,omitempty"`
	ReferralCode   string `json:"scoutCode,omitempty"`
	JoiningDate    string `json:"joiningDate,omitempty"`
	Verified       string `json:"verified,omitempty"`
	MobileVerified string `json:"mobileVerified,omitempty"`
}

// PracticeProfile is one-to-one with the subject.
type PracticeProfile struct {
	SubjectID         string          `json:"doctorId"`
	LicenseNumber     string          `json:"licenceNumber,omitempty"`
	Specialty         string          `json:"speciality,omitempty"`
	ClinicName        string          `json:"clinicName,omitempty"`
	BusinessEntity    string          `json:"businessEntityName,omitempty"`
	EntityType        string          `json:"businessEntityType,omitempty"`
	EstablishmentDate string          `json:"incorporationDate,omitempty"`
	CIN               string          `json:"cinLlpin,omitempty"`
	GSTIN             string          `json:"gstIn,omitempty"`
	MonthlyPotential  decimal.Decimal `json:"monthlyPotential,omitempty"`
}

// AddressRecord is one-to-one with the subject.
type AddressRecord struct {
	SubjectID string `json:"doctorId"`
	Building  string `json:"building"`
	Locality  string `json:"locality,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pinCode"`
}

// Bank account type options.
const (
	AccountTypeCurrent = "Current"
	AccountTypeSavings = "Savings"
)

// BankRecord is one-to-one with the subject. The confirmation copy of
// the account number never leaves the wizard and is not part of the
// persisted record.
type BankRecord struct {
	SubjectID     string `json:"doctorId"`
	AccountNumber string `json:"accountNumber"`
	HolderName    string `json:"accountHolderName"`
	IFSC          string `json:"ifscCode"`
	AccountType   string `json:"accountType,omitempty"`
	BankAddress   string `json:"bankAddress,omitempty"`
	BankName      string `json:"bankName"`
	BranchName    string `json:"branchName"`
}

// BankCodeDetail is the routing-code lookup result. The upstream
// lookup labels the bank name as branchName and the branch as
// branchCode; the mapping is kept as observed.
type BankCodeDetail struct {
	BranchName  string `json:"branchName"`
	BranchCode  string `json:"branchCode"`
	BankAddress string `json:"bankAddress,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
}

// ContractEnvelope is fetched, never created, by the wizard.
type ContractEnvelope struct {
	PreviewURL string `json:"pdfUrl"`
	SigningURL string `json:"esignUrl"`
}

// ReferralCode is a selectable code for the personal details step.
type ReferralCode struct {
	Code         string `json:"code"`
	ExternalCode string `json:"externalCode,omitempty"`
	Name         string `json:"name,omitempty"`
}

// Logical tags for uploaded documents.
const (
	DocumentTagPAN    = "panCard"
	DocumentTagGST    = "gst"
	DocumentTagCheque = "cancelCheck"
)

// DocumentRefs holds the remote URLs of previously uploaded documents.
type DocumentRefs struct {
	PANCardURL         string `json:"panCardUrl,omitempty"`
	GSTCertificateURL  string `json:"gstUrl,omitempty"`
	CancelledChequeURL string `json:"loanCheque,omitempty"`
}

// Entity type enum for practice profiles. EntityTypeUnselected is the
// placeholder used when classification fails.
const (
	EntityTypeUnselected     = ""
	EntityTypePrivateLimited = "Private Limited"
	EntityTypeProprietorship = "Proprietorship"
	EntityTypeLLP            = "LLP"
	EntityTypePartnership    = "Partnership"
	EntityTypePublicLimited  = "Public Limited"
)

// PrefillData is returned by the phone prefill enrichment lookup.
type PrefillData struct {
	Name        string `json:"name"`
	PAN         string `json:"pan"`
	Email       string `json:"email"`
	DateOfBirth string `json:"dob"`
}

// GSTDetail is returned by the registry lookup keyed by GSTIN and by
// the PAN-to-GST lookup.
type GSTDetail struct {
	GSTIN            string `json:"gstin"`
	LegalName        string `json:"legalName"`
	TradeName        string `json:"tradeName"`
	Constitution     string `json:"constitutionOfBusiness"`
	RegistrationDate string `json:"registrationDate"`
	Address          string `json:"address"`
}

// UdyamDetail is returned by the small-business registry lookup.
type UdyamDetail struct {
	EnterpriseName    string `json:"enterpriseName"`
	OrganisationType  string `json:"organisationType"`
	IncorporationDate string `json:"dateOfIncorporation"`
	Address           string `json:"address"`
}

// CINDetail is returned by the corporate identifier lookup.
type CINDetail struct {
	CIN               string `json:"cin"`
	CompanyName       string `json:"companyName"`
	IncorporationDate string `json:"dateOfIncorporation"`
	Address           string `json:"registeredAddress"`
}

// ChequeOCRData is extracted from a cancelled cheque image.
type ChequeOCRData struct {
	AccountNumber string `json:"accountNumber"`
	HolderName    string `json:"accountHolderName"`
	IFSC          string `json:"ifscCode"`
}

// PANCardOCRData is extracted from a tax identity document.
type PANCardOCRData struct {
	PAN         string `json:"panNumber"`
	Name        string `json:"name"`
	DateOfBirth string `json:"dob"`
}

// GSTCertificateOCRData is extracted from a registration certificate.
type GSTCertificateOCRData struct {
	GSTIN            string `json:"gstin"`
	LegalName        string `json:"legalName"`
	Constitution     string `json:"constitutionOfBusiness"`
	RegistrationDate string `json:"registrationDate"`
}

// ParsedAddress is the result of heuristic registry address parsing.
type ParsedAddress struct {
	Building string `json:"building"`
	Locality string `json:"locality"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

// SendOTPPayload is the request body for the OTP send route.
type SendOTPPayload struct {
	MobileNumber string `json:"mobileNumber" binding:"required"`
}

// VerifyOTPPayload is the request body for the OTP verify route.
type VerifyOTPPayload struct {
	MobileNumber string `json:"mobileNumber" binding:"required"`
	OTP          string `json:"otp" binding:"required"`
}

// PersonalDetailsPayload is the request body for the personal details
// step. The birth date arrives in ISO form from the date picker.
type PersonalDetailsPayload struct {
	Name         string `json:"name" binding:"required"`
	PAN          string `json:"panCard"`
	Email        string `json:"emailId" binding:"omitempty,email"`
	DateOfBirth  string `json:"dateOfBirth"`
	ReferralCode string `json:"scoutCode"`
}

// PracticeDetailsPayload is the request body for the practice step.
type PracticeDetailsPayload struct {
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

// AddressPayload is the request body for the address step.
type AddressPayload struct {
	Building string `json:"address" binding:"required"`
	Locality string `json:"locality"`
	City     string `json:"city" binding:"required"`
	State    string `json:"state" binding:"required"`
	Pincode  string `json:"pincode" binding:"required"`
}

// BankDetailsPayload is the request body for the bank step. The
// confirmation copy must match the account number exactly.
type BankDetailsPayload struct {
	AccountNumber        string `json:"accountNumber" binding:"required"`
	ConfirmAccountNumber string `json:"confirmAccountNumber" binding:"required"`
	HolderName           string `json:"accountHolderName" binding:"required"`
	IFSC                 string `json:"ifscCode" binding:"required"`
	AccountType          string `json:"accountType" binding:"omitempty,oneof=Current Savings"`
	BankName             string `json:"bankName"`
	BranchName           string `json:"branch"`
}
