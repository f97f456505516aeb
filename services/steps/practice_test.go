package steps

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepay/onboarding/services"
	"github.com/carepay/onboarding/storage"
	"github.com/carepay/onboarding/types"
	"github.com/carepay/onboarding/utils"
)

func newPracticeStep(t *testing.T, subjectID string) (*PracticeStep, *storage.SessionStore, string) {
	t.Helper()
	store, sessionID := verifiedSession(t, subjectID, "9898989898")
	step := NewPracticeStep(services.NewCarePayService(), services.NewOculonService(), store)
	return step, store, sessionID
}

func TestClassifyEntityType(t *testing.T) {
	cases := map[string]string{
		"Private Limited Company":       types.EntityTypePrivateLimited,
		"Sole Proprietorship":           types.EntityTypeProprietorship,
		"Limited Liability Partnership": types.EntityTypeLLP,
		"LLP":                           types.EntityTypeLLP,
		"Partnership":                   types.EntityTypePartnership,
		"Public Limited Company":        types.EntityTypePublicLimited,
		"Company":                       types.EntityTypePrivateLimited,
		"Firm":                          types.EntityTypePartnership,
		"Hindu Undivided Family":        types.EntityTypeUnselected,
		"":                              types.EntityTypeUnselected,
	}
	for constitution, want := range cases {
		assert.Equal(t, want, ClassifyEntityType(constitution), "constitution %q", constitution)
	}
}

func TestParseRegistryAddress(t *testing.T) {
	t.Run("full address", func(t *testing.T) {
		parsed := ParseRegistryAddress("Plot 5, MG Road, Pune, Maharashtra, 411001")
		assert.Equal(t, "411001", parsed.Pincode)
		assert.Equal(t, "Maharashtra", parsed.State)
		assert.Equal(t, "Pune", parsed.City)
		assert.Equal(t, "MG Road", parsed.Locality)
		assert.Equal(t, "Plot 5", parsed.Building)
	})

	t.Run("multi-segment building line", func(t *testing.T) {
		parsed := ParseRegistryAddress("Flat 2, Tower B, Green Park, Andheri, Mumbai, Maharashtra, 400053")
		assert.Equal(t, "Flat 2, Tower B, Green Park", parsed.Building)
		assert.Equal(t, "Andheri", parsed.Locality)
		assert.Equal(t, "Mumbai", parsed.City)
	})

	t.Run("last six digit token wins", func(t *testing.T) {
		parsed := ParseRegistryAddress("Unit 110001, Connaught Place, New Delhi, Delhi, 110001")
		assert.Equal(t, "110001", parsed.Pincode)
	})

	t.Run("short strings fill what they can", func(t *testing.T) {
		parsed := ParseRegistryAddress("Pune, Maharashtra")
		assert.Equal(t, "Pune", parsed.State)
		assert.Empty(t, parsed.Building)
	})
}

func TestMergeIfEmpty(t *testing.T) {
	a, b := "keep", ""
	changed := mergeIfEmpty([]assign{
		{&a, "overwrite"},
		{&b, "fill"},
	})
	assert.True(t, changed)
	assert.Equal(t, "keep", a)
	assert.Equal(t, "fill", b)

	assert.False(t, mergeIfEmpty([]assign{{&a, "again"}}))
}

func TestPracticeStepCascade(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	ctx := context.Background()

	t.Run("merges succeeded arms and caches the registry address", func(t *testing.T) {
		step, store, sessionID := newPracticeStep(t, "DOC1")
		require.NoError(t, store.SetSavedPAN(ctx, sessionID, "ABCDE1234F"))

		httpmock.Reset()
		httpmock.RegisterResponder("GET", enrichmentURL+"/api/pan-to-gst/ABCDE1234F/",
			httpmock.NewStringResponder(200, `{"success":true,"data":{"gstin":"27AAPFU0939F1ZV","legalName":"Rao Clinic LLP","constitutionOfBusiness":"Limited Liability Partnership","registrationDate":"01-04-2019","address":"Plot 5, MG Road, Pune, Maharashtra, 411001"},"message":""}`))
		httpmock.RegisterResponder("GET", enrichmentURL+"/api/pan-to-udyam/ABCDE1234F/",
			httpmock.NewStringResponder(200, `{"success":false,"data":null,"message":"not registered"}`))
		httpmock.RegisterResponder("GET", enrichmentURL+"/api/pan-to-cin/ABCDE1234F/",
			httpmock.NewStringResponder(200, `{"success":true,"data":{"cin":"U72900KA2015PTC082988","companyName":"Other Name","dateOfIncorporation":"2015-06-01"},"message":""}`))

		form, changed := step.Cascade(ctx, sessionID, PracticeForm{})
		assert.True(t, changed)

		assert.Equal(t, "27AAPFU0939F1ZV", form.GSTIN)
		// first writer wins: the GST arm named the entity first
		assert.Equal(t, "Rao Clinic LLP", form.BusinessEntity)
		assert.Equal(t, types.EntityTypeLLP, form.EntityType)
		assert.Equal(t, "2019-04-01", form.EstablishmentDate)
		assert.Equal(t, "U72900KA2015PTC082988", form.CIN)

		cached, err := store.RegistryAddress(ctx, sessionID)
		require.NoError(t, err)
		assert.Contains(t, cached, `"pincode":"411001"`)
	})

	t.Run("arms with fully known targets are skipped", func(t *testing.T) {
		step, store, sessionID := newPracticeStep(t, "DOC1")
		require.NoError(t, store.SetSavedPAN(ctx, sessionID, "ABCDE1234F"))

		httpmock.Reset()
		httpmock.RegisterResponder("GET", enrichmentURL+"/api/pan-to-cin/ABCDE1234F/",
			httpmock.NewStringResponder(200, `{"success":true,"data":{"cin":"U72900KA2015PTC082988"},"message":""}`))

		form := PracticeForm{
			GSTIN:             "27AAPFU0939F1ZV",
			BusinessEntity:    "Rao Clinic LLP",
			EntityType:        types.EntityTypeLLP,
			EstablishmentDate: "2019-04-01",
		}
		merged, changed := step.Cascade(ctx, sessionID, form)
		assert.True(t, changed)
		assert.Equal(t, "U72900KA2015PTC082988", merged.CIN)

		// only the CIN arm ran
		info := httpmock.GetCallCountInfo()
		assert.Zero(t, info["GET "+enrichmentURL+"/api/pan-to-gst/ABCDE1234F/"])
		assert.Zero(t, info["GET "+enrichmentURL+"/api/pan-to-udyam/ABCDE1234F/"])
	})

	t.Run("no tax identifier means no cascade", func(t *testing.T) {
		step, _, sessionID := newPracticeStep(t, "DOC1")

		httpmock.Reset()
		httpmock.RegisterResponder("GET", coreURL+"/getDoctorDetailsByPhoneNumber",
			httpmock.NewStringResponder(200, `{"status":200,"data":{"doctorId":"DOC1"},"message":""}`))

		form, changed := step.Cascade(ctx, sessionID, PracticeForm{})
		assert.False(t, changed)
		assert.Equal(t, PracticeForm{}, form)
	})
}

func TestPracticeStepRegistryLookup(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	ctx := context.Background()

	t.Run("fills missing name and date", func(t *testing.T) {
		step, _, sessionID := newPracticeStep(t, "DOC1")

		httpmock.Reset()
		httpmock.RegisterResponder("GET", enrichmentURL+"/api/gst-info/27AAPFU0939F1ZV/",
			httpmock.NewStringResponder(200, `{"success":true,"data":{"legalName":"Rao Clinic LLP","constitutionOfBusiness":"LLP","registrationDate":"01-04-2019"},"message":""}`))

		form, changed := step.RegistryLookup(ctx, sessionID, PracticeForm{GSTIN: "27AAPFU0939F1ZV"})
		assert.True(t, changed)
		assert.Equal(t, "Rao Clinic LLP", form.BusinessEntity)
		assert.Equal(t, "2019-04-01", form.EstablishmentDate)
	})

	t.Run("skips when nothing is missing or the number is invalid", func(t *testing.T) {
		step, _, sessionID := newPracticeStep(t, "DOC1")
		httpmock.Reset()

		_, changed := step.RegistryLookup(ctx, sessionID, PracticeForm{GSTIN: "bad"})
		assert.False(t, changed)

		_, changed = step.RegistryLookup(ctx, sessionID, PracticeForm{
			GSTIN:             "27AAPFU0939F1ZV",
			BusinessEntity:    "Known",
			EstablishmentDate: "2019-04-01",
		})
		assert.False(t, changed)

		assert.Zero(t, httpmock.GetTotalCallCount())
	})
}

func TestPracticeStepUploadCertificate(t *testing.T) {
	httpmock.Activate()
	httpmock.ActivateNonDefault(utils.GetHTTPClient())
	defer httpmock.DeactivateAndReset()

	step, _, sessionID := newPracticeStep(t, "DOC1")
	ctx := context.Background()

	httpmock.RegisterResponder("POST", coreURL+"/uploadpdf",
		httpmock.NewStringResponder(200, "https://files/gst.pdf"))
	httpmock.RegisterResponder("POST", enrichmentURL+"/ocr/gst-certificate/",
		httpmock.NewStringResponder(200, `{"success":true,"data":{"gstin":"27AAPFU0939F1ZV","legalName":"Rao Clinic LLP","constitutionOfBusiness":"Limited Liability Partnership","registrationDate":"01-04-2019"},"message":""}`))

	// certificate OCR is authoritative and overwrites prior values
	form := PracticeForm{GSTIN: "OLD", BusinessEntity: "Old Name", EstablishmentDate: "2010-01-01"}
	result, err := step.UploadCertificate(ctx, sessionID, "gst.pdf", []byte("pdf"), form)
	require.NoError(t, err)

	assert.Equal(t, "https://files/gst.pdf", result.URL)
	assert.Equal(t, "27AAPFU0939F1ZV", result.Form.GSTIN)
	assert.Equal(t, "Rao Clinic LLP", result.Form.BusinessEntity)
	assert.Equal(t, types.EntityTypeLLP, result.Form.EntityType)
	assert.Equal(t, "2019-04-01", result.Form.EstablishmentDate)
}

func TestPracticeStepSubmit(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	ctx := context.Background()

	t.Run("invalid corporate identifier blocks the save", func(t *testing.T) {
		step, _, sessionID := newPracticeStep(t, "DOC1")
		httpmock.Reset()

		err := step.Submit(ctx, sessionID, PracticeForm{CIN: "X7290"})
		assert.True(t, IsValidation(err))
		assert.Zero(t, httpmock.GetTotalCallCount())
	})

	t.Run("resubmitting identical data succeeds twice", func(t *testing.T) {
		step, _, sessionID := newPracticeStep(t, "DOC1")

		httpmock.Reset()
		httpmock.RegisterResponder("POST", coreURL+"/saveOrUpdateDoctorProfessionalDetails",
			httpmock.NewStringResponder(200, `{"status":200,"data":null,"message":""}`))

		form := PracticeForm{
			ClinicName:        "Rao Clinic",
			CIN:               "U72900KA2015PTC082988",
			GSTIN:             "27AAPFU0939F1ZV",
			EstablishmentDate: "2019-04-01",
		}
		assert.NoError(t, step.Submit(ctx, sessionID, form))
		assert.NoError(t, step.Submit(ctx, sessionID, form))
		assert.Equal(t, 2, httpmock.GetTotalCallCount())
	})

	t.Run("already exists counts as success", func(t *testing.T) {
		step, _, sessionID := newPracticeStep(t, "DOC1")

		httpmock.Reset()
		httpmock.RegisterResponder("POST", coreURL+"/saveOrUpdateDoctorProfessionalDetails",
			httpmock.NewStringResponder(200, `{"status":403,"data":null,"message":"already exists"}`))

		assert.NoError(t, step.Submit(ctx, sessionID, PracticeForm{ClinicName: "Rao Clinic"}))
	})
}
