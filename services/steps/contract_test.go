package steps

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepay/onboarding/services"
	"github.com/carepay/onboarding/services/wizard"
	"github.com/carepay/onboarding/types"
)

func newContractStep(t *testing.T, subjectID string) (*ContractStep, string) {
	t.Helper()
	store, sessionID := testSessions(t)
	ctx := context.Background()
	if subjectID != "" {
		require.NoError(t, store.SetSubjectID(ctx, sessionID, subjectID))
	}
	require.NoError(t, store.SetSavedPhone(ctx, sessionID, "9898989898"))
	return NewContractStep(services.NewCarePayService(), services.NewEmailService(), store), sessionID
}

func TestContractStepLoad(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	ctx := context.Background()

	t.Run("missing subject identifier is terminal", func(t *testing.T) {
		step, sessionID := newContractStep(t, "")
		httpmock.Reset()

		_, err := step.Load(ctx, sessionID)
		assert.ErrorIs(t, err, wizard.ErrNoSubject)
		assert.Zero(t, httpmock.GetTotalCallCount())
	})

	t.Run("fetches the envelope by identifier", func(t *testing.T) {
		step, sessionID := newContractStep(t, "DOC1")

		httpmock.Reset()
		httpmock.RegisterResponder("GET", coreURL+"/initiateContract",
			httpmock.NewStringResponder(200, `{"status":200,"data":{"pdfUrl":"https://files/contract.pdf","esignUrl":"https://esign/abc"},"message":""}`))

		contract, err := step.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "https://files/contract.pdf", contract.PreviewURL)
		assert.Equal(t, "https://esign/abc", contract.SigningURL)
	})

	t.Run("a failed fetch is terminal", func(t *testing.T) {
		step, sessionID := newContractStep(t, "DOC1")

		httpmock.Reset()
		httpmock.RegisterResponder("GET", coreURL+"/initiateContract",
			httpmock.NewStringResponder(200, `{"status":500,"data":null,"message":"not ready"}`))

		_, err := step.Load(ctx, sessionID)
		assert.Error(t, err)
	})
}

func TestContractStepComplete(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	ctx := context.Background()

	t.Run("missing signing URL blocks completion", func(t *testing.T) {
		step, sessionID := newContractStep(t, "DOC1")

		err := step.Complete(ctx, sessionID, &types.ContractEnvelope{PreviewURL: "https://files/contract.pdf"})
		assert.True(t, IsValidation(err))

		err = step.Complete(ctx, sessionID, nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("completion is optimistic", func(t *testing.T) {
		step, sessionID := newContractStep(t, "DOC1")

		assert.NoError(t, step.Complete(ctx, sessionID, &types.ContractEnvelope{
			PreviewURL: "https://files/contract.pdf",
			SigningURL: "https://esign/abc",
		}))
	})
}
