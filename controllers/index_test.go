package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/jarcoal/httpmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepay/onboarding/routers/middleware"
	"github.com/carepay/onboarding/storage"
	"github.com/carepay/onboarding/types"
)

const coreURL = "https://backend.carepay.money"

func testRouter(t *testing.T) (*Controller, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	storage.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	ctrl := NewController()
	sessions := storage.NewSessionStore(nil)

	router := gin.New()
	router.POST("/sessions", ctrl.CreateSession)

	authed := router.Group("", middleware.SessionMiddleware(sessions))
	authed.GET("/state", ctrl.GetState)
	authed.POST("/otp/send", ctrl.SendOTP)
	authed.POST("/otp/verify", ctrl.VerifyOTP)
	authed.PUT("/address", ctrl.SaveAddress)
	return ctrl, router
}

func performRequest(t *testing.T, router *gin.Engine, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func decodeResponse(t *testing.T, res *httptest.ResponseRecorder) types.Response {
	t.Helper()
	var out types.Response
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	return out
}

func TestSessionLifecycle(t *testing.T) {
	_, router := testRouter(t)

	t.Run("session routes require a token", func(t *testing.T) {
		res := performRequest(t, router, "GET", "/state", "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.Code)

		res = performRequest(t, router, "GET", "/state", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})

	t.Run("created session opens on the phone step", func(t *testing.T) {
		res := performRequest(t, router, "POST", "/sessions", "", nil)
		require.Equal(t, http.StatusCreated, res.Code)

		out := decodeResponse(t, res)
		data := out.Data.(map[string]interface{})
		require.NotEmpty(t, data["token"])
		require.NotEmpty(t, data["sessionId"])

		state := performRequest(t, router, "GET", "/state", data["token"].(string), nil)
		require.Equal(t, http.StatusOK, state.Code)
		stateOut := decodeResponse(t, state)
		assert.Equal(t, "phone", stateOut.Data.(map[string]interface{})["stepName"])
	})
}

func TestOTPFlow(t *testing.T) {
	_, router := testRouter(t)

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	res := performRequest(t, router, "POST", "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, res.Code)
	token := decodeResponse(t, res).Data.(map[string]interface{})["token"].(string)

	t.Run("an invalid number is rejected without a request", func(t *testing.T) {
		httpmock.Reset()
		res := performRequest(t, router, "POST", "/otp/send", token, types.SendOTPPayload{
			MobileNumber: "12345",
		})
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Zero(t, httpmock.GetTotalCallCount())
	})

	t.Run("send and verify advance the wizard", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("GET", coreURL+"/sendOtp",
			httpmock.NewStringResponder(200, `{"status":200,"data":null,"message":"sent"}`))
		httpmock.RegisterResponder("GET", coreURL+"/getOtp",
			httpmock.NewStringResponder(200, `{"status":200,"data":"BANK","message":"OTP verified"}`))
		httpmock.RegisterResponder("POST", coreURL+"/saveOrUpdateDoctorDetails",
			httpmock.NewStringResponder(200, `{"status":200,"data":{"doctorId":"DOC1"},"message":""}`))

		res := performRequest(t, router, "POST", "/otp/send", token, types.SendOTPPayload{
			MobileNumber: "9898989898",
		})
		require.Equal(t, http.StatusOK, res.Code)

		res = performRequest(t, router, "POST", "/otp/verify", token, types.VerifyOTPPayload{
			MobileNumber: "9898989898",
			OTP:          "1234",
		})
		require.Equal(t, http.StatusOK, res.Code)
		out := decodeResponse(t, res)
		assert.Equal(t, "DOC1", out.Data.(map[string]interface{})["subjectId"])

		state := performRequest(t, router, "GET", "/state", token, nil)
		stateOut := decodeResponse(t, state)
		assert.Equal(t, "personal", stateOut.Data.(map[string]interface{})["stepName"])
	})
}

func TestSaveAddressValidation(t *testing.T) {
	_, router := testRouter(t)

	res := performRequest(t, router, "POST", "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, res.Code)
	token := decodeResponse(t, res).Data.(map[string]interface{})["token"].(string)

	t.Run("missing required fields fail binding", func(t *testing.T) {
		res := performRequest(t, router, "PUT", "/address", token, types.AddressPayload{
			Building: "12 Clinic Road",
		})
		assert.Equal(t, http.StatusBadRequest, res.Code)
		out := decodeResponse(t, res)
		assert.Equal(t, "error", out.Status)
	})
}

func TestSessionDeleteReleasesWizard(t *testing.T) {
	ctrl, router := testRouter(t)

	res := performRequest(t, router, "POST", "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, res.Code)
	data := decodeResponse(t, res).Data.(map[string]interface{})
	token := data["token"].(string)
	id := data["sessionId"].(string)

	// touching state materializes the in-memory wizard
	state := performRequest(t, router, "GET", "/state", token, nil)
	require.Equal(t, http.StatusOK, state.Code)

	ctrl.mu.Lock()
	_, held := ctrl.wizards[id]
	ctrl.mu.Unlock()
	require.True(t, held)

	sessions := storage.NewSessionStore(nil)
	require.NoError(t, sessions.Delete(context.Background(), id))

	ctrl.mu.Lock()
	_, held = ctrl.wizards[id]
	ctrl.mu.Unlock()
	assert.False(t, held)

	// the token no longer resolves once the session is gone
	state = performRequest(t, router, "GET", "/state", token, nil)
	assert.Equal(t, http.StatusUnauthorized, state.Code)
}
