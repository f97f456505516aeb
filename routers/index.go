package routers

import (
	"github.com/gin-gonic/gin"

	"github.com/carepay/onboarding/controllers"
	"github.com/carepay/onboarding/routers/middleware"
	"github.com/carepay/onboarding/storage"
)

// Routes wires the HTTP surface: CORS and rate limiting on everything,
// session resolution on everything past session creation.
func Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RateLimitMiddleware())

	ctrl := controllers.NewController()
	sessions := storage.NewSessionStore(nil)

	v1 := router.Group("/v1/onboarding")
	v1.POST("/sessions", ctrl.CreateSession)

	authed := v1.Group("", middleware.SessionMiddleware(sessions))
	{
		authed.GET("/state", ctrl.GetState)
		authed.POST("/navigate", ctrl.Navigate)
		authed.POST("/retreat", ctrl.Retreat)
		authed.POST("/errors/clear", ctrl.ClearError)

		authed.POST("/otp/send", ctrl.SendOTP)
		authed.POST("/otp/verify", ctrl.VerifyOTP)

		authed.GET("/personal", ctrl.GetPersonalDetails)
		authed.PUT("/personal", ctrl.SavePersonalDetails)
		authed.POST("/personal/prefill", ctrl.PrefillPersonalDetails)
		authed.POST("/personal/document", ctrl.UploadPANDocument)

		authed.GET("/practice", ctrl.GetPracticeDetails)
		authed.PUT("/practice", ctrl.SavePracticeDetails)
		authed.POST("/practice/lookup", ctrl.LookupRegistry)
		authed.POST("/practice/document", ctrl.UploadCertificate)

		authed.GET("/address", ctrl.GetAddress)
		authed.PUT("/address", ctrl.SaveAddress)

		authed.GET("/bank", ctrl.GetBankDetails)
		authed.PUT("/bank", ctrl.SaveBankDetails)
		authed.POST("/bank/ifsc", ctrl.ResolveIFSC)
		authed.POST("/bank/document", ctrl.UploadCheque)

		authed.GET("/contract", ctrl.GetContract)
		authed.POST("/contract/complete", ctrl.CompleteContract)
	}

	return router
}
