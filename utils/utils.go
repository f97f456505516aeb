package utils

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carepay/onboarding/types"
)

// APIResponse writes a JSON response in the standard envelope.
func APIResponse(ctx *gin.Context, httpCode int, status string, message string, data interface{}) {
	ctx.JSON(httpCode, types.Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// DocumentKind classifies an uploaded file as "img" or "pdf" based on
// its extension. Anything that is not a PDF travels as an image.
func DocumentKind(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return "pdf"
	}
	return "img"
}
