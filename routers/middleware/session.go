package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/carepay/onboarding/config"
	"github.com/carepay/onboarding/storage"
	u "github.com/carepay/onboarding/utils"
	"github.com/carepay/onboarding/utils/logger"
)

// SessionMiddleware resolves the session token from the Authorization
// header, checks the session still exists and stamps its activity
// time. Handlers read the session id from the request context.
func SessionMiddleware(sessions *storage.SessionStore) gin.HandlerFunc {
	conf := config.ServerConfig()

	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			u.APIResponse(ctx, http.StatusUnauthorized, "error", "Missing or invalid Authorization header", nil)
			ctx.Abort()
			return
		}
		tokenString := authHeader[len("Bearer "):]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(conf.SessionSecret), nil
		})
		if err != nil || !token.Valid {
			u.APIResponse(ctx, http.StatusUnauthorized, "error", "Invalid or expired token", nil)
			ctx.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["sid"] == nil {
			u.APIResponse(ctx, http.StatusUnauthorized, "error", "Invalid token payload", nil)
			ctx.Abort()
			return
		}
		sessionID, _ := claims["sid"].(string)

		exists, err := sessions.Exists(ctx, sessionID)
		if err != nil {
			logger.Errorf("error: %v", err)
			u.APIResponse(ctx, http.StatusInternalServerError, "error", "Failed to resolve session", nil)
			ctx.Abort()
			return
		}
		if !exists {
			u.APIResponse(ctx, http.StatusUnauthorized, "error", "Session has expired", nil)
			ctx.Abort()
			return
		}

		if err := sessions.Touch(ctx, sessionID); err != nil {
			logger.Warnf("failed to stamp session activity: %v", err)
		}

		ctx.Set("session_id", sessionID)
		ctx.Next()
	}
}
